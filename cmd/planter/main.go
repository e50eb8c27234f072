package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/api"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/engine"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/gateways/telemetry"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/hardware"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/logging"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/metrics"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/reporting"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/storage"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	commandMonitor = "monitor"
	commandStatus  = "status"
	commandWater   = "water"

	shutdownTimeout = 5 * time.Second
)

const usage = `usage: planter [flags] [monitor | status | water <position>]

flags:
`

type flags struct {
	config     string
	simulation bool
	interval   int
	webURL     string
	listen     string
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "YAML configuration file")
	flag.BoolVar(&f.simulation, "simulation", false, "use simulated sensors and pumps")
	flag.IntVar(&f.interval, "interval", 0, "seconds between monitoring cycles")
	flag.StringVar(&f.webURL, "web-url", "", "endpoint receiving the cycle report")
	flag.StringVar(&f.listen, "listen", "", "address of the operator API, e.g. :8080")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(f, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "planter:", err)
		os.Exit(1)
	}
}

func run(f flags, args []string) error {
	configuration, err := utils.LoadConfiguration(f.config)
	if err != nil {
		return err
	}
	applyFlags(&configuration, f)
	if err := utils.Validate(configuration); err != nil {
		return err
	}

	command := commandMonitor
	if len(args) > 0 {
		command = args[0]
	}

	logrusFactory := logging.NewLogrus(configuration.LogLevel, configuration.LogFormat, os.Stdout)
	log := logrusFactory.Get("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case commandMonitor:
		return monitor(ctx, configuration, logrusFactory)
	case commandStatus:
		return status(configuration, logrusFactory)
	case commandWater:
		if len(args) < 2 {
			return errors.New("water requires a plant position")
		}
		position, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrapf(err, "invalid position %q", args[1])
		}
		return water(ctx, configuration, logrusFactory, position)
	default:
		log.WithField("command", command).Error("unknown command")
		flag.Usage()
		return errors.Errorf("unknown command %q", command)
	}
}

// applyFlags lets explicitly set flags override the file and environment.
func applyFlags(configuration *entities.PlanterConfig, f flags) {
	flag.Visit(func(set *flag.Flag) {
		switch set.Name {
		case "simulation":
			configuration.Simulation = f.simulation
		case "interval":
			configuration.Monitor.IntervalSeconds = f.interval
		case "web-url":
			configuration.Reporting.URL = f.webURL
		case "listen":
			configuration.API.Listen = f.listen
		}
	})
}

func newDriver(configuration entities.PlanterConfig, logrusFactory *logging.Logrus) (hardware.Driver, error) {
	return hardware.New(hardware.Options{
		Simulation: configuration.Simulation,
		Seed:       configuration.SimulationSeed,
		Log:        logrusFactory.Get("hardware"),
	})
}

func engineOptions(configuration entities.PlanterConfig, driver hardware.Driver, logrusFactory *logging.Logrus) engine.Options {
	opts := engine.Options{
		Driver:          driver,
		Log:             logrusFactory.Get("engine"),
		Interval:        time.Duration(configuration.Monitor.IntervalSeconds) * time.Second,
		WateringPause:   time.Duration(configuration.Monitor.WateringPauseSeconds) * time.Second,
		MaxPumpDuration: time.Duration(configuration.Safety.MaxPumpSeconds) * time.Second,
		MinTankPercent:  configuration.Safety.MinTankPercent,
	}
	if len(configuration.Plants) > 0 {
		opts.Plants = configuration.Plants
	}
	if configuration.StateFile != "" {
		opts.Store = storage.NewRosterStore(configuration.StateFile)
	}
	return opts
}

func monitor(ctx context.Context, configuration entities.PlanterConfig, logrusFactory *logging.Logrus) error {
	log := logrusFactory.Get("main")
	m := metrics.New()

	driver, err := newDriver(configuration, logrusFactory)
	if err != nil {
		return err
	}

	sinks, commands, err := newSinks(configuration, logrusFactory)
	if err != nil {
		driver.Close()
		return err
	}
	integration := telemetry.NewIntegration(logrusFactory.Get("telemetry"), m, sinks...)
	defer func() {
		if err := integration.Close(); err != nil {
			log.WithError(err).Warn("close telemetry sinks")
		}
	}()

	opts := engineOptions(configuration, driver, logrusFactory)
	opts.Telemetry = integration
	opts.Metrics = m
	if configuration.Reporting.URL != "" {
		opts.Reporter = reporting.NewHTTPReporter(reporting.HTTPReporterOptions{
			URL:             configuration.Reporting.URL,
			Timeout:         time.Duration(configuration.Reporting.TimeoutSeconds) * time.Second,
			BreakerFailures: configuration.Reporting.BreakerFailures,
			BreakerOpen:     time.Duration(configuration.Reporting.BreakerOpenSeconds) * time.Second,
			Observer:        m,
		}, logrusFactory.Get("reporting"))
	}
	planter, err := engine.New(opts)
	if err != nil {
		driver.Close()
		return err
	}
	defer planter.Close()

	if commands != nil {
		if err := commands.start(ctx, planter); err != nil {
			log.WithError(err).Warn("remote commands disabled")
		}
	}

	var server *http.Server
	if configuration.API.Listen != "" {
		router := api.NewRouter(planter, m.Handler(), logrusFactory.Get("api"))
		server = &http.Server{
			Addr:              configuration.API.Listen,
			Handler:           handlers.LoggingHandler(log.Writer(), router),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.WithField("listen", server.Addr).Info("operator api listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("operator api stopped")
			}
		}()
	}

	err = planter.Run(ctx)
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("operator api shutdown")
		}
	}
	return err
}

// status takes one reading and prints the status document without watering.
func status(configuration entities.PlanterConfig, logrusFactory *logging.Logrus) error {
	driver, err := newDriver(configuration, logrusFactory)
	if err != nil {
		return err
	}
	planter, err := engine.New(engineOptions(configuration, driver, logrusFactory))
	if err != nil {
		driver.Close()
		return err
	}
	defer planter.Close()

	planter.ReadSensors()
	planter.ValidateSensorReadings()
	planter.CheckPlantsNeedingWater()
	document, err := planter.StatusJSON()
	if err != nil {
		return err
	}
	fmt.Println(string(document))
	return nil
}

func water(ctx context.Context, configuration entities.PlanterConfig, logrusFactory *logging.Logrus, position int) error {
	driver, err := newDriver(configuration, logrusFactory)
	if err != nil {
		return err
	}
	planter, err := engine.New(engineOptions(configuration, driver, logrusFactory))
	if err != nil {
		driver.Close()
		return err
	}
	defer planter.Close()

	if err := planter.ManualWater(ctx, position); err != nil {
		return err
	}
	logrusFactory.Get("main").WithFields(logrus.Fields{"position": position}).Info("plant watered")
	return nil
}
