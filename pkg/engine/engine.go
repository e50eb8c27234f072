// Package engine runs the planter monitoring cycle: read sensors, validate,
// water the plants that are due and report the outcome.
package engine

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/clock"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/hardware"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/metrics"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/reporting"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoDriver       = errors.New("engine requires a hardware driver")
	ErrPlantNotFound  = errors.New("no plant at position")
	ErrTankTooLow     = errors.New("water tank below minimum level")
	ErrAlreadyStarted = errors.New("engine already started")
	ErrClosed         = errors.New("engine closed")
)

const DefaultInterval = 300 * time.Second

type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopped
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "closed"
	}
}

// Reporter delivers the cycle report to the website.
type Reporter interface {
	Push(ctx context.Context, report reporting.Report) error
}

// Telemetry fans readings and watering events out to the optional sinks.
type Telemetry interface {
	Transmit(ctx context.Context, reading entities.SensorReading)
	RecordWatering(ctx context.Context, event entities.WateringEvent)
}

// RosterStore persists plant state between runs.
type RosterStore interface {
	Load() ([]entities.Plant, error)
	Save(plants []entities.Plant) error
}

type Options struct {
	Driver hardware.Driver
	Clock  clock.Clock
	Log    *logrus.Entry
	// Plants seeds the roster. Nil uses entities.DefaultPlants.
	Plants        []entities.Plant
	Interval      time.Duration
	WateringPause time.Duration
	// MaxPumpDuration caps a single pump run. Zero leaves it uncapped.
	MaxPumpDuration time.Duration
	// MinTankPercent refuses watering below this tank level. Zero disables the check.
	MinTankPercent float64
	Reporter       Reporter
	Telemetry      Telemetry
	Store          RosterStore
	Metrics        *metrics.Metrics
}

type Engine struct {
	driver    hardware.Driver
	clock     clock.Clock
	log       *logrus.Entry
	reporter  Reporter
	telemetry Telemetry
	store     RosterStore
	metrics   *metrics.Metrics

	interval        time.Duration
	wateringPause   time.Duration
	maxPumpDuration time.Duration
	minTankPercent  float64

	state   atomic.Int32
	running atomic.Bool
	// pumpMu serialises pump commands between the worker and manual requests.
	pumpMu sync.Mutex

	mu           sync.RWMutex
	roster       *Roster
	history      *Ring[entities.SensorReading]
	lastReading  entities.SensorReading
	validations  []entities.PlantValidation
	needingWater []entities.Plant
	lastWatered  time.Time
}

func New(opts Options) (*Engine, error) {
	if opts.Driver == nil {
		return nil, ErrNoDriver
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	plants := opts.Plants
	if plants == nil {
		plants = entities.DefaultPlants()
	}
	roster, err := NewRoster(plants)
	if err != nil {
		return nil, errors.Wrap(err, "build plant roster")
	}

	e := &Engine{
		driver:          opts.Driver,
		clock:           opts.Clock,
		log:             opts.Log,
		reporter:        opts.Reporter,
		telemetry:       opts.Telemetry,
		store:           opts.Store,
		metrics:         opts.Metrics,
		interval:        opts.Interval,
		wateringPause:   opts.WateringPause,
		maxPumpDuration: opts.MaxPumpDuration,
		minTankPercent:  opts.MinTankPercent,
		roster:          roster,
		history:         NewRing[entities.SensorReading](HistoryCapacity),
	}
	if err := e.restore(); err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"plants":     roster.Len(),
		"simulation": opts.Driver.Simulated(),
		"interval":   opts.Interval,
	}).Info("engine initialized")
	return e, nil
}

// restore merges persisted LastWatered values by position.
func (e *Engine) restore() error {
	if e.store == nil {
		return nil
	}
	saved, err := e.store.Load()
	if err != nil {
		return errors.Wrap(err, "load plant state")
	}
	for _, plant := range saved {
		if !plant.Watered() {
			continue
		}
		if e.roster.MarkWatered(plant.Position, plant.LastWatered) && plant.LastWatered.After(e.lastWatered) {
			e.lastWatered = plant.LastWatered
		}
	}
	return nil
}

// ReadSensors takes an aggregate reading and appends it to the history.
func (e *Engine) ReadSensors() entities.SensorReading {
	reading := e.driver.ReadAll()
	e.mu.Lock()
	e.history.Append(reading)
	e.lastReading = reading
	e.mu.Unlock()
	return reading
}

// ValidateSensorReadings checks the last reading for every active plant and updates the indicator.
func (e *Engine) ValidateSensorReadings() []entities.PlantValidation {
	e.mu.Lock()
	validations := Validate(e.roster.plants, e.lastReading)
	e.validations = validations
	e.mu.Unlock()

	indicator := entities.IndicatorNormal
	for _, validation := range validations {
		if validation.NeedsAttention() {
			indicator = entities.IndicatorWarning
			e.log.WithFields(logrus.Fields{
				"plant":         validation.Plant,
				"soil_moisture": validation.SoilMoisture.Status.String(),
				"temperature":   validation.Temperature.Status.String(),
				"humidity":      validation.Humidity.Status.String(),
				"light":         validation.Light.Status.String(),
			}).Warn("plant conditions out of range")
		}
	}
	if err := e.driver.SetStatus(indicator); err != nil {
		e.log.WithError(err).Warn("set status indicator")
	}
	return validations
}

// CheckPlantsNeedingWater caches and returns the plants due for watering.
func (e *Engine) CheckPlantsNeedingWater() []entities.Plant {
	now := e.clock.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.needingWater = PlantsNeedingWater(e.roster.plants, now)
	return append([]entities.Plant(nil), e.needingWater...)
}

// WaterPlant runs the pump routed to the plant position for its water amount.
// On success the plant and the shared pump status record the completion time.
func (e *Engine) WaterPlant(ctx context.Context, plant entities.Plant, source entities.WateringSource) error {
	e.pumpMu.Lock()
	defer e.pumpMu.Unlock()
	if e.State() == StateClosed {
		return ErrClosed
	}

	pump := PumpFor(plant.Position)
	duration := PumpDuration(plant.WaterAmount)
	log := e.log.WithFields(logrus.Fields{"plant": plant.Name, "position": plant.Position, "pump": pump})
	if e.maxPumpDuration > 0 && duration > e.maxPumpDuration {
		log.Warnf("pump duration %s capped to %s", duration, e.maxPumpDuration)
		duration = e.maxPumpDuration
	}
	event := entities.NewWateringEvent(plant, pump, duration, source, e.clock.Now())

	if err := e.checkTank(); err != nil {
		event.Result = entities.WateringRefused
		event.Reason = err.Error()
		e.recordWatering(ctx, event)
		log.WithError(err).Warn("watering refused")
		return err
	}

	log.Infof("watering %.1f ml for %.1f seconds", plant.WaterAmount, duration.Seconds())
	if err := e.driver.ControlPump(pump, duration); err != nil {
		event.Result = entities.WateringFailed
		event.Reason = err.Error()
		e.recordWatering(ctx, event)
		log.WithError(err).Error("watering failed")
		return errors.Wrapf(err, "water %s", plant.Name)
	}

	now := e.clock.Now()
	e.mu.Lock()
	e.roster.MarkWatered(plant.Position, now)
	e.lastWatered = now
	plants := e.roster.Plants()
	e.mu.Unlock()

	event.Result = entities.WateringSucceeded
	e.recordWatering(ctx, event)
	e.persist(plants)
	log.Info("watering completed")
	return nil
}

func (e *Engine) checkTank() error {
	if e.minTankPercent <= 0 {
		return nil
	}
	level, err := e.driver.ReadWaterLevel()
	if err != nil {
		return errors.Wrap(err, "read water level")
	}
	percentage := hardware.TankPercentage(level)
	if percentage < e.minTankPercent {
		return errors.Wrapf(ErrTankTooLow, "tank at %.1f%%, minimum %.1f%%", percentage, e.minTankPercent)
	}
	return nil
}

func (e *Engine) recordWatering(ctx context.Context, event entities.WateringEvent) {
	e.metrics.ObserveWatering(event)
	if e.telemetry != nil {
		e.telemetry.RecordWatering(ctx, event)
	}
}

func (e *Engine) persist(plants []entities.Plant) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(plants); err != nil {
		e.log.WithError(err).Warn("save plant state")
	}
}

// AutoWater waters the cached plants in order, pausing after each success.
func (e *Engine) AutoWater(ctx context.Context) int {
	e.mu.RLock()
	due := append([]entities.Plant(nil), e.needingWater...)
	e.mu.RUnlock()

	watered := 0
	for _, plant := range due {
		if err := e.WaterPlant(ctx, plant, entities.WateringAuto); err != nil {
			continue
		}
		watered++
		if e.wateringPause > 0 {
			e.clock.Sleep(e.wateringPause)
		}
	}
	return watered
}

// RunCycle performs one read, validate, water and report pass.
func (e *Engine) RunCycle(ctx context.Context) {
	reading := e.ReadSensors()
	if e.telemetry != nil {
		e.telemetry.Transmit(ctx, reading)
	}
	e.ValidateSensorReadings()
	due := e.CheckPlantsNeedingWater()
	watered := e.AutoWater(ctx)

	if e.reporter != nil {
		if err := e.reporter.Push(ctx, e.Report()); err != nil {
			e.metrics.SinkFailure("http")
			e.log.WithError(err).Warn("report not delivered")
		}
	}

	e.mu.RLock()
	historyLength := e.history.Len()
	e.mu.RUnlock()
	e.metrics.ObserveCycle(reading, historyLength, len(due))
	e.log.WithFields(logrus.Fields{
		"temperature":   reading.Temperature,
		"humidity":      reading.Humidity,
		"soil_moisture": reading.SoilMoisture,
		"light":         reading.Light,
		"tank":          reading.WaterTankPercentage,
		"due":           len(due),
		"watered":       watered,
	}).Info("monitoring cycle completed")
}

// Run executes cycles at a fixed cadence until Stop is called or ctx is done.
// The stop flag is checked at cycle boundaries; pump runs are never interrupted.
func (e *Engine) Run(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		if e.State() == StateClosed {
			return ErrClosed
		}
		return ErrAlreadyStarted
	}
	e.running.Store(true)
	defer e.state.CompareAndSwap(int32(StateRunning), int32(StateStopped))
	e.log.Info("monitoring started")

	for e.running.Load() && ctx.Err() == nil {
		started := e.clock.Now()
		e.RunCycle(ctx)
		if !e.running.Load() {
			break
		}
		wait := e.interval - e.clock.Now().Sub(started)
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
		case <-e.clock.After(wait):
		}
	}
	e.running.Store(false)
	e.log.Info("monitoring stopped")
	return nil
}

// Stop asks Run to return at the next cycle boundary.
func (e *Engine) Stop() {
	e.running.Store(false)
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

// ManualWater waters the plant at position whether or not it is active.
func (e *Engine) ManualWater(ctx context.Context, position int) error {
	e.mu.RLock()
	plant, ok := e.roster.ByPosition(position)
	e.mu.RUnlock()
	if !ok {
		e.log.WithField("position", position).Warn("manual watering: no plant at position")
		return errors.Wrapf(ErrPlantNotFound, "position %d", position)
	}
	return e.WaterPlant(ctx, plant, entities.WateringManual)
}

// Report builds the report document from the cached cycle state.
func (e *Engine) Report() reporting.Report {
	pumps := e.driver.PumpStatus()
	e.mu.RLock()
	defer e.mu.RUnlock()
	pumps.LastWatered = e.lastWatered
	return reporting.NewReport(e.lastReading.Timestamp, e.lastReading, e.needingWater, pumps)
}

func (e *Engine) Status() reporting.Status {
	pumps := e.driver.PumpStatus()
	e.mu.RLock()
	defer e.mu.RUnlock()
	pumps.LastWatered = e.lastWatered
	return reporting.NewStatus(reporting.Snapshot{
		Now:                   e.clock.Now(),
		Simulation:            e.driver.Simulated(),
		LastReading:           e.lastReading,
		ActivePlants:          e.roster.ActiveCount(),
		PlantsNeedingWater:    len(e.needingWater),
		Pumps:                 pumps,
		HistoryLength:         e.history.Len(),
		WebInterfaceConnected: e.reporter != nil,
	})
}

// StatusJSON returns the status snapshot document.
func (e *Engine) StatusJSON() ([]byte, error) {
	return json.Marshal(e.Status())
}

// History returns the retained readings, oldest first.
func (e *Engine) History() []entities.SensorReading {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.Items()
}

func (e *Engine) Plants() []entities.Plant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roster.Plants()
}

func (e *Engine) Validations() []entities.PlantValidation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]entities.PlantValidation(nil), e.validations...)
}

// Close stops the loop and releases the hardware. The engine cannot be reused.
func (e *Engine) Close() error {
	e.running.Store(false)
	if State(e.state.Swap(int32(StateClosed))) == StateClosed {
		return nil
	}
	// waits for an in-flight pump command
	e.pumpMu.Lock()
	defer e.pumpMu.Unlock()
	if err := e.driver.SetStatus(entities.IndicatorOff); err != nil {
		e.log.WithError(err).Debug("clear status indicator")
	}
	return errors.Wrap(e.driver.Close(), "release hardware")
}
