package utils

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	envSimulation = "PLANTER_SIMULATION"
	envInterval   = "PLANTER_INTERVAL"
	envReportURL  = "PLANTER_REPORT_URL"
	envLogLevel   = "PLANTER_LOG_LEVEL"
)

type config interface {
	entities.PlanterConfig | []entities.Plant
}

func readTextFile(filepathName string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(filepathName))
}

// ConfigurationParser decodes the YAML file over configEntity, so keys absent
// from the file keep the values already set.
func ConfigurationParser[T config](filepathName string, configEntity T) (T, error) {
	fileContent, err := readTextFile(filepathName)
	if err != nil {
		return configEntity, err
	}

	err = yaml.UnmarshalStrict(fileContent, &configEntity)
	return configEntity, err
}

// LoadConfiguration reads the planter configuration from filepathName on top of
// the defaults and applies environment overrides. An empty path skips the file.
func LoadConfiguration(filepathName string) (entities.PlanterConfig, error) {
	configuration := entities.DefaultPlanterConfig()
	var err error
	if filepathName != "" {
		configuration, err = ConfigurationParser(filepathName, configuration)
		if err != nil {
			return configuration, errors.Wrapf(err, "parse configuration %s", filepathName)
		}
	}

	simulation, err := strconv.ParseBool(GetValueFromEnvironmentVariable(envSimulation, strconv.FormatBool(configuration.Simulation)))
	if err != nil {
		return configuration, errors.Wrap(err, envSimulation)
	}
	configuration.Simulation = simulation

	interval, err := strconv.Atoi(GetValueFromEnvironmentVariable(envInterval, strconv.Itoa(configuration.Monitor.IntervalSeconds)))
	if err != nil {
		return configuration, errors.Wrap(err, envInterval)
	}
	configuration.Monitor.IntervalSeconds = interval
	configuration.Reporting.URL = GetValueFromEnvironmentVariable(envReportURL, configuration.Reporting.URL)
	configuration.LogLevel = GetValueFromEnvironmentVariable(envLogLevel, configuration.LogLevel)

	return configuration, Validate(configuration)
}

// Validate rejects configurations the controller cannot run with.
func Validate(configuration entities.PlanterConfig) error {
	if configuration.Monitor.IntervalSeconds <= 0 {
		return errors.Errorf("monitor interval must be positive, got %d", configuration.Monitor.IntervalSeconds)
	}
	if configuration.Monitor.WateringPauseSeconds < 0 {
		return errors.New("watering pause cannot be negative")
	}
	if configuration.Safety.MaxPumpSeconds < 0 || configuration.Safety.MinTankPercent < 0 {
		return errors.New("safety limits cannot be negative")
	}
	if len(configuration.Plants) > entities.MaxPlants {
		return errors.Errorf("at most %d plants are supported, got %d", entities.MaxPlants, len(configuration.Plants))
	}
	return nil
}

// GetValueFromEnvironmentVariable returns the variable value or defaultValue when unset.
func GetValueFromEnvironmentVariable(variableName, defaultValue string) string {
	value := os.Getenv(variableName)
	if value != "" {
		return value
	}
	return defaultValue
}
