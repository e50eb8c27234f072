// Package hardware drives the planter sensors and actuators, either through
// periph.io peripherals or through a seeded simulator with the same interface.
package hardware

import (
	"sync"
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/clock"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidPump = errors.New("invalid pump number")
	ErrChecksum    = errors.New("dht22 checksum mismatch")
	ErrUnknownLine = errors.New("gpio line not found")
	ErrReleased    = errors.New("hardware already released")
)

// Driver is the uniform sensor and actuator surface used by the engine.
type Driver interface {
	ReadTemperatureHumidity() (temperature, humidity float64, err error)
	ReadSoilMoisture() (float64, error)
	ReadLight() (float64, error)
	ReadWaterLevel() (entities.WaterLevel, error)
	ControlPump(pump int, duration time.Duration) error
	SetStatus(indicator entities.Indicator) error
	ReadAll() entities.SensorReading
	PumpStatus() entities.PumpStatus
	Simulated() bool
	Close() error
}

type Options struct {
	Simulation bool
	// Seed feeds the simulator. Zero picks a time based seed.
	Seed  int64
	Clock clock.Clock
	Log   *logrus.Entry
}

// New returns a simulator or claims every peripheral of DefaultPinout.
// In hardware mode a claim failure releases what was already claimed and returns no driver.
func New(opts Options) (Driver, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Simulation {
		return NewSimulator(opts.Seed, opts.Clock, opts.Log), nil
	}
	peripheral, err := NewPeripheral(DefaultPinout(), opts.Clock, opts.Log)
	if err != nil {
		return nil, err
	}
	return peripheral, nil
}

type sensors interface {
	ReadTemperatureHumidity() (float64, float64, error)
	ReadSoilMoisture() (float64, error)
	ReadLight() (float64, error)
	ReadWaterLevel() (entities.WaterLevel, error)
}

// readAll reads every sensor in sequence. A failed sensor leaves zero values and a fault entry.
func readAll(s sensors, clk clock.Clock, log *logrus.Entry) entities.SensorReading {
	var reading entities.SensorReading

	temperature, humidity, err := s.ReadTemperatureHumidity()
	if err != nil {
		log.WithError(err).Warn("temperature/humidity read failed")
		reading.Faults = append(reading.Faults, entities.SensorTemperatureHumidity)
	} else {
		reading.Temperature, reading.Humidity = temperature, humidity
	}

	moisture, err := s.ReadSoilMoisture()
	if err != nil {
		log.WithError(err).Warn("soil moisture read failed")
		reading.Faults = append(reading.Faults, entities.SensorSoilMoisture)
	} else {
		reading.SoilMoisture = moisture
	}

	light, err := s.ReadLight()
	if err != nil {
		log.WithError(err).Warn("light read failed")
		reading.Faults = append(reading.Faults, entities.SensorLight)
	} else {
		reading.Light = light
	}

	level, err := s.ReadWaterLevel()
	if err != nil {
		log.WithError(err).Warn("water level read failed")
		reading.Faults = append(reading.Faults, entities.SensorWaterLevel)
	} else {
		reading.WaterLevelTop = level.Top
		reading.WaterLevelMiddle = level.Middle
		reading.WaterLevelBottom = level.Bottom
	}

	reading.WaterTankPercentage = TankPercentage(reading.WaterLevel())
	reading.Timestamp = clk.Now()
	return reading
}

// pumpState is the pump bookkeeping shared by both drivers.
type pumpState struct {
	mu          sync.Mutex
	active      [2]bool
	lastStarted time.Time
}

func validPump(pump int) error {
	if pump != entities.Pump1 && pump != entities.Pump2 {
		return errors.Wrapf(ErrInvalidPump, "pump %d", pump)
	}
	return nil
}

func (s *pumpState) start(pump int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[pump-1] = true
	s.lastStarted = at
}

func (s *pumpState) stop(pump int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[pump-1] = false
}

// PumpStatus returns the active flags and the start time of the last pump command.
func (s *pumpState) PumpStatus() entities.PumpStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.PumpStatus{
		Pump1Active: s.active[0],
		Pump2Active: s.active[1],
		LastWatered: s.lastStarted,
	}
}
