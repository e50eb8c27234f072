package mocks

import (
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/stretchr/testify/mock"
)

type DriverMock struct {
	mock.Mock
}

func (d *DriverMock) ReadTemperatureHumidity() (float64, float64, error) {
	args := d.Called()
	return args.Get(0).(float64), args.Get(1).(float64), args.Error(2)
}

func (d *DriverMock) ReadSoilMoisture() (float64, error) {
	args := d.Called()
	return args.Get(0).(float64), args.Error(1)
}

func (d *DriverMock) ReadLight() (float64, error) {
	args := d.Called()
	return args.Get(0).(float64), args.Error(1)
}

func (d *DriverMock) ReadWaterLevel() (entities.WaterLevel, error) {
	args := d.Called()
	return args.Get(0).(entities.WaterLevel), args.Error(1)
}

func (d *DriverMock) ControlPump(pump int, duration time.Duration) error {
	args := d.Called(pump, duration)
	return args.Error(0)
}

func (d *DriverMock) SetStatus(indicator entities.Indicator) error {
	args := d.Called(indicator)
	return args.Error(0)
}

func (d *DriverMock) ReadAll() entities.SensorReading {
	args := d.Called()
	return args.Get(0).(entities.SensorReading)
}

func (d *DriverMock) PumpStatus() entities.PumpStatus {
	args := d.Called()
	return args.Get(0).(entities.PumpStatus)
}

func (d *DriverMock) Simulated() bool {
	args := d.Called()
	return args.Bool(0)
}

func (d *DriverMock) Close() error {
	args := d.Called()
	return args.Error(0)
}
