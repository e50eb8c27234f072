package engine

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/clock"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/hardware"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/hardware/mocks"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/reporting"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func discardLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

type reporterStub struct {
	reports []reporting.Report
	err     error
	onPush  func()
}

func (r *reporterStub) Push(ctx context.Context, report reporting.Report) error {
	r.reports = append(r.reports, report)
	if r.onPush != nil {
		r.onPush()
	}
	return r.err
}

type telemetryStub struct {
	readings []entities.SensorReading
	events   []entities.WateringEvent
}

func (t *telemetryStub) Transmit(ctx context.Context, reading entities.SensorReading) {
	t.readings = append(t.readings, reading)
}

func (t *telemetryStub) RecordWatering(ctx context.Context, event entities.WateringEvent) {
	t.events = append(t.events, event)
}

type storeStub struct {
	loaded []entities.Plant
	saved  [][]entities.Plant
}

func (s *storeStub) Load() ([]entities.Plant, error) { return s.loaded, nil }

func (s *storeStub) Save(plants []entities.Plant) error {
	s.saved = append(s.saved, plants)
	return nil
}

func comfortableReading(at time.Time) entities.SensorReading {
	return entities.SensorReading{
		Timestamp:           at,
		Temperature:         22,
		Humidity:            50,
		SoilMoisture:        40,
		Light:               200,
		WaterLevelTop:       true,
		WaterTankPercentage: 100,
	}
}

type engineSuite struct {
	suite.Suite
	driver    *mocks.DriverMock
	clock     *clock.Fake
	reporter  *reporterStub
	telemetry *telemetryStub
	store     *storeStub
	engine    *Engine
}

func (s *engineSuite) options() Options {
	return Options{
		Driver:          s.driver,
		Clock:           s.clock,
		Log:             discardLogger(),
		Interval:        time.Minute,
		WateringPause:   2 * time.Second,
		MaxPumpDuration: 30 * time.Second,
		MinTankPercent:  33.3,
		Reporter:        s.reporter,
		Telemetry:       s.telemetry,
		Store:           s.store,
	}
}

func (s *engineSuite) SetupTest() {
	s.driver = new(mocks.DriverMock)
	s.driver.On("Simulated").Return(false).Maybe()
	s.driver.On("PumpStatus").Return(entities.PumpStatus{}).Maybe()
	s.driver.On("SetStatus", mock.Anything).Return(nil).Maybe()
	s.clock = clock.NewFake(now)
	s.reporter = &reporterStub{}
	s.telemetry = &telemetryStub{}
	s.store = &storeStub{}

	var err error
	s.engine, err = New(s.options())
	s.Require().NoError(err)
}

func (s *engineSuite) TestRunCycleWatersEveryDuePlantInOrder() {
	s.driver.On("ReadAll").Return(comfortableReading(now))
	s.driver.On("ReadWaterLevel").Return(entities.WaterLevel{Top: true}, nil)
	s.driver.On("ControlPump", entities.Pump1, 2500*time.Millisecond).Return(nil).Once()
	s.driver.On("ControlPump", entities.Pump2, 3*time.Second).Return(nil).Once()
	s.driver.On("ControlPump", entities.Pump1, 2*time.Second).Return(nil).Once()

	s.engine.RunCycle(context.Background())

	s.driver.AssertExpectations(s.T())
	for _, plant := range s.engine.Plants() {
		assert.True(s.T(), plant.Watered(), plant.Name)
	}
	assert.Equal(s.T(), []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, s.clock.Sleeps())

	s.Require().Len(s.reporter.reports, 1)
	assert.Equal(s.T(), []string{"Snake Plant", "Peace Lily", "Spider Plant"}, s.reporter.reports[0].PlantStatus)
	assert.Equal(s.T(), reporting.FormatTimestamp(now), s.reporter.reports[0].Timestamp)
	assert.Equal(s.T(), reporting.FormatTimestamp(now.Add(4*time.Second)), s.reporter.reports[0].PumpStatus.LastWatered)

	assert.Len(s.T(), s.telemetry.readings, 1)
	s.Require().Len(s.telemetry.events, 3)
	for _, event := range s.telemetry.events {
		assert.Equal(s.T(), entities.WateringSucceeded, event.Result)
		assert.Equal(s.T(), entities.WateringAuto, event.Source)
	}
	assert.Len(s.T(), s.store.saved, 3)
	s.driver.AssertCalled(s.T(), "SetStatus", entities.IndicatorNormal)
}

func (s *engineSuite) TestRunCycleWhenNothingDueThenNoPump() {
	for _, plant := range entities.DefaultPlants() {
		s.engine.roster.MarkWatered(plant.Position, now.Add(-24*time.Hour))
	}
	s.driver.On("ReadAll").Return(comfortableReading(now))

	s.engine.RunCycle(context.Background())

	s.driver.AssertNotCalled(s.T(), "ControlPump", mock.Anything, mock.Anything)
	assert.Empty(s.T(), s.engine.CheckPlantsNeedingWater())
	assert.Equal(s.T(), []string{}, s.reporter.reports[0].PlantStatus)
}

func (s *engineSuite) TestRunCycleWhenOutOfBandThenWarningIndicator() {
	for _, plant := range entities.DefaultPlants() {
		s.engine.roster.MarkWatered(plant.Position, now)
	}
	reading := comfortableReading(now)
	reading.SoilMoisture = 10
	s.driver.On("ReadAll").Return(reading)

	s.engine.RunCycle(context.Background())

	s.driver.AssertCalled(s.T(), "SetStatus", entities.IndicatorWarning)
	validations := s.engine.Validations()
	s.Require().Len(validations, 3)
	assert.Equal(s.T(), entities.StatusCheck, validations[0].SoilMoisture.Status)
}

func (s *engineSuite) TestRunCycleWhenReportFailsThenCycleCompletes() {
	for _, plant := range entities.DefaultPlants() {
		s.engine.roster.MarkWatered(plant.Position, now)
	}
	s.reporter.err = errors.New("connection refused")
	s.driver.On("ReadAll").Return(comfortableReading(now))

	s.engine.RunCycle(context.Background())
	assert.Len(s.T(), s.engine.History(), 1)
}

func (s *engineSuite) TestWaterPlantWhenTankLowThenRefused() {
	s.driver.On("ReadWaterLevel").Return(entities.WaterLevel{}, nil)
	plant, _ := s.engine.roster.ByPosition(0)

	err := s.engine.WaterPlant(context.Background(), plant, entities.WateringAuto)

	assert.True(s.T(), errors.Is(err, ErrTankTooLow))
	s.driver.AssertNotCalled(s.T(), "ControlPump", mock.Anything, mock.Anything)
	s.Require().Len(s.telemetry.events, 1)
	assert.Equal(s.T(), entities.WateringRefused, s.telemetry.events[0].Result)
	stored, _ := s.engine.roster.ByPosition(0)
	assert.False(s.T(), stored.Watered())
}

func (s *engineSuite) TestWaterPlantCapsPumpDuration() {
	s.driver.On("ReadWaterLevel").Return(entities.WaterLevel{Bottom: true}, nil)
	s.driver.On("ControlPump", entities.Pump2, 30*time.Second).Return(nil).Once()
	plant := entities.Plant{Name: "Monstera", Position: 1, WaterAmount: 5000, Active: true}

	err := s.engine.WaterPlant(context.Background(), plant, entities.WateringManual)
	s.Require().NoError(err)
	s.driver.AssertExpectations(s.T())
	assert.Equal(s.T(), 30.0, s.telemetry.events[0].DurationSeconds)
}

func (s *engineSuite) TestWaterPlantWhenPumpFailsThenTimestampUnchanged() {
	s.driver.On("ReadWaterLevel").Return(entities.WaterLevel{Top: true}, nil)
	s.driver.On("ControlPump", entities.Pump1, 2500*time.Millisecond).Return(hardware.ErrInvalidPump)
	plant, _ := s.engine.roster.ByPosition(0)

	err := s.engine.WaterPlant(context.Background(), plant, entities.WateringAuto)

	assert.True(s.T(), errors.Is(err, hardware.ErrInvalidPump))
	stored, _ := s.engine.roster.ByPosition(0)
	assert.False(s.T(), stored.Watered())
	assert.Equal(s.T(), entities.WateringFailed, s.telemetry.events[0].Result)
	assert.Empty(s.T(), s.store.saved)
}

func (s *engineSuite) TestManualWaterWhenNoPlantThenError() {
	err := s.engine.ManualWater(context.Background(), 7)
	assert.True(s.T(), errors.Is(err, ErrPlantNotFound))
	s.driver.AssertNotCalled(s.T(), "ControlPump", mock.Anything, mock.Anything)
}

func (s *engineSuite) TestManualWaterWhenPlantInactiveThenStillWaters() {
	plants := []entities.Plant{{Name: "Fern", Position: 5, WaterAmount: 100, WateringFrequency: 3, Active: false}}
	options := s.options()
	options.Plants = plants
	engine, err := New(options)
	s.Require().NoError(err)
	s.driver.On("ReadWaterLevel").Return(entities.WaterLevel{Middle: true}, nil)
	s.driver.On("ControlPump", entities.Pump2, time.Second).Return(nil).Once()

	s.Require().NoError(engine.ManualWater(context.Background(), 5))

	stored := engine.Plants()[0]
	assert.Equal(s.T(), now, stored.LastWatered)
	assert.Equal(s.T(), entities.WateringManual, s.telemetry.events[0].Source)
}

func (s *engineSuite) TestHistoryRetainsLastFiftyReadings() {
	for i := 1; i <= 51; i++ {
		reading := comfortableReading(now)
		reading.Temperature = float64(i)
		s.driver.On("ReadAll").Return(reading).Once()
	}
	for i := 1; i <= 51; i++ {
		s.engine.ReadSensors()
	}

	history := s.engine.History()
	s.Require().Len(history, HistoryCapacity)
	assert.Equal(s.T(), 2.0, history[0].Temperature)
	assert.Equal(s.T(), 51.0, history[49].Temperature)
}

func (s *engineSuite) TestRunStopsAtCycleBoundary() {
	for _, plant := range entities.DefaultPlants() {
		s.engine.roster.MarkWatered(plant.Position, now.Add(time.Hour))
	}
	s.driver.On("ReadAll").Return(comfortableReading(now))
	s.reporter.onPush = func() {
		if len(s.reporter.reports) == 3 {
			s.engine.Stop()
		}
	}

	err := s.engine.Run(context.Background())

	s.Require().NoError(err)
	assert.Len(s.T(), s.reporter.reports, 3)
	assert.Equal(s.T(), []time.Duration{time.Minute, time.Minute}, s.clock.Sleeps())
	assert.Equal(s.T(), StateStopped, s.engine.State())
	assert.ErrorIs(s.T(), s.engine.Run(context.Background()), ErrAlreadyStarted)
}

func (s *engineSuite) TestRunWhenContextCancelledThenNoCycle() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Require().NoError(s.engine.Run(ctx))
	assert.Empty(s.T(), s.reporter.reports)
	assert.Equal(s.T(), StateStopped, s.engine.State())
}

func (s *engineSuite) TestStatusJSONAfterCycle() {
	for _, plant := range entities.DefaultPlants() {
		s.engine.roster.MarkWatered(plant.Position, now)
	}
	s.driver.On("ReadAll").Return(comfortableReading(now))
	s.engine.RunCycle(context.Background())

	data, err := s.engine.StatusJSON()
	s.Require().NoError(err)

	var status reporting.Status
	s.Require().NoError(json.Unmarshal(data, &status))
	assert.Equal(s.T(), "operational", status.HardwareStatus)
	assert.Equal(s.T(), 3, status.ActivePlantsCount)
	assert.Equal(s.T(), 0, status.PlantsNeedingWaterCount)
	assert.Equal(s.T(), 1, status.SensorHistoryCount)
	assert.Equal(s.T(), 22.0, status.LastSensorReading.Temperature)
	assert.True(s.T(), status.WebInterfaceConnected)
	assert.Equal(s.T(), "", status.PumpStatus.LastWatered)
}

func (s *engineSuite) TestCloseReleasesDriverOnce() {
	s.driver.On("Close").Return(nil).Once()

	s.Require().NoError(s.engine.Close())
	s.Require().NoError(s.engine.Close())

	s.driver.AssertNumberOfCalls(s.T(), "Close", 1)
	s.driver.AssertCalled(s.T(), "SetStatus", entities.IndicatorOff)
	assert.ErrorIs(s.T(), s.engine.Run(context.Background()), ErrClosed)
}

func (s *engineSuite) TestReportCarriesReadingTimestamp() {
	readAt := now.Add(-5 * time.Minute)
	for _, plant := range entities.DefaultPlants() {
		s.engine.roster.MarkWatered(plant.Position, now)
	}
	s.driver.On("ReadAll").Return(comfortableReading(readAt))
	s.engine.RunCycle(context.Background())
	s.clock.Advance(time.Hour)

	assert.Equal(s.T(), reporting.FormatTimestamp(readAt), s.engine.Report().Timestamp)
	s.Require().Len(s.reporter.reports, 1)
	assert.Equal(s.T(), reporting.FormatTimestamp(readAt), s.reporter.reports[0].Timestamp)
}

func (s *engineSuite) TestCloseWaitsForManualWatering() {
	started := make(chan struct{})
	release := make(chan struct{})
	released := make(chan struct{})
	s.driver.On("ReadWaterLevel").Return(entities.WaterLevel{Top: true}, nil)
	s.driver.On("ControlPump", entities.Pump2, 3*time.Second).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(nil).Once()
	s.driver.On("Close").Run(func(mock.Arguments) {
		close(released)
	}).Return(nil).Once()

	watered := make(chan error, 1)
	go func() { watered <- s.engine.ManualWater(context.Background(), 1) }()
	<-started

	closed := make(chan error, 1)
	go func() { closed <- s.engine.Close() }()

	select {
	case <-released:
		s.FailNow("hardware released while the pump was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	s.Require().NoError(<-watered)
	s.Require().NoError(<-closed)
	<-released
	assert.Equal(s.T(), StateClosed, s.engine.State())
}

func (s *engineSuite) TestManualWaterAfterCloseThenErrClosed() {
	s.driver.On("Close").Return(nil).Once()
	s.Require().NoError(s.engine.Close())

	err := s.engine.ManualWater(context.Background(), 1)

	assert.ErrorIs(s.T(), err, ErrClosed)
	s.driver.AssertNotCalled(s.T(), "ControlPump", mock.Anything, mock.Anything)
	s.driver.AssertNotCalled(s.T(), "ReadWaterLevel")
	assert.Empty(s.T(), s.telemetry.events)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(engineSuite))
}

func TestNewWhenNoDriverThenError(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoDriver)
}

func TestNewWhenDuplicatePositionThenError(t *testing.T) {
	driver := new(mocks.DriverMock)
	plants := []entities.Plant{{Name: "a", Position: 1}, {Name: "b", Position: 1}}
	_, err := New(Options{Driver: driver, Plants: plants, Log: discardLogger()})
	assert.ErrorIs(t, err, ErrPositionTaken)
}

func TestNewRestoresLastWateredFromStore(t *testing.T) {
	driver := new(mocks.DriverMock)
	driver.On("Simulated").Return(true)
	driver.On("PumpStatus").Return(entities.PumpStatus{})
	watered := now.Add(-2 * time.Hour)
	store := &storeStub{loaded: []entities.Plant{{Name: "Peace Lily", Position: 1, LastWatered: watered}, {Position: 9, LastWatered: now}}}

	engine, err := New(Options{Driver: driver, Store: store, Clock: clock.NewFake(now), Log: discardLogger()})
	require.NoError(t, err)

	plant, ok := engine.roster.ByPosition(1)
	require.True(t, ok)
	assert.Equal(t, watered, plant.LastWatered)
	assert.Equal(t, reporting.FormatTimestamp(watered), engine.Status().PumpStatus.LastWatered)
	assert.Len(t, engine.Plants(), 3)
}

func TestRunCycleWithSimulator(t *testing.T) {
	fake := clock.NewFake(now)
	simulator := hardware.NewSimulator(11, fake, discardLogger())
	telemetry := &telemetryStub{}
	engine, err := New(Options{Driver: simulator, Clock: fake, Log: discardLogger(), Telemetry: telemetry, WateringPause: 2 * time.Second})
	require.NoError(t, err)

	engine.RunCycle(context.Background())

	assert.Len(t, engine.History(), 1)
	assert.Len(t, telemetry.events, 3)
	assert.Equal(t, entities.IndicatorWarning, simulator.Indicator())
	status := engine.Status()
	assert.Equal(t, "simulation", status.HardwareStatus)
	assert.False(t, status.WebInterfaceConnected)
}
