package engine

import (
	"testing"
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 8, 8, 0, 0, 0, time.Local)

func TestNeedsWaterAtExactlyFrequencyDays(t *testing.T) {
	plant := entities.Plant{WateringFrequency: 7, Active: true, LastWatered: now.Add(-7 * secondsPerDay * time.Second)}
	assert.True(t, NeedsWater(plant, now))
}

func TestNeedsWaterJustBeforeBoundary(t *testing.T) {
	plant := entities.Plant{WateringFrequency: 7, Active: true, LastWatered: now.Add(-(6*secondsPerDay + 1) * time.Second)}
	assert.False(t, NeedsWater(plant, now))

	plant.LastWatered = now.Add(-(7*secondsPerDay - 1) * time.Second)
	assert.False(t, NeedsWater(plant, now))
}

func TestNeedsWaterWhenNeverWateredThenDue(t *testing.T) {
	assert.True(t, NeedsWater(entities.Plant{WateringFrequency: 14, Active: true}, now))
}

func TestNeedsWaterWhenInactiveThenNotDue(t *testing.T) {
	assert.False(t, NeedsWater(entities.Plant{WateringFrequency: 1, Active: false}, now))
}

func TestPlantsNeedingWaterKeepsRosterOrder(t *testing.T) {
	plants := []entities.Plant{
		{Name: "a", Position: 3, WateringFrequency: 7, Active: true},
		{Name: "b", Position: 1, WateringFrequency: 7, Active: true, LastWatered: now.Add(-time.Hour)},
		{Name: "c", Position: 0, WateringFrequency: 1, Active: true, LastWatered: now.Add(-48 * time.Hour)},
	}
	due := PlantsNeedingWater(plants, now)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].Name)
	assert.Equal(t, "c", due[1].Name)
}

func TestBandsAreClosedIntervals(t *testing.T) {
	assert.Equal(t, entities.StatusOK, SoilMoistureBand.Check(20.0).Status)
	assert.Equal(t, entities.StatusOK, SoilMoistureBand.Check(70.0).Status)
	assert.Equal(t, entities.StatusCheck, SoilMoistureBand.Check(19.99).Status)
	assert.Equal(t, entities.StatusCheck, SoilMoistureBand.Check(70.01).Status)

	assert.Equal(t, entities.StatusOK, TemperatureBand.Check(15.0).Status)
	assert.Equal(t, entities.StatusOK, HumidityBand.Check(80.0).Status)
	assert.Equal(t, entities.StatusOK, LightBand.Check(500.0).Status)
	assert.Equal(t, entities.StatusCheck, LightBand.Check(500.1).Status)
}

func TestValidateOnlyActivePlants(t *testing.T) {
	plants := []entities.Plant{
		{Name: "Snake Plant", Position: 0, Active: true},
		{Name: "Cactus", Position: 1, Active: false},
	}
	reading := entities.SensorReading{SoilMoisture: 10, Temperature: 22, Humidity: 50, Light: 200}

	validations := Validate(plants, reading)
	require.Len(t, validations, 1)
	assert.Equal(t, "Snake Plant", validations[0].Plant)
	assert.Equal(t, entities.Validation{Value: 10, Status: entities.StatusCheck}, validations[0].SoilMoisture)
	assert.Equal(t, entities.StatusOK, validations[0].Temperature.Status)
	assert.True(t, validations[0].NeedsAttention())
}

func TestPumpRouting(t *testing.T) {
	assert.Equal(t, entities.Pump1, PumpFor(4))
	assert.Equal(t, entities.Pump2, PumpFor(5))
	assert.Equal(t, entities.Pump1, PumpFor(0))
}

func TestPumpDurationAtHundredMillilitresPerSecond(t *testing.T) {
	assert.Equal(t, 2500*time.Millisecond, PumpDuration(250))
	assert.Equal(t, 3*time.Second, PumpDuration(300))
	assert.Equal(t, 125*time.Millisecond, PumpDuration(12.5))
	assert.Equal(t, time.Duration(0), PumpDuration(0))
}
