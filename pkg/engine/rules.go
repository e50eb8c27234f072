package engine

import (
	"math"
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
)

const (
	secondsPerDay = 86400
	// flowRate is the pump throughput in millilitres per second.
	flowRate = 100
)

// Band is a closed interval of acceptable values.
type Band struct {
	Min float64
	Max float64
}

func (b Band) Check(value float64) entities.Validation {
	status := entities.StatusCheck
	if value >= b.Min && value <= b.Max {
		status = entities.StatusOK
	}
	return entities.Validation{Value: value, Status: status}
}

var (
	SoilMoistureBand = Band{Min: 20.0, Max: 70.0}
	TemperatureBand  = Band{Min: 15.0, Max: 30.0}
	HumidityBand     = Band{Min: 30.0, Max: 80.0}
	LightBand        = Band{Min: 50.0, Max: 500.0}
)

// Validate checks the shared reading once per active plant, in roster order.
func Validate(plants []entities.Plant, reading entities.SensorReading) []entities.PlantValidation {
	validations := make([]entities.PlantValidation, 0, len(plants))
	for _, plant := range plants {
		if !plant.Active {
			continue
		}
		validations = append(validations, entities.PlantValidation{
			Plant:        plant.Name,
			Position:     plant.Position,
			SoilMoisture: SoilMoistureBand.Check(reading.SoilMoisture),
			Temperature:  TemperatureBand.Check(reading.Temperature),
			Humidity:     HumidityBand.Check(reading.Humidity),
			Light:        LightBand.Check(reading.Light),
		})
	}
	return validations
}

// NeedsWater reports whether an active plant is due: never watered, or at least
// WateringFrequency whole days elapsed since the last watering.
func NeedsWater(plant entities.Plant, now time.Time) bool {
	if !plant.Active {
		return false
	}
	if !plant.Watered() {
		return true
	}
	days := math.Floor(now.Sub(plant.LastWatered).Seconds() / secondsPerDay)
	return days >= float64(plant.WateringFrequency)
}

// PlantsNeedingWater filters the roster in order.
func PlantsNeedingWater(plants []entities.Plant, now time.Time) []entities.Plant {
	var due []entities.Plant
	for _, plant := range plants {
		if NeedsWater(plant, now) {
			due = append(due, plant)
		}
	}
	return due
}

// PumpFor routes even positions to pump 1 and odd positions to pump 2.
func PumpFor(position int) int {
	return position%2 + 1
}

// PumpDuration converts a water amount in millilitres to pump run time.
func PumpDuration(waterAmount float64) time.Duration {
	return time.Duration(waterAmount / flowRate * float64(time.Second))
}
