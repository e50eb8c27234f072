package entities

import "time"

const (
	// MaxPlants is the roster capacity.
	MaxPlants = 10
	// MaxPosition is the highest physical position a plant can occupy.
	MaxPosition = MaxPlants - 1
)

// Plant is one potted plant wired to the watering system.
// WaterAmount is expressed in millilitres, WateringFrequency in whole days.
// A zero LastWatered means the plant was never watered.
type Plant struct {
	Name              string    `yaml:"name" json:"name"`
	Position          int       `yaml:"position" json:"position"`
	WaterAmount       float64   `yaml:"water_amount" json:"water_amount"`
	WateringFrequency int       `yaml:"watering_frequency" json:"watering_frequency"`
	LastWatered       time.Time `yaml:"last_watered,omitempty" json:"last_watered"`
	Active            bool      `yaml:"active" json:"active"`
}

// Watered reports whether the plant has ever been watered.
func (p Plant) Watered() bool {
	return !p.LastWatered.IsZero()
}

// UnmarshalYAML treats a plant without an active key as active.
func (p *Plant) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain Plant
	raw := plain{Active: true}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*p = Plant(raw)
	return nil
}

// DefaultPlants returns the roster used when no plants are configured.
func DefaultPlants() []Plant {
	return []Plant{
		{Name: "Snake Plant", Position: 0, WaterAmount: 250, WateringFrequency: 14, Active: true},
		{Name: "Peace Lily", Position: 1, WaterAmount: 300, WateringFrequency: 7, Active: true},
		{Name: "Spider Plant", Position: 2, WaterAmount: 200, WateringFrequency: 7, Active: true},
	}
}
