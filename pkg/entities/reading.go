package entities

import "time"

// Sensor names a physical sensor group that can fail independently.
type Sensor string

const (
	SensorTemperatureHumidity Sensor = "temperature_humidity"
	SensorSoilMoisture        Sensor = "soil_moisture"
	SensorLight               Sensor = "light"
	SensorWaterLevel          Sensor = "water_level"
)

// WaterLevel holds the three tank contacts. true means the contact is wet.
type WaterLevel struct {
	Top    bool `json:"top"`
	Middle bool `json:"middle"`
	Bottom bool `json:"bottom"`
}

// SensorReading is the aggregate produced once per monitoring cycle.
// Failed sensors leave their fields zero valued and are listed in Faults.
type SensorReading struct {
	Timestamp           time.Time `json:"timestamp"`
	Temperature         float64   `json:"temperature"`
	Humidity            float64   `json:"humidity"`
	SoilMoisture        float64   `json:"soil_moisture"`
	Light               float64   `json:"light"`
	WaterLevelTop       bool      `json:"water_level_top"`
	WaterLevelMiddle    bool      `json:"water_level_middle"`
	WaterLevelBottom    bool      `json:"water_level_bottom"`
	WaterTankPercentage float64   `json:"water_tank_percentage"`
	Faults              []Sensor  `json:"faults,omitempty"`
}

// HasFault reports whether the given sensor failed while producing the reading.
func (r SensorReading) HasFault(sensor Sensor) bool {
	for _, fault := range r.Faults {
		if fault == sensor {
			return true
		}
	}
	return false
}

// WaterLevel returns the tank contacts of the reading.
func (r SensorReading) WaterLevel() WaterLevel {
	return WaterLevel{Top: r.WaterLevelTop, Middle: r.WaterLevelMiddle, Bottom: r.WaterLevelBottom}
}
