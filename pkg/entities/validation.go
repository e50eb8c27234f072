package entities

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Status is the outcome of checking one value against its acceptable band.
type Status int

const (
	StatusOK Status = iota
	StatusCheck
)

func (s Status) String() string {
	if s == StatusOK {
		return "OK"
	}
	return "CHECK"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	switch value {
	case "OK":
		*s = StatusOK
	case "CHECK":
		*s = StatusCheck
	default:
		return errors.Errorf("unknown validation status %q", value)
	}
	return nil
}

// Validation pairs a measured value with its status.
type Validation struct {
	Value  float64 `json:"value"`
	Status Status  `json:"status"`
}

// PlantValidation is the per plant view of a shared sensor reading.
type PlantValidation struct {
	Plant        string     `json:"plant"`
	Position     int        `json:"position"`
	SoilMoisture Validation `json:"soil_moisture"`
	Temperature  Validation `json:"temperature"`
	Humidity     Validation `json:"humidity"`
	Light        Validation `json:"light"`
}

// NeedsAttention reports whether any value of the validation is out of band.
func (v PlantValidation) NeedsAttention() bool {
	return v.SoilMoisture.Status == StatusCheck ||
		v.Temperature.Status == StatusCheck ||
		v.Humidity.Status == StatusCheck ||
		v.Light.Status == StatusCheck
}

// Indicator is the state shown on the status and warning lights.
type Indicator string

const (
	IndicatorNormal  Indicator = "normal"
	IndicatorWarning Indicator = "warning"
	IndicatorOff     Indicator = "off"
)
