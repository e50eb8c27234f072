package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	Pump1 = 1
	Pump2 = 2
)

// PumpStatus is the shared pump bookkeeping. Active flags are only true
// while a pump command is running.
type PumpStatus struct {
	Pump1Active bool      `json:"pump1_active"`
	Pump2Active bool      `json:"pump2_active"`
	LastWatered time.Time `json:"last_watered"`
}

type WateringSource string

const (
	WateringAuto   WateringSource = "auto"
	WateringManual WateringSource = "manual"
)

type WateringResult string

const (
	WateringSucceeded WateringResult = "success"
	WateringFailed    WateringResult = "failed"
	WateringRefused   WateringResult = "refused"
)

// WateringEvent records one watering attempt.
type WateringEvent struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Plant           string         `json:"plant"`
	Position        int            `json:"position"`
	Pump            int            `json:"pump"`
	WaterAmount     float64        `json:"water_amount"`
	DurationSeconds float64        `json:"duration_seconds"`
	Source          WateringSource `json:"source"`
	Result          WateringResult `json:"result"`
	Reason          string         `json:"reason,omitempty"`
}

// NewWateringEvent starts an event for the plant; callers set Result and Reason.
func NewWateringEvent(plant Plant, pump int, duration time.Duration, source WateringSource, at time.Time) WateringEvent {
	return WateringEvent{
		ID:              uuid.NewString(),
		Timestamp:       at,
		Plant:           plant.Name,
		Position:        plant.Position,
		Pump:            pump,
		WaterAmount:     plant.WaterAmount,
		DurationSeconds: duration.Seconds(),
		Source:          source,
	}
}
