package network

import "github.com/janael-pinheiro/planter-controller-golang/pkg/entities"

type ReadingSent struct {
	DeviceID string                 `json:"device_id"`
	Reading  entities.SensorReading `json:"reading"`
}

type WateringEventSent struct {
	DeviceID string                 `json:"device_id"`
	Event    entities.WateringEvent `json:"event"`
}

const commandWater = "water"

// Command is a remote request received on the device command queue.
type Command struct {
	Action   string `json:"action"`
	Position int    `json:"position"`
}

type CommandResult struct {
	DeviceID string `json:"device_id"`
	Action   string `json:"action"`
	Position int    `json:"position"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}
