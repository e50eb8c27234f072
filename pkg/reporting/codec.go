// Package reporting builds the JSON documents consumed by the planter website and pushes them over HTTP.
package reporting

import (
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
)

// TimestampFormat is the local time layout used in every document.
const TimestampFormat = "2006-01-02T15:04:05"

const (
	hardwareOperational = "operational"
	hardwareSimulation  = "simulation"
)

type SensorData struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	SoilMoisture float64 `json:"soil_moisture"`
	Light        float64 `json:"light"`
	WaterLevel   float64 `json:"water_level"`
}

type ReportPumpStatus struct {
	Pump1       bool   `json:"pump1"`
	Pump2       bool   `json:"pump2"`
	LastWatered string `json:"last_watered"`
}

// Report is the document pushed after every monitoring cycle.
type Report struct {
	Timestamp   string           `json:"timestamp"`
	SensorData  SensorData       `json:"sensor_data"`
	PlantStatus []string         `json:"plant_status"`
	PumpStatus  ReportPumpStatus `json:"pump_status"`
}

type StatusPumpStatus struct {
	Pump1Active bool   `json:"pump1_active"`
	Pump2Active bool   `json:"pump2_active"`
	LastWatered string `json:"last_watered"`
}

// Status is the snapshot returned by status queries.
type Status struct {
	Timestamp               string           `json:"timestamp"`
	HardwareStatus          string           `json:"hardware_status"`
	SimulationMode          bool             `json:"simulation_mode"`
	LastSensorReading       SensorData       `json:"last_sensor_reading"`
	ActivePlantsCount       int              `json:"active_plants_count"`
	PlantsNeedingWaterCount int              `json:"plants_needing_water_count"`
	PumpStatus              StatusPumpStatus `json:"pump_status"`
	SensorHistoryCount      int              `json:"sensor_history_count"`
	WebInterfaceConnected   bool             `json:"web_interface_connected"`
}

// Snapshot is the engine state a Status document is built from.
type Snapshot struct {
	Now                   time.Time
	Simulation            bool
	LastReading           entities.SensorReading
	ActivePlants          int
	PlantsNeedingWater    int
	Pumps                 entities.PumpStatus
	HistoryLength         int
	WebInterfaceConnected bool
}

// FormatTimestamp renders t in local time. The zero time renders as an empty string.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimestampFormat)
}

func NewSensorData(reading entities.SensorReading) SensorData {
	return SensorData{
		Temperature:  reading.Temperature,
		Humidity:     reading.Humidity,
		SoilMoisture: reading.SoilMoisture,
		Light:        reading.Light,
		WaterLevel:   reading.WaterTankPercentage,
	}
}

// NewReport builds the cycle report. needingWater keeps roster order.
func NewReport(at time.Time, reading entities.SensorReading, needingWater []entities.Plant, pumps entities.PumpStatus) Report {
	names := make([]string, 0, len(needingWater))
	for _, plant := range needingWater {
		names = append(names, plant.Name)
	}
	return Report{
		Timestamp:   FormatTimestamp(at),
		SensorData:  NewSensorData(reading),
		PlantStatus: names,
		PumpStatus: ReportPumpStatus{
			Pump1:       pumps.Pump1Active,
			Pump2:       pumps.Pump2Active,
			LastWatered: FormatTimestamp(pumps.LastWatered),
		},
	}
}

func NewStatus(snapshot Snapshot) Status {
	hardware := hardwareOperational
	if snapshot.Simulation {
		hardware = hardwareSimulation
	}
	return Status{
		Timestamp:               FormatTimestamp(snapshot.Now),
		HardwareStatus:          hardware,
		SimulationMode:          snapshot.Simulation,
		LastSensorReading:       NewSensorData(snapshot.LastReading),
		ActivePlantsCount:       snapshot.ActivePlants,
		PlantsNeedingWaterCount: snapshot.PlantsNeedingWater,
		PumpStatus: StatusPumpStatus{
			Pump1Active: snapshot.Pumps.Pump1Active,
			Pump2Active: snapshot.Pumps.Pump2Active,
			LastWatered: FormatTimestamp(snapshot.Pumps.LastWatered),
		},
		SensorHistoryCount:    snapshot.HistoryLength,
		WebInterfaceConnected: snapshot.WebInterfaceConnected,
	}
}
