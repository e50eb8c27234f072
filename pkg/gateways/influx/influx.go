// Package influx writes planter telemetry to InfluxDB 2.
package influx

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/pkg/errors"
)

const (
	measurementReading  = "planter_reading"
	measurementWatering = "planter_watering"
)

// pointWriter is satisfied by api.WriteAPIBlocking.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type Sink struct {
	writer   pointWriter
	close    func()
	deviceID string
}

// NewClientSink opens a blocking write API on bucket.
func NewClientSink(url, token, org, bucket, deviceID string) *Sink {
	client := influxdb2.NewClient(url, token)
	return &Sink{writer: client.WriteAPIBlocking(org, bucket), close: client.Close, deviceID: deviceID}
}

func NewSink(writer pointWriter, deviceID string) *Sink {
	return &Sink{writer: writer, deviceID: deviceID}
}

func (s *Sink) Name() string { return "influx" }

func (s *Sink) PublishReading(ctx context.Context, reading entities.SensorReading) error {
	tags := map[string]string{"device_id": s.deviceID}
	fields := map[string]interface{}{
		"temperature":           reading.Temperature,
		"humidity":              reading.Humidity,
		"soil_moisture":         reading.SoilMoisture,
		"light":                 reading.Light,
		"water_level_top":       reading.WaterLevelTop,
		"water_level_middle":    reading.WaterLevelMiddle,
		"water_level_bottom":    reading.WaterLevelBottom,
		"water_tank_percentage": reading.WaterTankPercentage,
		"faults":                len(reading.Faults),
	}
	point := influxdb2.NewPoint(measurementReading, tags, fields, reading.Timestamp)
	return errors.Wrap(s.writer.WritePoint(ctx, point), "write reading point")
}

func (s *Sink) PublishWateringEvent(ctx context.Context, event entities.WateringEvent) error {
	tags := map[string]string{
		"device_id": s.deviceID,
		"plant":     event.Plant,
		"source":    string(event.Source),
		"result":    string(event.Result),
	}
	fields := map[string]interface{}{
		"position":         event.Position,
		"pump":             event.Pump,
		"water_amount":     event.WaterAmount,
		"duration_seconds": event.DurationSeconds,
	}
	point := influxdb2.NewPoint(measurementWatering, tags, fields, event.Timestamp)
	return errors.Wrap(s.writer.WritePoint(ctx, point), "write watering point")
}

func (s *Sink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
