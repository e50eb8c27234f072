package influx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	points []*write.Point
	err    error
}

func (w *fakeWriter) WritePoint(ctx context.Context, point ...*write.Point) error {
	w.points = append(w.points, point...)
	return w.err
}

func fieldValue(point *write.Point, key string) interface{} {
	for _, field := range point.FieldList() {
		if field.Key == key {
			return field.Value
		}
	}
	return nil
}

func tagValue(point *write.Point, key string) string {
	for _, tag := range point.TagList() {
		if tag.Key == key {
			return tag.Value
		}
	}
	return ""
}

func TestPublishReadingWritesOnePoint(t *testing.T) {
	writer := &fakeWriter{}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	reading := entities.SensorReading{Timestamp: at, Temperature: 22.5, SoilMoisture: 40, WaterTankPercentage: 66.7}

	err := NewSink(writer, "planter").PublishReading(context.Background(), reading)
	require.NoError(t, err)

	require.Len(t, writer.points, 1)
	point := writer.points[0]
	assert.Equal(t, measurementReading, point.Name())
	assert.True(t, point.Time().Equal(at))
	assert.Equal(t, "planter", tagValue(point, "device_id"))
	assert.Equal(t, 22.5, fieldValue(point, "temperature"))
	assert.Equal(t, 66.7, fieldValue(point, "water_tank_percentage"))
}

func TestPublishWateringEventTagsPlantAndResult(t *testing.T) {
	writer := &fakeWriter{}
	event := entities.WateringEvent{Plant: "Basil", Position: 3, Pump: entities.Pump2, Source: entities.WateringManual, Result: entities.WateringSucceeded, DurationSeconds: 1.5}

	err := NewSink(writer, "planter").PublishWateringEvent(context.Background(), event)
	require.NoError(t, err)

	point := writer.points[0]
	assert.Equal(t, measurementWatering, point.Name())
	assert.Equal(t, "Basil", tagValue(point, "plant"))
	assert.Equal(t, "manual", tagValue(point, "source"))
	assert.Equal(t, "success", tagValue(point, "result"))
	assert.Equal(t, 1.5, fieldValue(point, "duration_seconds"))
}

func TestPublishReadingWhenWriteFailsThenError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("unauthorized")}
	err := NewSink(writer, "planter").PublishReading(context.Background(), entities.SensorReading{})
	assert.ErrorContains(t, err, "unauthorized")
}

func TestCloseWithoutClient(t *testing.T) {
	sink := NewSink(&fakeWriter{}, "planter")
	assert.Equal(t, "influx", sink.Name())
	assert.NoError(t, sink.Close())
}
