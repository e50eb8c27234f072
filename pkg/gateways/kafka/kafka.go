// Package kafka appends planter telemetry to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

const (
	headerKind   = "kind"
	kindReading  = "reading"
	kindWatering = "watering"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink keys every message by device so one partition keeps the device's order.
type Sink struct {
	writer   messageWriter
	deviceID string
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

func NewSink(writer messageWriter, deviceID string) *Sink {
	return &Sink{writer: writer, deviceID: deviceID}
}

func (s *Sink) Name() string { return "kafka" }

func (s *Sink) PublishReading(ctx context.Context, reading entities.SensorReading) error {
	return s.write(ctx, kindReading, reading)
}

func (s *Sink) PublishWateringEvent(ctx context.Context, event entities.WateringEvent) error {
	return s.write(ctx, kindWatering, event)
}

func (s *Sink) Close() error {
	return s.writer.Close()
}

func (s *Sink) write(ctx context.Context, kind string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encode kafka message")
	}
	message := kafka.Message{
		Key:     []byte(s.deviceID),
		Value:   body,
		Headers: []kafka.Header{{Key: headerKind, Value: []byte(kind)}},
	}
	return errors.Wrapf(s.writer.WriteMessages(ctx, message), "write %s message", kind)
}
