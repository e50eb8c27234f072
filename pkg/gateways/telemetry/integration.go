// Package telemetry forwards readings and watering events to the optional sinks.
package telemetry

import (
	"context"
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const sinkTimeout = 5 * time.Second

// Sink is one downstream telemetry destination.
type Sink interface {
	Name() string
	PublishReading(ctx context.Context, reading entities.SensorReading) error
	PublishWateringEvent(ctx context.Context, event entities.WateringEvent) error
	Close() error
}

// FailureRecorder counts sink delivery failures.
type FailureRecorder interface {
	SinkFailure(sink string)
}

type Integration struct {
	sinks    []Sink
	log      *logrus.Entry
	failures FailureRecorder
}

func NewIntegration(log *logrus.Entry, failures FailureRecorder, sinks ...Sink) *Integration {
	for _, sink := range sinks {
		log.WithField("sink", sink.Name()).Info("telemetry sink enabled")
	}
	return &Integration{sinks: sinks, log: log, failures: failures}
}

// Transmit sends the reading to every sink.
func (i *Integration) Transmit(ctx context.Context, reading entities.SensorReading) {
	for _, sink := range i.sinks {
		i.deliver(ctx, sink, "reading", func(ctx context.Context) error {
			return sink.PublishReading(ctx, reading)
		})
	}
}

// RecordWatering sends the watering event to every sink.
func (i *Integration) RecordWatering(ctx context.Context, event entities.WateringEvent) {
	for _, sink := range i.sinks {
		i.deliver(ctx, sink, "watering event", func(ctx context.Context) error {
			return sink.PublishWateringEvent(ctx, event)
		})
	}
}

func (i *Integration) deliver(ctx context.Context, sink Sink, kind string, publish func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := publish(ctx); err != nil {
		i.log.WithError(err).WithField("sink", sink.Name()).Warnf("%s not delivered", kind)
		if i.failures != nil {
			i.failures.SinkFailure(sink.Name())
		}
	}
}

func (i *Integration) Close() error {
	var result error
	for _, sink := range i.sinks {
		if err := sink.Close(); err != nil && result == nil {
			result = errors.Wrapf(err, "close %s sink", sink.Name())
		}
	}
	return result
}
