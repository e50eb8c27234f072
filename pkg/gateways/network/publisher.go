package network

import (
	"context"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
)

const (
	routingKeyWatering    = "planter.watering"
	defaultExpirationTime = "86400000"
)

// Publisher is the AMQP telemetry sink.
type Publisher struct {
	amqp           Messaging
	deviceID       string
	exchange       string
	eventsExchange string
}

func NewMsgPublisher(amqp Messaging, deviceID, exchange, eventsExchange string) *Publisher {
	return &Publisher{amqp: amqp, deviceID: deviceID, exchange: exchange, eventsExchange: eventsExchange}
}

func (mp *Publisher) Name() string { return "amqp" }

// PublishReading fans the reading out to every queue bound to the readings exchange.
func (mp *Publisher) PublishReading(ctx context.Context, reading entities.SensorReading) error {
	options := MessageOptions{
		Expiration: defaultExpirationTime,
	}
	message := ReadingSent{
		DeviceID: mp.deviceID,
		Reading:  reading,
	}
	return mp.amqp.PublishPersistentMessage(ctx, mp.exchange, exchangeTypeFanout, "", message, &options)
}

func (mp *Publisher) PublishWateringEvent(ctx context.Context, event entities.WateringEvent) error {
	options := MessageOptions{
		CorrelationID: event.ID,
	}
	message := WateringEventSent{
		DeviceID: mp.deviceID,
		Event:    event,
	}
	return mp.amqp.PublishPersistentMessage(ctx, mp.eventsExchange, exchangeTypeDirect, routingKeyWatering, message, &options)
}

func (mp *Publisher) Close() error {
	return mp.amqp.Stop()
}
