package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/stretchr/testify/assert"
)

func createFakeReading() entities.SensorReading {
	return entities.SensorReading{
		Timestamp:           time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Temperature:         22.5,
		Humidity:            55,
		SoilMoisture:        40,
		Light:               120,
		WaterLevelTop:       true,
		WaterLevelMiddle:    true,
		WaterLevelBottom:    true,
		WaterTankPercentage: 100,
	}
}

func TestPublishReading(t *testing.T) {
	amqpMock := new(AmqpMock)
	reading := createFakeReading()
	options := MessageOptions{Expiration: defaultExpirationTime}
	message := ReadingSent{DeviceID: "planter", Reading: reading}

	amqpMock.On("PublishPersistentMessage", "planter.readings", exchangeTypeFanout, "", message, &options).Return(nil)

	publisher := NewMsgPublisher(amqpMock, "planter", "planter.readings", "planter.events")
	err := publisher.PublishReading(context.Background(), reading)
	assert.Nil(t, err)
	amqpMock.AssertExpectations(t)
}

func TestPublishReadingWhenBrokerFailsThenError(t *testing.T) {
	amqpMock := new(AmqpMock)
	amqpMock.On("PublishPersistentMessage", "planter.readings", exchangeTypeFanout, "", ReadingSent{DeviceID: "planter"}, &MessageOptions{Expiration: defaultExpirationTime}).Return(errors.New("channel closed"))

	publisher := NewMsgPublisher(amqpMock, "planter", "planter.readings", "planter.events")
	err := publisher.PublishReading(context.Background(), entities.SensorReading{})
	assert.NotNil(t, err)
}

func TestPublishWateringEventUsesEventIDAsCorrelation(t *testing.T) {
	amqpMock := new(AmqpMock)
	plant := entities.Plant{Name: "Basil", Position: 2, WaterAmount: 150, WateringFrequency: 1, Active: true}
	event := entities.NewWateringEvent(plant, entities.Pump1, 1500*time.Millisecond, entities.WateringAuto, time.Now())
	event.Result = entities.WateringSucceeded
	options := MessageOptions{CorrelationID: event.ID}
	message := WateringEventSent{DeviceID: "planter", Event: event}

	amqpMock.On("PublishPersistentMessage", "planter.events", exchangeTypeDirect, routingKeyWatering, message, &options).Return(nil)

	publisher := NewMsgPublisher(amqpMock, "planter", "planter.readings", "planter.events")
	err := publisher.PublishWateringEvent(context.Background(), event)
	assert.Nil(t, err)
	amqpMock.AssertExpectations(t)
}

func TestPublisherCloseStopsBroker(t *testing.T) {
	amqpMock := new(AmqpMock)
	amqpMock.On("Stop").Return(nil)

	publisher := NewMsgPublisher(amqpMock, "planter", "planter.readings", "planter.events")
	assert.Equal(t, "amqp", publisher.Name())
	assert.Nil(t, publisher.Close())
	amqpMock.AssertExpectations(t)
}
