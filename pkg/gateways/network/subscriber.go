package network

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	routingKeyCommandResult = "planter.command.result"
)

// Waterer runs a manual watering for the plant at position.
type Waterer interface {
	ManualWater(ctx context.Context, position int) error
}

// Subscriber receives remote commands addressed to one device.
type Subscriber struct {
	amqp           Messaging
	deviceID       string
	eventsExchange string
	log            *logrus.Entry
	executed       *duplicationFilter
}

func NewMsgSubscriber(amqp Messaging, deviceID, eventsExchange string, log *logrus.Entry) (*Subscriber, error) {
	executed, err := newDuplicationFilter()
	if err != nil {
		return nil, err
	}
	return &Subscriber{amqp: amqp, deviceID: deviceID, eventsExchange: eventsExchange, log: log, executed: executed}, nil
}

func (ms *Subscriber) queueName() string  { return ms.deviceID + ".commands" }
func (ms *Subscriber) bindingKey() string { return "planter.command." + ms.deviceID }

func (ms *Subscriber) SubscribeToCommands(msgChan chan InMsg) error {
	return ms.amqp.OnMessage(msgChan, ms.queueName(), ms.eventsExchange, exchangeTypeDirect, ms.bindingKey())
}

// HandleCommands executes commands until ctx is done or msgChan is closed.
// Each outcome is published back on the events exchange. A command redelivered
// with a correlation id already executed is dropped.
func (ms *Subscriber) HandleCommands(ctx context.Context, msgChan <-chan InMsg, waterer Waterer) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			if ms.executed.seen(msg.CorrelationID) {
				ms.log.WithFields(logrus.Fields{"correlation_id": msg.CorrelationID, "routing_key": msg.RoutingKey}).Info("duplicated command skipped")
				continue
			}
			result := ms.execute(ctx, msg, waterer)
			options := MessageOptions{CorrelationID: msg.CorrelationID}
			if err := ms.amqp.PublishPersistentMessage(ctx, ms.eventsExchange, exchangeTypeDirect, routingKeyCommandResult, result, &options); err != nil {
				ms.log.WithError(err).Warn("publish command result")
			}
		}
	}
}

func (ms *Subscriber) execute(ctx context.Context, msg InMsg, waterer Waterer) CommandResult {
	var command Command
	result := CommandResult{DeviceID: ms.deviceID}
	if err := json.Unmarshal(msg.Body, &command); err != nil {
		result.Error = errors.Wrap(err, "decode command").Error()
		ms.log.WithError(err).Warn("invalid command")
		return result
	}
	result.Action, result.Position = command.Action, command.Position

	if command.Action != commandWater {
		result.Error = "unknown action " + command.Action
		ms.log.WithField("action", command.Action).Warn("unknown command")
		return result
	}
	if err := waterer.ManualWater(ctx, command.Position); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}
