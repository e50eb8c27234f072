// Package mqtt publishes planter telemetry to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	connectRetries    = 4
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250

	topicReadings = "readings"
	topicWatering = "watering"
)

// publisher is the part of mqtt.Client used by the sink.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Sink struct {
	client      publisher
	topicPrefix string
	qos         byte
}

// NewConnection connects to broker with exponential backoff.
func NewConnection(broker, clientID string, log *logrus.Entry) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("mqtt connection lost")
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).Warn("mqtt connect failed")
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, connectRetries))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to mqtt broker %s", broker)
	}
	log.WithField("broker", broker).Info("mqtt connected")
	return client, nil
}

func NewSink(client publisher, topicPrefix string, qos byte) *Sink {
	return &Sink{client: client, topicPrefix: topicPrefix, qos: qos}
}

func (s *Sink) Name() string { return "mqtt" }

func (s *Sink) PublishReading(ctx context.Context, reading entities.SensorReading) error {
	return s.publish(ctx, topicReadings, reading)
}

func (s *Sink) PublishWateringEvent(ctx context.Context, event entities.WateringEvent) error {
	return s.publish(ctx, topicWatering, event)
}

func (s *Sink) Close() error {
	s.client.Disconnect(disconnectQuiesce)
	return nil
}

func (s *Sink) topic(name string) string {
	if s.topicPrefix == "" {
		return name
	}
	return s.topicPrefix + "/" + name
}

func (s *Sink) publish(ctx context.Context, name string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "encode mqtt payload")
	}
	topic := s.topic(name)
	token := s.client.Publish(topic, s.qos, false, payload)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return errors.Errorf("publish to %s timed out", topic)
	}
	return errors.Wrapf(token.Error(), "publish to %s", topic)
}
