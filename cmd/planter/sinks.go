package main

import (
	"context"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/gateways/influx"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/gateways/kafka"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/gateways/mqtt"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/gateways/network"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/gateways/telemetry"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/logging"
	"github.com/sirupsen/logrus"
)

// remoteCommands wires the AMQP command queue to the engine.
type remoteCommands struct {
	subscriber *network.Subscriber
	log        *logrus.Entry
}

func (c *remoteCommands) start(ctx context.Context, waterer network.Waterer) error {
	msgChan := make(chan network.InMsg)
	if err := c.subscriber.SubscribeToCommands(msgChan); err != nil {
		return err
	}
	go c.subscriber.HandleCommands(ctx, msgChan, waterer)
	c.log.Info("listening for remote commands")
	return nil
}

// newSinks connects every configured telemetry sink. Sinks already connected
// are closed when a later one fails.
func newSinks(configuration entities.PlanterConfig, logrusFactory *logging.Logrus) ([]telemetry.Sink, *remoteCommands, error) {
	var sinks []telemetry.Sink
	var commands *remoteCommands
	fail := func(err error) ([]telemetry.Sink, *remoteCommands, error) {
		for _, sink := range sinks {
			sink.Close()
		}
		return nil, nil, err
	}
	cfg := configuration.Sinks

	if cfg.AMQP.URL != "" {
		log := logrusFactory.Get("amqp")
		handler := network.NewAMQPHandler(network.NewAmqpConnection(cfg.AMQP.URL), log)
		if err := handler.Start(); err != nil {
			return fail(err)
		}
		sinks = append(sinks, network.NewMsgPublisher(handler, configuration.DeviceID, cfg.AMQP.Exchange, cfg.AMQP.EventsExchange))
		subscriber, err := network.NewMsgSubscriber(handler, configuration.DeviceID, cfg.AMQP.EventsExchange, log)
		if err != nil {
			return fail(err)
		}
		commands = &remoteCommands{subscriber: subscriber, log: log}
	}

	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewConnection(cfg.MQTT.Broker, cfg.MQTT.ClientID, logrusFactory.Get("mqtt"))
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, mqtt.NewSink(client, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS))
	}

	if cfg.Influx.URL != "" {
		sinks = append(sinks, influx.NewClientSink(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket, configuration.DeviceID))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, kafka.NewSink(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), configuration.DeviceID))
	}

	return sinks, commands, nil
}
