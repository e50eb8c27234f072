package network

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type connection interface {
	connect() error
	createChannel() error
	queueDeclare(name string) error
	exchangeDeclare(name, exchangeType string) error
	queueBind(queueName, key, exchangeName string) error
	consume(queue string) (<-chan amqp.Delivery, error)
	publish(ctx context.Context, exchange, key string, body []byte, options *MessageOptions) error
	isClosed() bool
	close() error
	closeChannel() error
	notifyClose(receiver chan *amqp.Error) chan *amqp.Error
}

// AmqpConnection is the amqp091 backed connection.
type AmqpConnection struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAmqpConnection(url string) *AmqpConnection {
	return &AmqpConnection{url: url}
}

func (a *AmqpConnection) connect() error {
	conn, err := amqp.Dial(a.url)
	if err == nil {
		a.conn = conn
	}
	return err
}

func (a *AmqpConnection) createChannel() error {
	channel, err := a.conn.Channel()
	if err == nil {
		a.channel = channel
	}
	return err
}

func (a *AmqpConnection) queueDeclare(name string) error {
	_, err := a.channel.QueueDeclare(
		name,
		durable,
		deleteWhenUnused,
		exclusive,
		noWait,
		nil, // arguments
	)
	return err
}

func (a *AmqpConnection) exchangeDeclare(name, exchangeType string) error {
	return a.channel.ExchangeDeclare(
		name,
		exchangeType,
		durable,
		deleteWhenUnused,
		internal,
		noWait,
		nil, // arguments
	)
}

func (a *AmqpConnection) queueBind(queueName, key, exchangeName string) error {
	return a.channel.QueueBind(queueName, key, exchangeName, noWait, nil)
}

func (a *AmqpConnection) consume(queue string) (<-chan amqp.Delivery, error) {
	return a.channel.Consume(queue, consumerTag, noAck, exclusive, noLocal, noWait, nil)
}

func (a *AmqpConnection) publish(ctx context.Context, exchange, key string, body []byte, options *MessageOptions) error {
	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if options != nil {
		publishing.CorrelationId = options.CorrelationID
		publishing.Expiration = options.Expiration
	}
	return a.channel.PublishWithContext(ctx, exchange, key, mandatory, immediate, publishing)
}

func (a *AmqpConnection) isClosed() bool {
	return a.conn == nil || a.conn.IsClosed()
}

func (a *AmqpConnection) close() error {
	return a.conn.Close()
}

func (a *AmqpConnection) closeChannel() error {
	if a.channel == nil {
		return nil
	}
	return a.channel.Close()
}

func (a *AmqpConnection) notifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return a.conn.NotifyClose(receiver)
}
