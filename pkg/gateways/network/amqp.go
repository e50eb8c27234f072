// Package network publishes planter telemetry to an AMQP broker and receives remote commands from it.
package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	exchangeTypeDirect = "direct"
	exchangeTypeFanout = "fanout"

	durable          = true
	deleteWhenUnused = false
	exclusive        = false
	noWait           = false
	internal         = false
	noAck            = true
	noLocal          = false
	mandatory        = false
	immediate        = false
	consumerTag      = ""

	defaultConnectRetries = 5
)

// Messaging is the broker surface used by publishers and subscribers.
type Messaging interface {
	Start() error
	Stop() error
	OnMessage(msgChan chan InMsg, queueName, exchangeName, exchangeType, key string) error
	PublishPersistentMessage(ctx context.Context, exchange, exchangeType, key string, data interface{}, options *MessageOptions) error
}

type InMsg struct {
	Exchange      string
	RoutingKey    string
	CorrelationID string
	Body          []byte
}

// MessageOptions represents the message publishing options
type MessageOptions struct {
	CorrelationID string
	Expiration    string
}

// subscription is a queue binding restored after every reconnection.
type subscription struct {
	msgChan      chan InMsg
	queueName    string
	exchangeName string
	exchangeType string
	key          string
}

type AMQPHandler struct {
	mu                sync.Mutex
	conn              connection
	log               *logrus.Entry
	declaredExchanges map[string]struct{}
	subscriptions     []subscription
	connectRetries    uint64
	stopped           bool
}

func NewAMQPHandler(conn connection, log *logrus.Entry) *AMQPHandler {
	return &AMQPHandler{
		conn:              conn,
		log:               log,
		declaredExchanges: map[string]struct{}{},
		connectRetries:    defaultConnectRetries,
	}
}

// Start connects with exponential backoff and watches the connection for closure.
func (a *AMQPHandler) Start() error {
	err := backoff.Retry(a.connect, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), a.connectRetries))
	if err != nil {
		return errors.Wrap(err, "connect to amqp broker")
	}
	a.log.Info("amqp connected")
	go a.notifyWhenClosed()
	return nil
}

func (a *AMQPHandler) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.conn.isClosed() {
		return nil
	}
	if err := a.conn.closeChannel(); err != nil {
		a.log.WithError(err).Debug("close amqp channel")
	}
	return a.conn.close()
}

func (a *AMQPHandler) connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.conn.connect(); err != nil {
		return err
	}
	if err := a.conn.createChannel(); err != nil {
		return err
	}
	a.declaredExchanges = map[string]struct{}{}
	return nil
}

// OnMessage consumes queueName into msgChan. The binding is restored after a reconnection,
// so msgChan keeps receiving for the lifetime of the handler.
func (a *AMQPHandler) OnMessage(msgChan chan InMsg, queueName, exchangeName, exchangeType, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := subscription{msgChan: msgChan, queueName: queueName, exchangeName: exchangeName, exchangeType: exchangeType, key: key}
	if err := a.subscribe(s); err != nil {
		return err
	}
	a.subscriptions = append(a.subscriptions, s)
	return nil
}

// subscribe declares, binds and consumes one queue. Callers hold a.mu.
func (a *AMQPHandler) subscribe(s subscription) error {
	if err := a.declareExchange(s.exchangeName, s.exchangeType); err != nil {
		return err
	}
	if err := a.conn.queueDeclare(s.queueName); err != nil {
		return errors.Wrapf(err, "declare queue %s", s.queueName)
	}
	if err := a.conn.queueBind(s.queueName, s.key, s.exchangeName); err != nil {
		return errors.Wrapf(err, "bind queue %s", s.queueName)
	}
	deliveries, err := a.conn.consume(s.queueName)
	if err != nil {
		return errors.Wrapf(err, "consume queue %s", s.queueName)
	}
	go convertDeliveryToInMsg(deliveries, s.msgChan)
	return nil
}

func (a *AMQPHandler) resubscribe() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.subscriptions {
		if err := a.subscribe(s); err != nil {
			return err
		}
		a.log.WithField("queue", s.queueName).Info("amqp subscription restored")
	}
	return nil
}

func (a *AMQPHandler) PublishPersistentMessage(ctx context.Context, exchange, exchangeType, key string, data interface{}, options *MessageOptions) error {
	body, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encode amqp message")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn.isClosed() {
		return errors.New("amqp connection closed")
	}
	if err := a.declareExchange(exchange, exchangeType); err != nil {
		return err
	}
	if err := a.conn.publish(ctx, exchange, key, body, options); err != nil {
		return errors.Wrapf(err, "publish to %s", exchange)
	}
	return nil
}

// declareExchange declares each exchange once per connection. Callers hold a.mu.
func (a *AMQPHandler) declareExchange(name, exchangeType string) error {
	if _, ok := a.declaredExchanges[name]; ok {
		return nil
	}
	if err := a.conn.exchangeDeclare(name, exchangeType); err != nil {
		return errors.Wrapf(err, "declare exchange %s", name)
	}
	a.declaredExchanges[name] = struct{}{}
	return nil
}

func (a *AMQPHandler) notifyWhenClosed() {
	a.mu.Lock()
	closed := a.conn.notifyClose(make(chan *amqp.Error, 1))
	a.mu.Unlock()

	errReason, ok := <-closed
	a.mu.Lock()
	stopped := a.stopped
	a.mu.Unlock()
	if !ok || errReason == nil || stopped {
		return
	}
	a.log.WithError(errReason).Warn("amqp connection lost")

	reconnectionBackOff := backoff.NewExponentialBackOff()
	reconnectionBackOff.InitialInterval = 30 * time.Second
	reconnectionBackOff.MaxInterval = 5 * time.Minute
	reconnectionBackOff.Multiplier = 1.7
	reconnectionBackOff.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		err := a.connect()
		if err == nil {
			err = a.resubscribe()
		}
		if err != nil {
			a.log.WithError(err).Warn("amqp reconnection failed")
		}
		return err
	}, reconnectionBackOff)
	if err != nil {
		return
	}
	a.log.Info("amqp reconnection was successful")
	go a.notifyWhenClosed()
}

func convertDeliveryToInMsg(deliveries <-chan amqp.Delivery, outMsg chan InMsg) {
	for d := range deliveries {
		outMsg <- InMsg{d.Exchange, d.RoutingKey, d.CorrelationId, d.Body}
	}
}
