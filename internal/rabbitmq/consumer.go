package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ErrRetry marks a handler failure worth redelivering. Any other handler
// error drops the message.
var ErrRetry = errors.New("retry delivery")

// Handler processes one message body.
type Handler func(ctx context.Context, routingKey string, body []byte) error

// ConsumerConfig names the queue a Consumer binds to the exchange.
type ConsumerConfig struct {
	URL        string
	Exchange   string
	Queue      string
	BindingKey string
	Prefetch   int
}

// Consumer reads a durable queue bound to a topic exchange.
type Consumer struct {
	cfg     ConsumerConfig
	handler Handler
	backoff time.Duration
}

func NewConsumer(cfg ConsumerConfig, handler Handler) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 16
	}
	return &Consumer{cfg: cfg, handler: handler, backoff: 5 * time.Second}
}

// Run consumes until ctx is done, reconnecting after broker failures.
func (c *Consumer) Run(ctx context.Context) {
	logCtx := logrus.WithFields(logrus.Fields{"queue": c.cfg.Queue, "binding_key": c.cfg.BindingKey})
	if c.cfg.URL == "" {
		logCtx.Warn("rabbitmq consumer disabled: empty amqp url")
		return
	}
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		logCtx.WithError(err).Warn("rabbitmq consumer stopped, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(c.cfg.Queue, c.cfg.BindingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	logrus.WithField("queue", c.cfg.Queue).Info("rabbitmq consumer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			c.dispatch(ctx, d)
		}
	}
}

// dispatch runs the handler and settles the delivery: ack on success,
// requeue on ErrRetry, otherwise drop.
func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	logCtx := logrus.WithFields(logrus.Fields{"routing_key": d.RoutingKey, "delivery_tag": d.DeliveryTag})

	err := c.handler(ctx, d.RoutingKey, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			logCtx.WithError(ackErr).Warn("rabbitmq ack failed")
		}
	case errors.Is(err, ErrRetry) && !d.Redelivered:
		logCtx.WithError(err).Warn("rabbitmq delivery requeued")
		if nackErr := d.Nack(false, true); nackErr != nil {
			logCtx.WithError(nackErr).Warn("rabbitmq nack failed")
		}
	default:
		logCtx.WithError(err).Error("rabbitmq delivery dropped")
		if nackErr := d.Nack(false, false); nackErr != nil {
			logCtx.WithError(nackErr).Warn("rabbitmq nack failed")
		}
	}
}
