// Package broker forwards lifecycle events to a RabbitMQ topic exchange.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"medride/internal/config"
	"medride/internal/events"
)

const (
	publishTimeout = 3 * time.Second
	reconnInterval = 5 * time.Second
)

var errNotConnected = errors.New("amqp connection closed")

// RabbitMQ publishes events as persistent JSON messages.
type RabbitMQ struct {
	cfg    config.RabbitMQConfig
	logger *logrus.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitMQ connects to the broker and declares the exchange.
func NewRabbitMQ(cfg config.RabbitMQConfig, logger *logrus.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{cfg: cfg, logger: logger}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("rabbit connect: %w", err)
	}
	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.cfg.URL)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(
		r.cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	r.mu.Lock()
	r.conn, r.ch = conn, ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || r.conn.IsClosed() || r.ch == nil {
		return nil, errNotConnected
	}
	return r.ch, nil
}

// RoutingKey returns the routing key of an event.
func RoutingKey(e events.Event) string {
	return string(e.Type)
}

// BuildPublishing renders an event as an AMQP message.
func BuildPublishing(e events.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.OccurredAt,
		Type:         string(e.Type),
		Body:         body,
	}, nil
}

// Publish sends one event to the exchange.
func (r *RabbitMQ) Publish(ctx context.Context, e events.Event) error {
	ch, err := r.channel()
	if err != nil {
		return err
	}
	msg, err := BuildPublishing(e)
	if err != nil {
		return err
	}

	pubctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return ch.PublishWithContext(pubctx, r.cfg.Exchange, RoutingKey(e), false, false, msg)
}

// Run forwards every bus event to the broker until ctx is done.
// Failed publishes are logged and trigger a reconnect; the event is not retried.
func (r *RabbitMQ) Run(ctx context.Context, bus *events.Bus, buffer int) {
	ch, cancel := bus.Subscribe(buffer, nil)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := r.Publish(ctx, e); err != nil {
				r.logger.WithFields(logrus.Fields{
					"event_id":   e.ID,
					"event_type": e.Type,
					"error":      err.Error(),
				}).Error("failed to publish event")
				r.reconnect(ctx)
			}
		}
	}
}

func (r *RabbitMQ) reconnect(ctx context.Context) {
	if _, err := r.channel(); err == nil {
		return
	}
	for {
		err := r.connect()
		if err == nil {
			r.logger.Info("reconnected to rabbitmq")
			return
		}
		r.logger.WithError(err).Warn("rabbitmq reconnect failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnInterval):
		}
	}
}

// Close closes the channel and connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
