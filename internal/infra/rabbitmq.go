package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	amqpMaxAttempts    = 10
	amqpPublishTimeout = 5 * time.Second
)

// RabbitMQ holds a connection and a publishing channel.
type RabbitMQ struct {
	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitMQ dials url with backoff and declares the given topic exchanges.
func NewRabbitMQ(ctx context.Context, url string, logger *slog.Logger, exchanges ...string) (*RabbitMQ, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url is required")
	}

	delay := time.Second
	var lastErr error
	for attempt := 1; attempt <= amqpMaxAttempts; attempt++ {
		mq, err := dialRabbitMQ(url, exchanges)
		if err == nil {
			logger.Info("rabbitmq connected", slog.Int("attempt", attempt))
			return mq, nil
		}
		lastErr = err
		logger.Warn("rabbitmq connection attempt failed",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = delay * 3 / 2
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
	return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", amqpMaxAttempts, lastErr)
}

func dialRabbitMQ(url string, exchanges []string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	for _, exchange := range exchanges {
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
		}
	}
	return &RabbitMQ{conn: conn, ch: ch}, nil
}

// Publish sends a persistent JSON message.
func (mq *RabbitMQ) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	mq.mu.RLock()
	ch := mq.ch
	mq.mu.RUnlock()
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq channel not available")
	}

	publishCtx, cancel := context.WithTimeout(ctx, amqpPublishTimeout)
	defer cancel()
	return ch.PublishWithContext(publishCtx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	})
}

// Healthy reports whether the connection is open.
func (mq *RabbitMQ) Healthy() bool {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.conn != nil && !mq.conn.IsClosed()
}

// Close shuts the channel and connection.
func (mq *RabbitMQ) Close() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	var errs []error
	if mq.ch != nil {
		errs = append(errs, mq.ch.Close())
		mq.ch = nil
	}
	if mq.conn != nil {
		errs = append(errs, mq.conn.Close())
		mq.conn = nil
	}
	return errors.Join(errs...)
}
