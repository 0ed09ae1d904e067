package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aq2208/settlement-api/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName   = "settlement.events"
	settledKey     = "settlement.settled"
	retryKey       = "settlement.retry"
	retryQueueName = "settlement.retry.q"
)

// RabbitProducer publishes settled-order events (drained from the outbox) and
// reconciliation retry tasks.
type RabbitProducer struct {
	ch *amqp.Channel
}

// NewRabbitProducer declares the exchange, the retry queue and its binding
// once at startup, and enables publisher confirms.
func NewRabbitProducer(ch *amqp.Channel) (*RabbitProducer, error) {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		retryQueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, retryKey, exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitProducer{ch: ch}, nil
}

// PublishSettled forwards an already-serialized outbox payload.
func (p *RabbitProducer) PublishSettled(ctx context.Context, payload []byte) error {
	return p.publish(ctx, settledKey, payload)
}

// PublishRetry enqueues a re-armed settlement for the retry consumer.
func (p *RabbitProducer) PublishRetry(ctx context.Context, msg usecase.RetryMsg) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal retry message: %w", err)
	}
	return p.publish(ctx, retryKey, body)
}

func (p *RabbitProducer) publish(ctx context.Context, key string, body []byte) error {
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, exchangeName, key, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}
