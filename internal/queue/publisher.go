package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const resolvedQueueName = "watch.resolved"

// Publisher publishes WatchResolvedEvents to the broker. Publishing is
// best-effort: the scheduler logs and ignores failures, because the user
// notification has already gone out by the time an event is published.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher for the given broker URL. An empty URL
// yields a nil Publisher; callers treat nil as "event publishing disabled".
func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// Publish declares the durable watch.resolved queue and publishes one
// persistent event. A fresh connection per publish keeps the publisher free
// of connection-state bookkeeping; resolution volume is far too low for the
// dial cost to matter.
func (p *Publisher) Publish(ctx context.Context, event WatchResolvedEvent) error {
	if p == nil {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		resolvedQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", resolvedQueueName, false, false, pub); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
