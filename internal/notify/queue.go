package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sunportal/backend/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventQueueName is the durable queue downstream consumers (notification
// service, analytics) read lifecycle events from.
const EventQueueName = "complaint_events"

// QueuePublisher publishes lifecycle events to RabbitMQ.
type QueuePublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewQueuePublisher connects to RabbitMQ and declares the durable event
// queue.
func NewQueuePublisher(uri string) (*QueuePublisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(EventQueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return &QueuePublisher{conn: conn, ch: ch}, nil
}

func (p *QueuePublisher) PublishLifecycle(ctx context.Context, ev models.LifecycleEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		"",
		EventQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *QueuePublisher) Close() {
	p.ch.Close()
	p.conn.Close()
}
