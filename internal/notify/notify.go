// Package notify fans lifecycle events out to the notification surfaces:
// the RabbitMQ queue feeding downstream consumers, the operators' Telegram
// channel, and the Redis live feed. Notification failures are logged and
// never fail the transition that produced the event.
package notify

import (
	"context"

	"sunportal/backend/internal/models"

	"go.uber.org/zap"
)

// Publisher delivers one lifecycle event to one surface.
type Publisher interface {
	PublishLifecycle(ctx context.Context, ev models.LifecycleEvent) error
}

// Multi fans an event out to every configured publisher.
type Multi struct {
	Publishers []Publisher
	Logger     *zap.Logger
}

func NewMulti(logger *zap.Logger, publishers ...Publisher) *Multi {
	return &Multi{Publishers: publishers, Logger: logger}
}

// PublishLifecycle delivers to all surfaces, logging individual failures.
// It never returns an error: the transition already committed.
func (m *Multi) PublishLifecycle(ctx context.Context, ev models.LifecycleEvent) error {
	for _, p := range m.Publishers {
		if err := p.PublishLifecycle(ctx, ev); err != nil {
			m.Logger.Warn("lifecycle event delivery failed",
				zap.String("ticket_id", ev.TicketID),
				zap.String("action", ev.Action),
				zap.Error(err))
		}
	}
	return nil
}
