// Package livefeed pushes lifecycle events to connected dashboards over
// WebSocket. Events arrive through Redis pub/sub, so every API instance
// feeds its own clients regardless of which instance applied the mutation.
package livefeed

import (
	"context"
	"encoding/json"

	"sunportal/backend/internal/models"
	"sunportal/backend/internal/storage"

	"go.uber.org/zap"
)

type Hub struct {
	RegisterCh   chan *Client
	UnregisterCh chan *Client

	clients     map[*Client]bool
	broadcastCh chan models.LifecycleEvent

	Storage *storage.Service
	Logger  *zap.Logger
}

func NewHub(st *storage.Service, logger *zap.Logger) *Hub {
	return &Hub{
		RegisterCh:   make(chan *Client),
		UnregisterCh: make(chan *Client),
		clients:      make(map[*Client]bool),
		broadcastCh:  make(chan models.LifecycleEvent, 64),
		Storage:      st,
		Logger:       logger,
	}
}

// Run owns the client set; all membership changes and broadcasts pass
// through this loop, so no locking is needed anywhere in the package.
func (h *Hub) Run(ctx context.Context) {
	go h.listen(ctx)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.Send)
				delete(h.clients, c)
			}
			return

		case c := <-h.RegisterCh:
			h.clients[c] = true
			h.Logger.Debug("live feed client connected", zap.Int("clients", len(h.clients)))

		case c := <-h.UnregisterCh:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.Send)
			}

		case ev := <-h.broadcastCh:
			for c := range h.clients {
				select {
				case c.Send <- ev:
				default:
					// A client that cannot keep up is dropped rather than
					// allowed to stall the broadcast.
					delete(h.clients, c)
					close(c.Send)
				}
			}
		}
	}
}

// Broadcast injects an event directly, bypassing Redis. Used by tests.
func (h *Hub) Broadcast(ev models.LifecycleEvent) {
	h.broadcastCh <- ev
}

func (h *Hub) listen(ctx context.Context) {
	pubsub := h.Storage.SubscribeLifecycle(ctx)
	if pubsub == nil {
		h.Logger.Warn("live feed disabled: no Redis subscription")
		return
	}
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var ev models.LifecycleEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			h.Logger.Warn("dropping malformed lifecycle event", zap.Error(err))
			continue
		}
		select {
		case h.broadcastCh <- ev:
		case <-ctx.Done():
			return
		}
	}
}
