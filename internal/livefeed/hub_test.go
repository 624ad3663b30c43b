package livefeed

import (
	"context"
	"testing"
	"time"

	"sunportal/backend/internal/models"
	"sunportal/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	// No Redis: events are injected through Broadcast.
	hub := NewHub(storage.NewService(nil, nil, zap.NewNop()), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func recvEvent(t *testing.T, ch chan models.LifecycleEvent) models.LifecycleEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "send channel closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return models.LifecycleEvent{}
	}
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	a := &Client{Send: make(chan models.LifecycleEvent, 1)}
	b := &Client{Send: make(chan models.LifecycleEvent, 1)}
	hub.RegisterCh <- a
	hub.RegisterCh <- b

	ev := models.LifecycleEvent{TicketID: "SUN-2026-0001", Action: "Complaint Submitted"}
	hub.Broadcast(ev)

	assert.Equal(t, "SUN-2026-0001", recvEvent(t, a.Send).TicketID)
	assert.Equal(t, "SUN-2026-0001", recvEvent(t, b.Send).TicketID)
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	a := &Client{Send: make(chan models.LifecycleEvent, 1)}
	b := &Client{Send: make(chan models.LifecycleEvent, 1)}
	hub.RegisterCh <- a
	hub.RegisterCh <- b
	hub.UnregisterCh <- a

	// The unregistered client's channel is closed by the hub.
	select {
	case _, ok := <-a.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected closed send channel")
	}

	hub.Broadcast(models.LifecycleEvent{Action: "Investigation Opened"})
	assert.Equal(t, "Investigation Opened", recvEvent(t, b.Send).Action)
}

func TestHubDropsSlowClients(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	slow := &Client{Send: make(chan models.LifecycleEvent)} // unbuffered, never read
	ok := &Client{Send: make(chan models.LifecycleEvent, 2)}
	hub.RegisterCh <- slow
	hub.RegisterCh <- ok

	hub.Broadcast(models.LifecycleEvent{Action: "one"})
	hub.Broadcast(models.LifecycleEvent{Action: "two"})

	assert.Equal(t, "one", recvEvent(t, ok.Send).Action)
	assert.Equal(t, "two", recvEvent(t, ok.Send).Action)

	select {
	case _, open := <-slow.Send:
		assert.False(t, open, "slow client channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("expected slow client to be dropped")
	}
}
