package escalation

import (
	"context"
	"sync"
	"testing"
	"time"

	"sunportal/backend/internal/models"
	"sunportal/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *storage.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	st := storage.NewService(db, rdb, zap.NewNop())
	require.NoError(t, st.Migrate())
	return st
}

type capturePublisher struct {
	mu     sync.Mutex
	events []models.LifecycleEvent
}

func (p *capturePublisher) PublishLifecycle(_ context.Context, ev models.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func seedComplaint(t *testing.T, st *storage.Service, mut func(c *models.Complaint)) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		TicketID:     "SUN-2026-" + time.Now().Format("050405.000"),
		Department:   "CSE",
		Category:     models.CategoryInfrastructure,
		Title:        "Hostel wiring hazard",
		Description:  "description body",
		Urgency:      models.UrgencyMedium,
		Status:       models.StatusPendingReview,
		RoutingLevel: models.RoutingHoD,
	}
	mut(c)
	first := models.TimelineEvent{Action: "Complaint Submitted", Actor: "Anonymous"}
	require.NoError(t, st.CreateComplaint(context.Background(), c, first))
	return c
}

func TestSweepEscalatesSupportedReview(t *testing.T) {
	st := newTestStore(t)
	pub := &capturePublisher{}
	w := NewSweeper(st, pub, zap.NewNop())
	now := time.Now()

	past := now.Add(-time.Hour)
	c := seedComplaint(t, st, func(c *models.Complaint) {
		c.Status = models.StatusCommunityReview
		c.VotingDeadline = &past
		c.SupportVotes = 46
		c.RejectVotes = 2
		c.TotalEligibleVoters = 90
	})

	applied, err := w.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	got, err := st.GetComplaintByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEscalated, got.Status)
	assert.True(t, got.AutoEscalated)
	assert.Nil(t, got.VotingDeadline)
	assert.Nil(t, got.EscalationDeadline)

	require.Len(t, got.Timeline, 2)
	assert.Equal(t, "Auto-Escalated After Community Vote", got.Timeline[1].Action)
	assert.Equal(t, models.SystemActor, got.Timeline[1].Actor)

	require.Len(t, pub.events, 1)
	assert.True(t, pub.events[0].AutoEscalated)
	assert.Equal(t, models.StatusEscalated, pub.events[0].Status)
}

func TestSweepDismissesUnsupportedReview(t *testing.T) {
	st := newTestStore(t)
	w := NewSweeper(st, nil, zap.NewNop())
	now := time.Now()

	past := now.Add(-time.Minute)
	c := seedComplaint(t, st, func(c *models.Complaint) {
		c.Status = models.StatusCommunityReview
		c.VotingDeadline = &past
		c.SupportVotes = 10
		c.RejectVotes = 40
		c.TotalEligibleVoters = 90
	})

	applied, err := w.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	got, err := st.GetComplaintByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDismissed, got.Status)
	assert.False(t, got.AutoEscalated)
	assert.Equal(t, "Dismissed After Community Vote", got.Timeline[1].Action)
}

func TestSweepEscalatesPastDeadlineAndRaisesTier(t *testing.T) {
	st := newTestStore(t)
	w := NewSweeper(st, nil, zap.NewNop())
	now := time.Now()

	past := now.Add(-time.Hour)
	hod := seedComplaint(t, st, func(c *models.Complaint) {
		c.EscalationDeadline = &past
	})
	principal := seedComplaint(t, st, func(c *models.Complaint) {
		c.TicketID = "SUN-2026-9999"
		c.Status = models.StatusUnderInvestigation
		c.RoutingLevel = models.RoutingPrincipal
		c.EscalationDeadline = &past
	})

	applied, err := w.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	got, err := st.GetComplaintByID(context.Background(), hod.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEscalated, got.Status)
	assert.Equal(t, models.RoutingPrincipal, got.RoutingLevel)
	assert.True(t, got.AutoEscalated)
	assert.Nil(t, got.EscalationDeadline)

	got, err = st.GetComplaintByID(context.Background(), principal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEscalated, got.Status)
	assert.Equal(t, models.RoutingDirector, got.RoutingLevel)
}

func TestSweepIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	w := NewSweeper(st, nil, zap.NewNop())
	now := time.Now()

	past := now.Add(-time.Hour)
	seedComplaint(t, st, func(c *models.Complaint) {
		c.EscalationDeadline = &past
	})

	applied, err := w.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	applied, err = w.SweepOnce(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestSweepLeavesFutureDeadlinesAlone(t *testing.T) {
	st := newTestStore(t)
	w := NewSweeper(st, nil, zap.NewNop())
	now := time.Now()

	future := now.Add(time.Hour)
	c := seedComplaint(t, st, func(c *models.Complaint) {
		c.EscalationDeadline = &future
	})

	applied, err := w.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	got, err := st.GetComplaintByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, got.Status)
	require.Len(t, got.Timeline, 1)
}
