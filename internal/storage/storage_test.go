package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sunportal/backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T, withRedis bool) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	var rdb *redis.Client
	if withRedis {
		mr := miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}

	st := NewService(db, rdb, zap.NewNop())
	require.NoError(t, st.Migrate())
	return st
}

func newComplaint(ticket string) *models.Complaint {
	return &models.Complaint{
		TicketID:     ticket,
		Department:   "CSE",
		Category:     models.CategoryInfrastructure,
		Title:        "Broken lab chairs",
		Description:  "description body",
		Urgency:      models.UrgencyLow,
		Status:       models.StatusPendingReview,
		RoutingLevel: models.RoutingHoD,
	}
}

func TestCreateComplaintWritesFirstEvent(t *testing.T) {
	st := newTestService(t, true)
	ctx := context.Background()

	c := newComplaint("SUN-2026-0001")
	first := models.TimelineEvent{Action: "Complaint Submitted", Actor: "Anonymous"}
	require.NoError(t, st.CreateComplaint(ctx, c, first))
	assert.NotEmpty(t, c.ID)

	got, err := st.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, 1, got.Timeline[0].Seq)
	assert.Equal(t, "Complaint Submitted", got.Timeline[0].Action)
	assert.False(t, got.Timeline[0].Timestamp.IsZero())
}

func TestUpdateComplaintAppendsInOrder(t *testing.T) {
	st := newTestService(t, true)
	ctx := context.Background()

	c := newComplaint("SUN-2026-0001")
	require.NoError(t, st.CreateComplaint(ctx, c, models.TimelineEvent{Action: "Complaint Submitted", Actor: "A"}))

	for i := 0; i < 3; i++ {
		_, err := st.UpdateComplaint(ctx, c.ID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
			return &models.TimelineEvent{Action: fmt.Sprintf("Step %d", i), Actor: models.SystemActor}, nil
		})
		require.NoError(t, err)
	}

	got, err := st.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Timeline, 4)
	for i, ev := range got.Timeline {
		assert.Equal(t, i+1, ev.Seq)
	}
	assert.Equal(t, "Step 2", got.Timeline[3].Action)
}

func TestUpdateComplaintIsAllOrNothing(t *testing.T) {
	st := newTestService(t, true)
	ctx := context.Background()

	c := newComplaint("SUN-2026-0001")
	require.NoError(t, st.CreateComplaint(ctx, c, models.TimelineEvent{Action: "Complaint Submitted", Actor: "A"}))

	boom := errors.New("boom")
	_, err := st.UpdateComplaint(ctx, c.ID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
		c.Status = models.StatusEscalated
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := st.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, got.Status)
	assert.Len(t, got.Timeline, 1)
}

func TestUpdateComplaintNilEventSkipsTimeline(t *testing.T) {
	st := newTestService(t, true)
	ctx := context.Background()

	c := newComplaint("SUN-2026-0001")
	require.NoError(t, st.CreateComplaint(ctx, c, models.TimelineEvent{Action: "Complaint Submitted", Actor: "A"}))

	_, err := st.UpdateComplaint(ctx, c.ID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
		c.FacultyResponse = "noted"
		return nil, nil
	})
	require.NoError(t, err)

	got, err := st.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "noted", got.FacultyResponse)
	assert.Len(t, got.Timeline, 1)
}

func TestNextTicketSeq(t *testing.T) {
	t.Run("redis sequence", func(t *testing.T) {
		st := newTestService(t, true)
		ctx := context.Background()

		seq, err := st.NextTicketSeq(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(1), seq)

		seq, err = st.NextTicketSeq(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(2), seq)

		// Sequences are per year.
		seq, err = st.NextTicketSeq(ctx, 2027)
		require.NoError(t, err)
		assert.Equal(t, int64(1), seq)
	})

	t.Run("db fallback without redis", func(t *testing.T) {
		st := newTestService(t, false)
		ctx := context.Background()

		require.NoError(t, st.CreateComplaint(ctx, newComplaint("SUN-2026-0001"),
			models.TimelineEvent{Action: "Complaint Submitted", Actor: "A"}))

		seq, err := st.NextTicketSeq(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(2), seq)
	})
}

func TestCountStudents(t *testing.T) {
	st := newTestService(t, true)
	ctx := context.Background()

	seed := func(id string, role models.Role, dept string) {
		require.NoError(t, st.SaveUser(ctx, &models.User{
			ID: id, Name: id, Role: role, Department: dept, Email: id + "@example.edu",
		}))
	}
	seed("s1", models.RoleStudent, "CSE")
	seed("s2", models.RoleStudent, "CSE")
	seed("s3", models.RoleStudent, "ME")
	seed("f1", models.RoleFaculty, "CSE")

	count, err := st.CountStudents(ctx, "CSE")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = st.CountStudents(ctx, "EEE")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestVoterFastPath(t *testing.T) {
	st := newTestService(t, true)
	ctx := context.Background()

	assert.False(t, st.HasVotedFast(ctx, "c1", "v1"))
	st.MarkVotedFast(ctx, "c1", "v1")
	assert.True(t, st.HasVotedFast(ctx, "c1", "v1"))
	assert.False(t, st.HasVotedFast(ctx, "c2", "v1"))
}

func TestDueComplaintIDs(t *testing.T) {
	st := newTestService(t, true)
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := newComplaint("SUN-2026-0001")
	due.EscalationDeadline = &past
	require.NoError(t, st.CreateComplaint(ctx, due, models.TimelineEvent{Action: "Complaint Submitted", Actor: "A"}))

	notDue := newComplaint("SUN-2026-0002")
	notDue.EscalationDeadline = &future
	require.NoError(t, st.CreateComplaint(ctx, notDue, models.TimelineEvent{Action: "Complaint Submitted", Actor: "A"}))

	review := newComplaint("SUN-2026-0003")
	review.Status = models.StatusCommunityReview
	review.VotingDeadline = &past
	require.NoError(t, st.CreateComplaint(ctx, review, models.TimelineEvent{Action: "Complaint Submitted", Actor: "A"}))

	closed := newComplaint("SUN-2026-0004")
	closed.Status = models.StatusResolved
	require.NoError(t, st.CreateComplaint(ctx, closed, models.TimelineEvent{Action: "Complaint Submitted", Actor: "A"}))

	ids, err := st.DueComplaintIDs(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{due.ID, review.ID}, ids)
}

func TestStatusCounts(t *testing.T) {
	st := newTestService(t, true)
	ctx := context.Background()

	seed := func(ticket string, status models.Status) {
		c := newComplaint(ticket)
		c.Status = status
		require.NoError(t, st.CreateComplaint(ctx, c, models.TimelineEvent{Action: "Complaint Submitted", Actor: "A"}))
	}
	seed("SUN-2026-0001", models.StatusPendingReview)
	seed("SUN-2026-0002", models.StatusUnderInvestigation)
	seed("SUN-2026-0003", models.StatusCommunityReview)
	seed("SUN-2026-0004", models.StatusEscalated)
	seed("SUN-2026-0005", models.StatusResolved)
	seed("SUN-2026-0006", models.StatusDismissed)

	stats, err := st.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Total)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(2), stats.UnderReview)
	assert.Equal(t, int64(1), stats.Escalated)
	assert.Equal(t, int64(1), stats.Resolved)
	assert.Equal(t, int64(1), stats.Dismissed)
}

func TestPublishLifecycleRoundtrip(t *testing.T) {
	st := newTestService(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := st.SubscribeLifecycle(ctx)
	require.NotNil(t, pubsub)
	defer pubsub.Close()

	// Establish the subscription before publishing.
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	ev := models.LifecycleEvent{
		ComplaintID: "c1", TicketID: "SUN-2026-0001",
		Action: "Complaint Submitted", Actor: "Anonymous",
		Status: models.StatusPendingReview, RoutingLevel: models.RoutingHoD,
		Timestamp: time.Now(),
	}
	require.NoError(t, st.PublishLifecycle(ctx, ev))

	select {
	case msg := <-pubsub.Channel():
		assert.Contains(t, msg.Payload, "SUN-2026-0001")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}
