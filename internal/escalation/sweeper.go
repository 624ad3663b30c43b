// Package escalation runs the deadline sweep: a periodic scan that settles
// every complaint whose escalation or voting deadline has lapsed. The sweep
// is idempotent; a complaint settled once reports no change on every later
// pass.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sunportal/backend/internal/complaint"
	"sunportal/backend/internal/config"
	"sunportal/backend/internal/models"
	"sunportal/backend/internal/notify"
	"sunportal/backend/internal/storage"
	"sunportal/backend/internal/voting"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Sweeper struct {
	Storage   storage.Storage
	Events    notify.Publisher
	Logger    *zap.Logger
	Interval  time.Duration
	Threshold float64
}

func NewSweeper(st storage.Storage, events notify.Publisher, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		Storage:   st,
		Events:    events,
		Logger:    logger,
		Interval:  config.SweepInterval,
		Threshold: config.SupportThreshold,
	}
}

// Run ticks until the context ends. Deadlines are therefore honored with up
// to one interval of slack, never enforced early.
func (w *Sweeper) Run(ctx context.Context) {
	w.Logger.Info("escalation sweeper started", zap.Duration("interval", w.Interval))
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("escalation sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.SweepOnce(ctx, time.Now()); err != nil {
				w.Logger.Error("sweep pass failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce settles every complaint due at the given instant and returns how
// many transitions it applied. One failing complaint never blocks the rest.
func (w *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	ids, err := w.Storage.DueComplaintIDs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due complaints: %w", err)
	}
	applied := 0
	for _, id := range ids {
		if err := w.sweepComplaint(ctx, id, now); err != nil {
			if errors.Is(err, storage.ErrNoChange) {
				continue
			}
			w.Logger.Error("failed to settle lapsed complaint",
				zap.String("complaint_id", id), zap.Error(err))
			continue
		}
		applied++
	}
	return applied, nil
}

func (w *Sweeper) sweepComplaint(ctx context.Context, id string, now time.Time) error {
	var settled *models.Complaint
	var appended *models.TimelineEvent

	op := func() error {
		c, err := w.Storage.UpdateComplaint(ctx, id, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
			ev, err := w.settle(c, now)
			if err != nil {
				return nil, err
			}
			appended = ev
			return ev, nil
		})
		if err != nil {
			// ErrNoChange means another writer got there first; a plain
			// storage failure is as if the sweep never ran, so retry it.
			if errors.Is(err, storage.ErrNoChange) {
				return backoff.Permanent(err)
			}
			return err
		}
		settled = c
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = config.SweepRetryWindow
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, config.SweepMaxRetries), ctx)); err != nil {
		return err
	}

	if w.Events != nil && appended != nil {
		_ = w.Events.PublishLifecycle(ctx, models.LifecycleEvent{
			ComplaintID:   settled.ID,
			TicketID:      settled.TicketID,
			Action:        appended.Action,
			Actor:         appended.Actor,
			Status:        settled.Status,
			RoutingLevel:  settled.RoutingLevel,
			AutoEscalated: settled.AutoEscalated,
			Note:          appended.Note,
			Timestamp:     appended.Timestamp,
		})
	}
	return nil
}

// settle decides the fate of one lapsed complaint while its row lock is
// held. It re-checks status and deadline against the locked row, so a
// concurrent manual transition turns the sweep into a no-op.
func (w *Sweeper) settle(c *models.Complaint, now time.Time) (*models.TimelineEvent, error) {
	switch c.Status {
	case models.StatusCommunityReview:
		if c.VotingDeadline == nil || c.VotingDeadline.After(now) {
			return nil, storage.ErrNoChange
		}
		ratio := voting.SupportRatio(c)
		if voting.EscalationEligible(c, w.Threshold) {
			if err := complaint.ApplyTransition(c, models.StatusEscalated); err != nil {
				return nil, err
			}
			c.AutoEscalated = true
			return &models.TimelineEvent{
				Action: "Auto-Escalated After Community Vote",
				Actor:  models.SystemActor,
				Note:   fmt.Sprintf("Support %.0f%% met the %.0f%% threshold", ratio*100, w.Threshold*100),
			}, nil
		}
		if err := complaint.ApplyTransition(c, models.StatusDismissed); err != nil {
			return nil, err
		}
		return &models.TimelineEvent{
			Action: "Dismissed After Community Vote",
			Actor:  models.SystemActor,
			Note:   fmt.Sprintf("Support %.0f%% fell short of the %.0f%% threshold at the deadline", ratio*100, w.Threshold*100),
		}, nil

	case models.StatusPendingReview, models.StatusUnderInvestigation:
		if c.EscalationDeadline == nil || c.EscalationDeadline.After(now) {
			return nil, storage.ErrNoChange
		}
		from := c.RoutingLevel
		if err := complaint.ApplyTransition(c, models.StatusEscalated); err != nil {
			return nil, err
		}
		c.AutoEscalated = true
		note := fmt.Sprintf("Unresolved at the %s tier past the deadline", from)
		if next, ok := from.Next(); ok {
			c.RoutingLevel = next
			note = fmt.Sprintf("Unresolved at the %s tier past the deadline; raised to %s", from, next)
		}
		return &models.TimelineEvent{
			Action: "Auto-Escalated Past Deadline",
			Actor:  models.SystemActor,
			Note:   note,
		}, nil

	default:
		// Already settled by a manual transition between the scan and the
		// lock acquisition.
		return nil, storage.ErrNoChange
	}
}
