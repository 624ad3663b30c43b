// Package storage persists complaints in PostgreSQL and keeps hot state
// (ticket sequences, voter dedup sets, the lifecycle event feed) in Redis.
// Every complaint is an independently lockable unit: all mutations run
// through UpdateComplaint, which serializes writers on the complaint row.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sunportal/backend/internal/config"
	"sunportal/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoChange is returned by a mutate callback to roll back without error
// reporting: the complaint was already in the desired state (e.g. a second
// sweep observing an applied transition).
var ErrNoChange = errors.New("complaint unchanged")

// MutateFunc runs inside the per-complaint transaction while the row lock is
// held. It may use tx for auxiliary writes (vote rows). Returning a non-nil
// event appends it to the timeline in the same transaction; returning an
// error rolls everything back.
type MutateFunc func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error)

// ComplaintFilter narrows list queries for the UI list views.
type ComplaintFilter struct {
	Status     models.Status
	Category   models.ComplaintCategory
	Department string
}

type Storage interface {
	CreateComplaint(ctx context.Context, c *models.Complaint, first models.TimelineEvent) error
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	GetComplaintByTicketID(ctx context.Context, ticketID string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error)
	UpdateComplaint(ctx context.Context, id string, mutate MutateFunc) (*models.Complaint, error)
	DueComplaintIDs(ctx context.Context, now time.Time) ([]string, error)

	HasVotedFast(ctx context.Context, complaintID, voterID string) bool
	MarkVotedFast(ctx context.Context, complaintID, voterID string)

	NextTicketSeq(ctx context.Context, year int) (int64, error)
	CountStudents(ctx context.Context, department string) (int64, error)
	StatusCounts(ctx context.Context) (models.DashboardStats, error)

	SaveUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	PublishLifecycle(ctx context.Context, ev models.LifecycleEvent) error
}

// lifecycleChannel is the Redis pub/sub channel carrying lifecycle events to
// the live feed hubs.
const lifecycleChannel = "complaints:events"

type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *zap.Logger
}

// NewService creates the storage service. Redis may be nil for offline
// tooling; the Redis-backed fast paths then degrade to their DB fallbacks.
func NewService(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Service {
	return &Service{DB: db, Redis: rdb, Logger: logger}
}

// Migrate creates or updates the schema for every model the portal owns.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.TimelineEvent{},
		&models.Vote{},
	)
}

// CreateComplaint persists a new complaint together with its first timeline
// event in one transaction. The ledger is never empty.
func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint, first models.TimelineEvent) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("create complaint: %w", err)
		}
		first.ComplaintID = c.ID
		first.Seq = 1
		if err := tx.Create(&first).Error; err != nil {
			return fmt.Errorf("append first timeline event: %w", err)
		}
		c.Timeline = []models.TimelineEvent{first}
		return nil
	})
}

func (s *Service) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("Timeline", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) GetComplaintByTicketID(ctx context.Context, ticketID string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("Timeline", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&c, "ticket_id = ?", ticketID).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	q := s.DB.WithContext(ctx).Model(&models.Complaint{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Department != "" {
		q = q.Where("department = ?", f.Department)
	}
	var out []models.Complaint
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateComplaint loads the complaint under a row lock, applies mutate, and
// commits the field changes together with the returned timeline event.
// A transition that cannot append its event does not happen. The returned
// complaint carries the fresh field values but no preloaded timeline.
func (s *Service) UpdateComplaint(ctx context.Context, id string, mutate MutateFunc) (*models.Complaint, error) {
	var out *models.Complaint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			// SQLite (tests) has no row locks; its writer lock serializes
			// transactions instead.
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var c models.Complaint
		if err := q.First(&c, "id = ?", id).Error; err != nil {
			return err
		}

		ev, err := mutate(tx, &c)
		if err != nil {
			return err
		}
		if ev != nil {
			var count int64
			if err := tx.Model(&models.TimelineEvent{}).Where("complaint_id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("count timeline events: %w", err)
			}
			ev.ComplaintID = id
			ev.Seq = int(count) + 1
			if err := tx.Create(ev).Error; err != nil {
				return fmt.Errorf("append timeline event: %w", err)
			}
		}
		if err := tx.Save(&c).Error; err != nil {
			return fmt.Errorf("save complaint: %w", err)
		}
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DueComplaintIDs returns the IDs of every complaint whose governing deadline
// has lapsed at the given instant.
func (s *Service) DueComplaintIDs(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where(
			"(status IN ? AND escalation_deadline IS NOT NULL AND escalation_deadline <= ?) OR (status = ? AND voting_deadline IS NOT NULL AND voting_deadline <= ?)",
			[]models.Status{models.StatusPendingReview, models.StatusUnderInvestigation}, now,
			models.StatusCommunityReview, now,
		).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func voterSetKey(complaintID string) string {
	return "voters:" + complaintID
}

// HasVotedFast is the Redis fast path of the one-vote-per-voter check. A
// false answer is not authoritative: the vote row's unique index inside the
// locked transaction is.
func (s *Service) HasVotedFast(ctx context.Context, complaintID, voterID string) bool {
	if s.Redis == nil {
		return false
	}
	voted, err := s.Redis.SIsMember(ctx, voterSetKey(complaintID), voterID).Result()
	if err != nil {
		s.Logger.Warn("voter set lookup failed, falling back to DB check", zap.Error(err))
		return false
	}
	return voted
}

// MarkVotedFast records a counted vote in the Redis dedup set.
func (s *Service) MarkVotedFast(ctx context.Context, complaintID, voterID string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.SAdd(ctx, voterSetKey(complaintID), voterID).Err(); err != nil {
		s.Logger.Warn("failed to mark voter in redis", zap.Error(err))
	}
}

// NextTicketSeq hands out the next ticket sequence number for a year via an
// atomic Redis INCR. When Redis is unavailable it falls back to counting the
// year's tickets; the unique index on ticket_id backstops collisions.
func (s *Service) NextTicketSeq(ctx context.Context, year int) (int64, error) {
	if s.Redis != nil {
		seq, err := s.Redis.Incr(ctx, fmt.Sprintf("ticket_seq:%d", year)).Result()
		if err == nil {
			return seq, nil
		}
		s.Logger.Warn("ticket sequence INCR failed, falling back to DB count", zap.Error(err))
	}

	var count int64
	prefix := fmt.Sprintf("%s-%d-%%", config.TicketPrefix, year)
	if err := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where("ticket_id LIKE ?", prefix).Count(&count).Error; err != nil {
		return 0, err
	}
	return count + 1, nil
}

// CountStudents counts the eligible-voter cohort of a department.
func (s *Service) CountStudents(ctx context.Context, department string) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND department = ?", models.RoleStudent, department).
		Count(&count).Error
	return count, err
}

func (s *Service) StatusCounts(ctx context.Context) (models.DashboardStats, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return models.DashboardStats{}, err
	}

	var stats models.DashboardStats
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.StatusPendingReview:
			stats.Pending += row.Count
		case models.StatusUnderInvestigation, models.StatusCommunityReview:
			stats.UnderReview += row.Count
		case models.StatusEscalated:
			stats.Escalated += row.Count
		case models.StatusResolved:
			stats.Resolved += row.Count
		case models.StatusDismissed:
			stats.Dismissed += row.Count
		}
	}
	return stats, nil
}

func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// PublishLifecycle pushes a lifecycle event onto the Redis feed channel for
// the live feed hubs. A nil Redis client makes it a no-op.
func (s *Service) PublishLifecycle(ctx context.Context, ev models.LifecycleEvent) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, lifecycleChannel, payload).Err()
}

// SubscribeLifecycle subscribes to the lifecycle event feed. Returns nil
// when no Redis client is configured.
func (s *Service) SubscribeLifecycle(ctx context.Context) *redis.PubSub {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Subscribe(ctx, lifecycleChannel)
}
