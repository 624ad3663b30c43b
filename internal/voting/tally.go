// Package voting counts community-review ballots. One student, one vote,
// departmental cohort only, and only while the voting window is open. The
// tally is advisory until the deadline sweep settles it.
package voting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sunportal/backend/internal/authz"
	"sunportal/backend/internal/complaint"
	"sunportal/backend/internal/config"
	"sunportal/backend/internal/models"
	"sunportal/backend/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	Storage   storage.Storage
	Logger    *zap.Logger
	Threshold float64
}

func NewService(st storage.Storage, logger *zap.Logger) *Service {
	return &Service{Storage: st, Logger: logger, Threshold: config.SupportThreshold}
}

// CastVote records one ballot. Dedup is checked three times over: the Redis
// voter set (cheap rejection before any lock), the vote row under the row
// lock, and the unique index as the final backstop.
func (s *Service) CastVote(ctx context.Context, actor *models.User, complaintID string, choice models.VoteChoice) (*models.Complaint, error) {
	if !choice.Valid() {
		return nil, fmt.Errorf("%w: unknown vote choice %q", complaint.ErrValidation, choice)
	}
	if !authz.Allowed(actor.Role, authz.ActionVote) {
		return nil, fmt.Errorf("%w: role %s cannot vote", complaint.ErrNotAuthorized, actor.Role)
	}
	if s.Storage.HasVotedFast(ctx, complaintID, actor.ID) {
		return nil, fmt.Errorf("%w: voter %s already has a counted vote on this complaint", complaint.ErrAlreadyVoted, actor.ID)
	}

	c, err := s.Storage.UpdateComplaint(ctx, complaintID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
		if c.Status != models.StatusCommunityReview {
			return nil, fmt.Errorf("%w: complaint is in status %s", complaint.ErrVotingClosed, c.Status)
		}
		if c.VotingDeadline == nil || time.Now().After(*c.VotingDeadline) {
			return nil, fmt.Errorf("%w: the voting window has ended", complaint.ErrVotingClosed)
		}
		if actor.Department != c.Department {
			return nil, fmt.Errorf("%w: voter department %s, complaint department %s",
				complaint.ErrNotEligible, actor.Department, c.Department)
		}
		if c.SupportVotes+c.RejectVotes >= c.TotalEligibleVoters {
			return nil, fmt.Errorf("%w: all %d eligible voters have voted", complaint.ErrVotingClosed, c.TotalEligibleVoters)
		}
		var dup int64
		if err := tx.Model(&models.Vote{}).
			Where("complaint_id = ? AND voter_id = ?", complaintID, actor.ID).
			Count(&dup).Error; err != nil {
			return nil, fmt.Errorf("check prior vote: %w", err)
		}
		if dup > 0 {
			return nil, fmt.Errorf("%w: voter %s already has a counted vote on this complaint", complaint.ErrAlreadyVoted, actor.ID)
		}
		vote := models.Vote{ComplaintID: complaintID, VoterID: actor.ID, Choice: choice}
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("%w: voter %s already has a counted vote on this complaint", complaint.ErrAlreadyVoted, actor.ID)
			}
			return nil, fmt.Errorf("record vote: %w", err)
		}
		if choice == models.VoteSupport {
			c.SupportVotes++
		} else {
			c.RejectVotes++
		}
		return &models.TimelineEvent{
			Action: "Community Vote Recorded",
			Actor:  "Community",
			Note:   fmt.Sprintf("%d support / %d reject of %d eligible", c.SupportVotes, c.RejectVotes, c.TotalEligibleVoters),
		}, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, complaint.ErrNotFound
		}
		return nil, err
	}

	s.Storage.MarkVotedFast(ctx, complaintID, actor.ID)
	out := *c
	out.Redact()
	return &out, nil
}

// SupportRatio is support votes over total votes cast. A complaint nobody
// voted on has ratio zero.
func SupportRatio(c *models.Complaint) float64 {
	total := c.SupportVotes + c.RejectVotes
	if total == 0 {
		return 0
	}
	return float64(c.SupportVotes) / float64(total)
}

// Participation is votes cast over the snapshotted eligible cohort.
func Participation(c *models.Complaint) float64 {
	if c.TotalEligibleVoters == 0 {
		return 0
	}
	return float64(c.SupportVotes+c.RejectVotes) / float64(c.TotalEligibleVoters)
}

// EscalationEligible reports whether the tally currently clears the support
// threshold. It is a badge until the voting deadline; only the sweep turns
// it into a transition.
func EscalationEligible(c *models.Complaint, threshold float64) bool {
	if c.SupportVotes+c.RejectVotes == 0 {
		return false
	}
	return SupportRatio(c) >= threshold
}

// Eligible is EscalationEligible against the service threshold.
func (s *Service) Eligible(c *models.Complaint) bool {
	return EscalationEligible(c, s.Threshold)
}
