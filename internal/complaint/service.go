// Package complaint implements the lifecycle engine: submission, manual
// transitions, committee decisions and the read paths. Every mutation runs
// under the per-complaint storage lock and appends exactly one timeline
// event in the same transaction.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sunportal/backend/internal/authz"
	"sunportal/backend/internal/config"
	"sunportal/backend/internal/models"
	"sunportal/backend/internal/notify"
	"sunportal/backend/internal/routing"
	"sunportal/backend/internal/security"
	"sunportal/backend/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Scorer produces the post-submission screening annotation. Scoring is
// best-effort: submission never waits on it and never fails because of it.
type Scorer interface {
	Score(ctx context.Context, title, description string) (*models.AIAnnotation, error)
}

const scoreTimeout = 30 * time.Second

type Service struct {
	Storage storage.Storage
	Events  notify.Publisher
	Scorer  Scorer
	Codec   *security.Codec
	Logger  *zap.Logger
}

// NewService wires the engine. Scorer may be nil when no screening backend
// is configured.
func NewService(st storage.Storage, events notify.Publisher, scorer Scorer, codec *security.Codec, logger *zap.Logger) *Service {
	return &Service{Storage: st, Events: events, Scorer: scorer, Codec: codec, Logger: logger}
}

// SubmitInput is the submission form. Department and year default to the
// submitter's own when empty. RoutingOverride pins the initial tier instead
// of resolving it from category and urgency; only admins may set it.
type SubmitInput struct {
	Title           string                   `json:"title"`
	Description     string                   `json:"description"`
	Category        models.ComplaintCategory `json:"category"`
	Urgency         models.Urgency           `json:"urgency"`
	Department      string                   `json:"department"`
	Year            string                   `json:"year"`
	Anonymous       bool                     `json:"anonymous"`
	Evidence        []string                 `json:"evidence"`
	RoutingOverride models.RoutingLevel      `json:"routingLevelOverride"`
}

// Submit validates the form, resolves the initial routing tier, assigns a
// ticket number and persists the complaint with its first timeline event.
func (s *Service) Submit(ctx context.Context, actor *models.User, in SubmitInput) (*models.Complaint, error) {
	if !authz.Allowed(actor.Role, authz.ActionSubmit) {
		return nil, fmt.Errorf("%w: role %s cannot submit complaints", ErrNotAuthorized, actor.Role)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}
	if in.Urgency == "" {
		in.Urgency = models.UrgencyMedium
	}
	if !in.Urgency.Valid() {
		return nil, fmt.Errorf("%w: unknown urgency %q", ErrValidation, in.Urgency)
	}
	if words := len(strings.Fields(in.Description)); words < config.MinDescriptionWords {
		return nil, fmt.Errorf("%w: description has %d words, need at least %d", ErrValidation, words, config.MinDescriptionWords)
	}
	if in.Department == "" {
		in.Department = actor.Department
	}
	if in.Department == "" {
		return nil, fmt.Errorf("%w: department is required", ErrValidation)
	}
	if in.Year == "" {
		in.Year = actor.Year
	}

	level := routing.Resolve(in.Category, in.Urgency)
	if in.RoutingOverride != "" {
		if actor.Role != models.RoleAdmin {
			return nil, fmt.Errorf("%w: role %s cannot override the routing level", ErrNotAuthorized, actor.Role)
		}
		if !in.RoutingOverride.Valid() {
			return nil, fmt.Errorf("%w: unknown routing level %q", ErrValidation, in.RoutingOverride)
		}
		level = in.RoutingOverride
	}

	now := time.Now()
	seq, err := s.Storage.NextTicketSeq(ctx, now.Year())
	if err != nil {
		return nil, fmt.Errorf("allocate ticket: %w", err)
	}

	c := &models.Complaint{
		TicketID:           fmt.Sprintf("%s-%d-%04d", config.TicketPrefix, now.Year(), seq),
		Anonymous:          in.Anonymous,
		Department:         in.Department,
		Year:               in.Year,
		Category:           in.Category,
		Title:              strings.TrimSpace(in.Title),
		Description:        in.Description,
		Urgency:            in.Urgency,
		Evidence:           in.Evidence,
		Status:             models.StatusPendingReview,
		RoutingLevel:       level,
		EscalationDeadline: routing.DeadlineFrom(level, now),
		CreatedAt:          now,
	}

	submittedBy := actor.Name
	if in.Anonymous {
		submittedBy = "Anonymous"
		ref, err := s.Codec.Encrypt(actor.ID)
		if err != nil {
			return nil, fmt.Errorf("seal submitter reference: %w", err)
		}
		c.SubmitterRef = ref
	} else {
		c.SubmitterName = actor.Name
		c.RollNumber = actor.RollNumber
	}

	first := models.TimelineEvent{
		Action:    "Complaint Submitted",
		Actor:     submittedBy,
		Note:      fmt.Sprintf("Routed to %s", level),
		Timestamp: now,
	}
	if err := s.Storage.CreateComplaint(ctx, c, first); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	s.publish(ctx, c, &first)

	if s.Scorer != nil {
		go s.scoreAsync(c.ID, c.Title, c.Description)
	}

	out := *c
	out.Redact()
	return &out, nil
}

// scoreAsync runs the screening backend and records its annotation. The
// annotation is written at most once; a transition racing ahead of it is
// never blocked or reverted.
func (s *Service) scoreAsync(complaintID, title, description string) {
	ctx, cancel := context.WithTimeout(context.Background(), scoreTimeout)
	defer cancel()

	ann, err := s.Scorer.Score(ctx, title, description)
	if err != nil {
		s.Logger.Warn("complaint screening failed",
			zap.String("complaint_id", complaintID), zap.Error(err))
		return
	}

	_, err = s.Storage.UpdateComplaint(ctx, complaintID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
		// A complaint settled before the scorer returned stays untouched:
		// terminal records take no field edits and no timeline entries.
		if c.AIRiskScore != nil || c.Status.Terminal() {
			return nil, storage.ErrNoChange
		}
		risk := ann.RiskScore
		c.AIRiskScore = &risk
		c.AISentiment = ann.Sentiment
		tox, dup := ann.Toxicity, ann.Duplicate
		c.AIToxicity = &tox
		c.AIDuplicate = &dup
		return &models.TimelineEvent{
			Action: "Screening Recorded",
			Actor:  models.SystemActor,
			Note:   fmt.Sprintf("Risk %d/100, sentiment %s", risk, ann.Sentiment),
		}, nil
	})
	if err != nil && !errors.Is(err, storage.ErrNoChange) {
		s.Logger.Warn("failed to record screening annotation",
			zap.String("complaint_id", complaintID), zap.Error(err))
	}
}

// OpenInvestigation moves a pending complaint under investigation.
func (s *Service) OpenInvestigation(ctx context.Context, actor *models.User, complaintID string) (*models.Complaint, error) {
	return s.mutate(ctx, complaintID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
		if err := s.authorize(actor, authz.ActionOpenInvestigation, c); err != nil {
			return nil, err
		}
		if err := ApplyTransition(c, models.StatusUnderInvestigation); err != nil {
			return nil, err
		}
		return &models.TimelineEvent{Action: "Investigation Opened", Actor: actor.Name}, nil
	})
}

// OpenCommunityReview puts the complaint to a departmental vote. The
// eligible cohort is counted once when voting opens and snapshotted onto the
// complaint, so late enrollment changes never move the bar mid-vote. The
// department is immutable after submission, so the count can safely happen
// before the row lock is taken.
func (s *Service) OpenCommunityReview(ctx context.Context, actor *models.User, complaintID string) (*models.Complaint, error) {
	existing, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	cohort, err := s.Storage.CountStudents(ctx, existing.Department)
	if err != nil {
		return nil, fmt.Errorf("count eligible voters: %w", err)
	}
	return s.mutate(ctx, complaintID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
		if err := s.authorize(actor, authz.ActionOpenCommunityReview, c); err != nil {
			return nil, err
		}
		if err := ApplyTransition(c, models.StatusCommunityReview); err != nil {
			return nil, err
		}
		deadline := time.Now().Add(config.VotingWindow)
		c.VotingDeadline = &deadline
		c.TotalEligibleVoters = int(cohort)
		c.SupportVotes = 0
		c.RejectVotes = 0
		return &models.TimelineEvent{
			Action: "Community Review Opened",
			Actor:  actor.Name,
			Note:   fmt.Sprintf("Voting open to %d students until %s", cohort, deadline.Format(time.RFC3339)),
		}, nil
	})
}

// SubmitFacultyResponse records the faculty side of the story. With resolve
// set, the complaint is closed as Resolved in the same transaction; that is
// only a legal move out of Under Investigation.
func (s *Service) SubmitFacultyResponse(ctx context.Context, actor *models.User, complaintID, response string, resolve bool) (*models.Complaint, error) {
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("%w: response text is required", ErrValidation)
	}
	return s.mutate(ctx, complaintID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
		if err := s.authorize(actor, authz.ActionFacultyResponse, c); err != nil {
			return nil, err
		}
		c.FacultyResponse = response
		ev := &models.TimelineEvent{Action: "Faculty Response Submitted", Actor: actor.Name, Note: response}
		if resolve {
			if err := ApplyTransition(c, models.StatusResolved); err != nil {
				return nil, err
			}
			ev.Action = "Resolved With Faculty Response"
		}
		return ev, nil
	})
}

// RecordCommitteeDecision applies one of the four committee verdicts.
// Warning Issued and Formal Inquiry resolve an escalated complaint;
// Case Dismissed closes it from any open status; Escalate to Principal
// escalates, or raises an already escalated complaint one routing tier.
func (s *Service) RecordCommitteeDecision(ctx context.Context, actor *models.User, complaintID string, decision models.DecisionKind, notes string) (*models.Complaint, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
	}
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("%w: decision notes are required", ErrValidation)
	}
	return s.mutate(ctx, complaintID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
		if err := s.authorize(actor, authz.ActionCommitteeDecision, c); err != nil {
			return nil, err
		}
		switch decision {
		case models.DecisionCaseDismissed:
			if err := ApplyTransition(c, models.StatusDismissed); err != nil {
				return nil, err
			}
		case models.DecisionWarningIssued, models.DecisionFormalInquiry:
			if c.Status != models.StatusEscalated {
				return nil, fmt.Errorf("%w: %s requires an escalated complaint, current status %s",
					ErrInvalidTransition, decision, c.Status)
			}
			if err := ApplyTransition(c, models.StatusResolved); err != nil {
				return nil, err
			}
		case models.DecisionEscalateToPrincipal:
			if c.Status == models.StatusEscalated {
				next, ok := c.RoutingLevel.Next()
				if !ok {
					return nil, fmt.Errorf("%w: complaint is already at the %s tier", ErrValidation, c.RoutingLevel)
				}
				c.RoutingLevel = next
			} else {
				if err := ApplyTransition(c, models.StatusEscalated); err != nil {
					return nil, err
				}
				if next, ok := c.RoutingLevel.Next(); ok {
					c.RoutingLevel = next
				}
				c.AutoEscalated = false
			}
		}
		c.CommitteeDecision = decision
		c.CommitteeNotes = notes
		return &models.TimelineEvent{
			Action: fmt.Sprintf("Committee Decision: %s", decision),
			Actor:  actor.Name,
			Note:   notes,
		}, nil
	})
}

// GetByID returns a single complaint with its ordered timeline, redacted.
func (s *Service) GetByID(ctx context.Context, complaintID string) (*models.Complaint, error) {
	c, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	c.Redact()
	return c, nil
}

// GetByTicket resolves the public ticket number submitters hold on to.
func (s *Service) GetByTicket(ctx context.Context, ticketID string) (*models.Complaint, error) {
	c, err := s.Storage.GetComplaintByTicketID(ctx, ticketID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	c.Redact()
	return c, nil
}

// List returns complaints matching the filter, newest first, redacted.
func (s *Service) List(ctx context.Context, f storage.ComplaintFilter) ([]models.Complaint, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, f.Category)
	}
	list, err := s.Storage.ListComplaints(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Redact()
	}
	return list, nil
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context) (models.DashboardStats, error) {
	return s.Storage.StatusCounts(ctx)
}

// mutate runs one locked mutation and fans the appended event out to the
// notification surfaces after commit.
func (s *Service) mutate(ctx context.Context, complaintID string, fn storage.MutateFunc) (*models.Complaint, error) {
	var appended *models.TimelineEvent
	c, err := s.Storage.UpdateComplaint(ctx, complaintID, func(tx *gorm.DB, c *models.Complaint) (*models.TimelineEvent, error) {
		ev, err := fn(tx, c)
		if err != nil {
			return nil, err
		}
		appended = ev
		return ev, nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.publish(ctx, c, appended)
	out := *c
	out.Redact()
	return &out, nil
}

// authorize enforces the capability matrix and the status window for one
// action. Role failures are authorization errors; status failures surface
// as transition errors so clients can refresh their view of the complaint.
func (s *Service) authorize(actor *models.User, action authz.Action, c *models.Complaint) error {
	if !authz.Allowed(actor.Role, action) {
		return fmt.Errorf("%w: role %s cannot perform %s", ErrNotAuthorized, actor.Role, action)
	}
	if c.Status.Terminal() {
		return fmt.Errorf("%w: status %s", ErrComplaintClosed, c.Status)
	}
	if !authz.AllowedInStatus(actor.Role, action, c.Status) {
		return fmt.Errorf("%w: %s is not available in status %s", ErrInvalidTransition, action, c.Status)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, c *models.Complaint, ev *models.TimelineEvent) {
	if s.Events == nil || ev == nil {
		return
	}
	_ = s.Events.PublishLifecycle(ctx, models.LifecycleEvent{
		ComplaintID:   c.ID,
		TicketID:      c.TicketID,
		Action:        ev.Action,
		Actor:         ev.Actor,
		Status:        c.Status,
		RoutingLevel:  c.RoutingLevel,
		AutoEscalated: c.AutoEscalated,
		Note:          ev.Note,
		Timestamp:     ev.Timestamp,
	})
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
