package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // needed for pq.StringArray
	"gorm.io/gorm"
)

// ComplaintCategory classifies a grievance at submission time.
type ComplaintCategory string

const (
	CategoryAcademicIssue       ComplaintCategory = "Academic Issue"
	CategoryFacultyMisconduct   ComplaintCategory = "Faculty Misconduct"
	CategoryHarassment          ComplaintCategory = "Harassment"
	CategoryInfrastructure      ComplaintCategory = "Infrastructure"
	CategoryExamMarksIssue      ComplaintCategory = "Exam/Marks Issue"
	CategoryAdministrationDelay ComplaintCategory = "Administration Delay"
	CategoryOthers              ComplaintCategory = "Others"
)

// Categories lists every accepted complaint category.
var Categories = []ComplaintCategory{
	CategoryAcademicIssue,
	CategoryFacultyMisconduct,
	CategoryHarassment,
	CategoryInfrastructure,
	CategoryExamMarksIssue,
	CategoryAdministrationDelay,
	CategoryOthers,
}

func (c ComplaintCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Urgency is the submitter-declared severity of a complaint.
type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyMedium Urgency = "Medium"
	UrgencyHigh   Urgency = "High"
)

func (u Urgency) Valid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

// RoutingLevel is the organizational tier currently responsible for a complaint.
type RoutingLevel string

const (
	RoutingHoD       RoutingLevel = "HoD"
	RoutingPrincipal RoutingLevel = "Principal"
	RoutingDirector  RoutingLevel = "Director"
)

func (r RoutingLevel) Valid() bool {
	return r == RoutingHoD || r == RoutingPrincipal || r == RoutingDirector
}

// Next returns the tier one step up. ok is false at Director, which has no
// higher tier.
func (r RoutingLevel) Next() (RoutingLevel, bool) {
	switch r {
	case RoutingHoD:
		return RoutingPrincipal, true
	case RoutingPrincipal:
		return RoutingDirector, true
	default:
		return r, false
	}
}

// Status is a complaint's lifecycle state.
type Status string

const (
	StatusPendingReview      Status = "Pending Review"
	StatusUnderInvestigation Status = "Under Investigation"
	StatusCommunityReview    Status = "Community Review"
	StatusEscalated          Status = "Escalated"
	StatusResolved           Status = "Resolved"
	StatusDismissed          Status = "Dismissed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingReview, StatusUnderInvestigation, StatusCommunityReview,
		StatusEscalated, StatusResolved, StatusDismissed:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// DeadlineBound reports whether the status is governed by a live deadline
// (escalation or voting).
func (s Status) DeadlineBound() bool {
	return s == StatusPendingReview || s == StatusUnderInvestigation || s == StatusCommunityReview
}

// DecisionKind is a committee decision recorded on a complaint.
type DecisionKind string

const (
	DecisionWarningIssued       DecisionKind = "Warning Issued"
	DecisionFormalInquiry       DecisionKind = "Formal Inquiry"
	DecisionCaseDismissed       DecisionKind = "Case Dismissed"
	DecisionEscalateToPrincipal DecisionKind = "Escalate to Principal"
)

func (d DecisionKind) Valid() bool {
	switch d {
	case DecisionWarningIssued, DecisionFormalInquiry, DecisionCaseDismissed, DecisionEscalateToPrincipal:
		return true
	}
	return false
}

// Complaint is the central aggregate of the portal. Every mutation goes
// through a single locked transaction together with its timeline append.
type Complaint struct {
	ID       string `gorm:"primaryKey" json:"id"`
	TicketID string `gorm:"uniqueIndex" json:"ticketId"`

	// Submitter identity. For anonymous complaints the plaintext fields are
	// never persisted; SubmitterRef holds an AES-GCM encrypted audit
	// reference and is never serialized.
	SubmitterName string `json:"studentName,omitempty"`
	RollNumber    string `json:"rollNumber,omitempty"`
	SubmitterRef  string `json:"-"`
	Anonymous     bool   `json:"anonymous"`

	Department  string            `gorm:"index" json:"department"`
	Year        string            `json:"year"`
	Category    ComplaintCategory `gorm:"index" json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Urgency     Urgency           `json:"urgency"`
	Evidence    pq.StringArray    `gorm:"type:text[]" json:"evidence,omitempty"`

	RoutingLevel       RoutingLevel `json:"routingLevel"`
	Status             Status       `gorm:"index" json:"status"`
	AutoEscalated      bool         `json:"autoEscalated"`
	EscalationDeadline *time.Time   `json:"escalationDeadline,omitempty"`

	// Voting. VotingDeadline is set if and only if the complaint is in
	// Community Review. TotalEligibleVoters is snapshotted when voting opens.
	VotingDeadline      *time.Time `json:"votingDeadline,omitempty"`
	SupportVotes        int        `json:"supportVotes"`
	RejectVotes         int        `json:"rejectVotes"`
	TotalEligibleVoters int        `json:"totalEligibleVoters"`

	FacultyResponse   string       `json:"facultyResponse,omitempty"`
	CommitteeDecision DecisionKind `json:"committeeDecision,omitempty"`
	CommitteeNotes    string       `json:"committeeNotes,omitempty"`

	// Written once by the external scorer, read-only to the engine.
	AIRiskScore *int   `json:"aiRiskScore,omitempty"`
	AISentiment string `json:"aiSentiment,omitempty"`
	AIToxicity  *bool  `json:"aiToxicity,omitempty"`
	AIDuplicate *bool  `json:"aiDuplicate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Timeline []TimelineEvent `gorm:"foreignKey:ComplaintID;references:ID" json:"timeline"`
}

// BeforeCreate generates the internal ID when one is not set.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// Redact strips every externally observable trace of the submitter from an
// anonymous complaint. Read paths must call it before returning the record,
// regardless of caller role.
func (c *Complaint) Redact() {
	if !c.Anonymous {
		return
	}
	c.SubmitterName = ""
	c.RollNumber = ""
}
