package complaint

import (
	"fmt"

	"sunportal/backend/internal/models"
)

// transitions is the complete edge set of the lifecycle state machine.
// Resolved and Dismissed have no outbound edges; anything not listed here is
// rejected. Guards (who may trigger an edge, and with what payload) live in
// the service methods and the authz table.
var transitions = map[models.Status][]models.Status{
	models.StatusPendingReview: {
		models.StatusUnderInvestigation,
		models.StatusCommunityReview,
		models.StatusEscalated,
		models.StatusDismissed,
	},
	models.StatusUnderInvestigation: {
		models.StatusCommunityReview,
		models.StatusEscalated,
		models.StatusResolved,
		models.StatusDismissed,
	},
	models.StatusCommunityReview: {
		models.StatusEscalated,
		models.StatusDismissed,
	},
	models.StatusEscalated: {
		models.StatusResolved,
		models.StatusDismissed,
	},
}

// CanTransition reports whether the edge from -> to exists in the lifecycle
// table.
func CanTransition(from, to models.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition validates an edge and returns the taxonomy error a caller
// should see: ErrComplaintClosed for terminal states, ErrInvalidTransition
// (naming both statuses) otherwise.
func checkTransition(from, to models.Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s", ErrComplaintClosed, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ApplyTransition moves a complaint onto a new status and maintains the
// deadline invariants: the voting deadline exists only during Community
// Review, the escalation deadline only while a routing tier is on the clock
// (Pending Review and Under Investigation).
func ApplyTransition(c *models.Complaint, to models.Status) error {
	if err := checkTransition(c.Status, to); err != nil {
		return err
	}
	c.Status = to
	if to != models.StatusCommunityReview {
		c.VotingDeadline = nil
	}
	if to != models.StatusPendingReview && to != models.StatusUnderInvestigation {
		c.EscalationDeadline = nil
	}
	return nil
}
