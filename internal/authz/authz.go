// Package authz is the single enforcement point for who may do what to a
// complaint in which state. The scattered role conditionals of the UI layer
// collapse into two lookup tables: role capabilities and per-action status
// windows.
package authz

import "sunportal/backend/internal/models"

// Action is a mutating operation on a complaint.
type Action string

const (
	ActionSubmit              Action = "submit"
	ActionVote                Action = "vote"
	ActionOpenInvestigation   Action = "open_investigation"
	ActionOpenCommunityReview Action = "open_community_review"
	ActionFacultyResponse     Action = "faculty_response"
	ActionCommitteeDecision   Action = "committee_decision"
)

// capabilities maps each action to the roles allowed to perform it.
var capabilities = map[Action]map[models.Role]bool{
	ActionSubmit: {
		models.RoleStudent: true,
		// Admins do intake on behalf of walk-in complainants, and are the
		// only role allowed to pin the initial routing tier.
		models.RoleAdmin: true,
	},
	ActionVote: {
		models.RoleStudent: true,
	},
	ActionOpenInvestigation: {
		models.RoleFaculty: true,
		models.RoleHoD:     true,
		models.RoleAdmin:   true,
	},
	ActionOpenCommunityReview: {
		models.RoleFaculty: true,
		models.RoleHoD:     true,
		models.RoleAdmin:   true,
	},
	ActionFacultyResponse: {
		models.RoleFaculty: true,
		models.RoleHoD:     true,
	},
	ActionCommitteeDecision: {
		models.RoleCommittee: true,
		models.RoleAdmin:     true,
	},
}

// actionStatuses maps each action to the complaint statuses it applies to.
// An absent entry means the action is status-independent (submission).
var actionStatuses = map[Action][]models.Status{
	ActionVote:                {models.StatusCommunityReview},
	ActionOpenInvestigation:   {models.StatusPendingReview},
	ActionOpenCommunityReview: {models.StatusPendingReview, models.StatusUnderInvestigation},
	ActionFacultyResponse:     {models.StatusPendingReview, models.StatusUnderInvestigation},
	ActionCommitteeDecision: {
		models.StatusPendingReview,
		models.StatusUnderInvestigation,
		models.StatusCommunityReview,
		models.StatusEscalated,
	},
}

// Allowed reports whether the role may perform the action at all.
func Allowed(role models.Role, action Action) bool {
	return capabilities[action][role]
}

// AllowedInStatus reports whether the role may perform the action on a
// complaint in the given status.
func AllowedInStatus(role models.Role, action Action, status models.Status) bool {
	if !Allowed(role, action) {
		return false
	}
	statuses, constrained := actionStatuses[action]
	if !constrained {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
