// Package routing derives the responsible authority tier for a complaint
// from its classification, and the auto-escalation window for each tier.
package routing

import (
	"time"

	"sunportal/backend/internal/config"
	"sunportal/backend/internal/models"
)

// Resolve returns the tier responsible for a fresh complaint. Faculty
// misconduct, harassment and anything marked High urgency go straight to the
// Principal; everything else starts with the HoD. Director is reachable only
// through an explicit committee escalation, never from here.
func Resolve(category models.ComplaintCategory, urgency models.Urgency) models.RoutingLevel {
	if category == models.CategoryFacultyMisconduct || category == models.CategoryHarassment || urgency == models.UrgencyHigh {
		return models.RoutingPrincipal
	}
	return models.RoutingHoD
}

// Window returns the auto-escalation window for a routing level. ok is false
// for Director, which carries no timer.
func Window(level models.RoutingLevel) (time.Duration, bool) {
	switch level {
	case models.RoutingHoD:
		return config.HoDEscalationWindow, true
	case models.RoutingPrincipal:
		return config.PrincipalEscalationWindow, true
	default:
		return 0, false
	}
}

// DeadlineFrom computes the escalation deadline for a complaint entering a
// pending/investigation state at the given instant. Returns nil when the
// level has no timer.
func DeadlineFrom(level models.RoutingLevel, from time.Time) *time.Time {
	window, ok := Window(level)
	if !ok {
		return nil
	}
	deadline := from.Add(window)
	return &deadline
}
