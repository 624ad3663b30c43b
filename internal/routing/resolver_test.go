package routing_test

import (
	"testing"
	"time"

	"sunportal/backend/internal/config"
	"sunportal/backend/internal/models"
	"sunportal/backend/internal/routing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		category models.ComplaintCategory
		urgency  models.Urgency
		want     models.RoutingLevel
	}{
		{"faculty misconduct goes to principal", models.CategoryFacultyMisconduct, models.UrgencyLow, models.RoutingPrincipal},
		{"harassment goes to principal", models.CategoryHarassment, models.UrgencyMedium, models.RoutingPrincipal},
		{"high urgency goes to principal", models.CategoryInfrastructure, models.UrgencyHigh, models.RoutingPrincipal},
		{"harassment with high urgency goes to principal", models.CategoryHarassment, models.UrgencyHigh, models.RoutingPrincipal},
		{"academic issue stays with hod", models.CategoryAcademicIssue, models.UrgencyMedium, models.RoutingHoD},
		{"infrastructure low stays with hod", models.CategoryInfrastructure, models.UrgencyLow, models.RoutingHoD},
		{"administration delay medium stays with hod", models.CategoryAdministrationDelay, models.UrgencyMedium, models.RoutingHoD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, routing.Resolve(tt.category, tt.urgency))
		})
	}
}

func TestWindow(t *testing.T) {
	w, ok := routing.Window(models.RoutingHoD)
	assert.True(t, ok)
	assert.Equal(t, 7*24*time.Hour, w)

	w, ok = routing.Window(models.RoutingPrincipal)
	assert.True(t, ok)
	assert.Equal(t, 15*24*time.Hour, w)

	_, ok = routing.Window(models.RoutingDirector)
	assert.False(t, ok, "Director has no auto-escalation timer")
}

func TestDeadlineFrom(t *testing.T) {
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	deadline := routing.DeadlineFrom(models.RoutingPrincipal, from)
	assert.NotNil(t, deadline)
	assert.Equal(t, from.Add(config.PrincipalEscalationWindow), *deadline)

	assert.Nil(t, routing.DeadlineFrom(models.RoutingDirector, from))
}
