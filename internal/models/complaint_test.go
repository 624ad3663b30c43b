package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	c := Complaint{
		SubmitterName: "Asha Verma",
		RollNumber:    "CS21B042",
		SubmitterRef:  "sealed",
		Anonymous:     true,
	}
	c.Redact()
	assert.Empty(t, c.SubmitterName)
	assert.Empty(t, c.RollNumber)

	named := Complaint{SubmitterName: "Asha Verma", RollNumber: "CS21B042"}
	named.Redact()
	assert.Equal(t, "Asha Verma", named.SubmitterName)
	assert.Equal(t, "CS21B042", named.RollNumber)
}

func TestSubmitterRefNeverSerialized(t *testing.T) {
	c := Complaint{TicketID: "SUN-2026-0001", SubmitterRef: "sealed-audit-ref"}
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sealed-audit-ref")
}

func TestRoutingLevelNext(t *testing.T) {
	next, ok := RoutingHoD.Next()
	require.True(t, ok)
	assert.Equal(t, RoutingPrincipal, next)

	next, ok = RoutingPrincipal.Next()
	require.True(t, ok)
	assert.Equal(t, RoutingDirector, next)

	_, ok = RoutingDirector.Next()
	assert.False(t, ok)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusDismissed.Terminal())
	assert.False(t, StatusEscalated.Terminal())

	assert.True(t, StatusPendingReview.DeadlineBound())
	assert.True(t, StatusCommunityReview.DeadlineBound())
	assert.False(t, StatusEscalated.DeadlineBound())
}

func TestEnumValidation(t *testing.T) {
	for _, cat := range Categories {
		assert.True(t, cat.Valid())
	}
	assert.False(t, ComplaintCategory("Gossip").Valid())

	assert.True(t, DecisionWarningIssued.Valid())
	assert.False(t, DecisionKind("Public Flogging").Valid())

	assert.True(t, VoteSupport.Valid())
	assert.False(t, VoteChoice("abstain").Valid())
}
