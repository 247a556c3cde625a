package sla

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/issue-service/internal/domain"
)

func TestClassifyMatrix(t *testing.T) {
	cases := []struct {
		impact  domain.Impact
		urgency domain.Urgency
		want    domain.PriorityCode
	}{
		{domain.ImpactLow, domain.UrgencyLow, domain.PriorityP4},
		{domain.ImpactLow, domain.UrgencyMedium, domain.PriorityP3},
		{domain.ImpactLow, domain.UrgencyHigh, domain.PriorityP3},
		{domain.ImpactLow, domain.UrgencyCritical, domain.PriorityP2},
		{domain.ImpactMedium, domain.UrgencyLow, domain.PriorityP3},
		{domain.ImpactMedium, domain.UrgencyMedium, domain.PriorityP3},
		{domain.ImpactMedium, domain.UrgencyHigh, domain.PriorityP2},
		{domain.ImpactMedium, domain.UrgencyCritical, domain.PriorityP1},
		{domain.ImpactHigh, domain.UrgencyLow, domain.PriorityP2},
		{domain.ImpactHigh, domain.UrgencyMedium, domain.PriorityP2},
		{domain.ImpactHigh, domain.UrgencyHigh, domain.PriorityP1},
		{domain.ImpactHigh, domain.UrgencyCritical, domain.PriorityP1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.impact, tc.urgency), "%s/%s", tc.impact, tc.urgency)
	}
}

func TestClassifyUnrecognizedInputDefaultsToP3(t *testing.T) {
	assert.Equal(t, domain.PriorityP3, Classify(domain.ParseImpact("enormous"), domain.ParseUrgency("high")))
	assert.Equal(t, domain.PriorityP3, Classify(domain.ParseImpact("low"), domain.ParseUrgency("")))
	assert.Equal(t, domain.PriorityP3, Classify(domain.ImpactUnspecified, domain.UrgencyUnspecified))
}

func TestClassifyParsesFreeFormInput(t *testing.T) {
	assert.Equal(t, domain.PriorityP1, Classify(domain.ParseImpact("  high "), domain.ParseUrgency("Critical")))
}

func TestHoursForIsTableExactAndOrdered(t *testing.T) {
	assert.Equal(t, Hours{Response: 1, Resolution: 2}, HoursFor(domain.PriorityP1))
	assert.Equal(t, Hours{Response: 2, Resolution: 4}, HoursFor(domain.PriorityP2))
	assert.Equal(t, Hours{Response: 4, Resolution: 8}, HoursFor(domain.PriorityP3))
	assert.Equal(t, Hours{Response: 6, Resolution: 12}, HoursFor(domain.PriorityP4))
	assert.Equal(t, HoursFor(domain.PriorityP3), HoursFor("P9"))

	order := []domain.PriorityCode{domain.PriorityP1, domain.PriorityP2, domain.PriorityP3, domain.PriorityP4}
	for i := 1; i < len(order); i++ {
		prev, cur := HoursFor(order[i-1]), HoursFor(order[i])
		assert.Less(t, prev.Response, cur.Response)
		assert.Less(t, prev.Resolution, cur.Resolution)
	}
}

func TestLegacyPriority(t *testing.T) {
	assert.Equal(t, domain.TicketPriorityCritical, LegacyPriority(domain.PriorityP1))
	assert.Equal(t, domain.TicketPriorityHigh, LegacyPriority(domain.PriorityP2))
	assert.Equal(t, domain.TicketPriorityMedium, LegacyPriority(domain.PriorityP3))
	assert.Equal(t, domain.TicketPriorityLow, LegacyPriority(domain.PriorityP4))
	assert.Equal(t, domain.TicketPriorityMedium, LegacyPriority("bogus"))
}

func TestClassifyTicketScenarios(t *testing.T) {
	low := ClassifyTicket(domain.ImpactLow, domain.UrgencyLow)
	require.Equal(t, domain.PriorityP4, low.Code)
	assert.Equal(t, Hours{Response: 6, Resolution: 12}, low.Hours)

	high := ClassifyTicket(domain.ImpactHigh, domain.UrgencyCritical)
	require.Equal(t, domain.PriorityP1, high.Code)
	assert.Equal(t, Hours{Response: 1, Resolution: 2}, high.Hours)

	var ticket domain.Ticket
	high.Apply(&ticket)
	assert.Equal(t, domain.PriorityP1, ticket.PriorityCode)
	assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority)
	assert.Equal(t, 1, ticket.SLA.ResponseHours)
	assert.Equal(t, 2, ticket.SLA.ResolutionHours)
}
