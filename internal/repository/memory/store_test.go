package memory

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/sla"
)

func TestTicketUpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	store := NewStore(sla.NewManualClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	tickets := store.Tickets()
	p := store.AddProject(domain.Project{OrganizationID: 1, ProjectCode: "OPS"})

	ticket := &domain.Ticket{ProjectID: p.ID, Title: "printer", Status: domain.TicketStatusNew}
	require.NoError(t, tickets.Create(ctx, ticket))
	assert.EqualValues(t, 1, ticket.Version)

	first, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	second, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)

	first.Status = domain.TicketStatusOpen
	require.NoError(t, tickets.Update(ctx, first))
	assert.EqualValues(t, 2, first.Version)

	second.Status = domain.TicketStatusOnHold
	assert.ErrorIs(t, tickets.Update(ctx, second), repository.ErrVersionConflict)

	stored, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}

func TestTicketGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	tickets := store.Tickets()
	p := store.AddProject(domain.Project{OrganizationID: 1, ProjectCode: "OPS"})

	group := int64(4)
	ticket := &domain.Ticket{ProjectID: p.ID, Title: "vpn", AssignedGroup: &group}
	require.NoError(t, tickets.Create(ctx, ticket))

	loaded, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	*loaded.AssignedGroup = 99

	again, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, *again.AssignedGroup)
}

func TestMissingRowsReportNoRows(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	_, err := store.Tickets().GetByID(ctx, 42)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = store.Groups().GetByID(ctx, 42)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = store.Projects().GetByID(ctx, 42)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.ErrorIs(t, store.Tickets().Create(ctx, &domain.Ticket{ProjectID: 42}), pgx.ErrNoRows)
}

func TestBreachCandidatesFilter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(sla.NewManualClock(now))
	tickets := store.Tickets()
	p := store.AddProject(domain.Project{OrganizationID: 1, ProjectCode: "OPS"})

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	mk := func(status domain.TicketStatus, due time.Time, paused, breached bool) int64 {
		d := due
		ticket := &domain.Ticket{ProjectID: p.ID, Status: status}
		ticket.SLA.Resolution.DueAt = &d
		ticket.SLA.Paused = paused
		ticket.SLA.Breached = breached
		require.NoError(t, tickets.Create(ctx, ticket))
		return ticket.ID
	}
	overdueID := mk(domain.TicketStatusOpen, past, false, false)
	mk(domain.TicketStatusOpen, future, false, false)
	mk(domain.TicketStatusOnHold, past, true, false)
	mk(domain.TicketStatusOpen, past, false, true)
	mk(domain.TicketStatusClosed, past, false, false)
	mk(domain.TicketStatusResolved, past, false, false)

	candidates, err := tickets.FindBreachCandidates(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, overdueID, candidates[0].ID)
}

func TestCreateNumbersTicketsPerProject(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	ops := store.AddProject(domain.Project{OrganizationID: 1, Name: "Ops", ProjectCode: "OPS"})
	hr := store.AddProject(domain.Project{OrganizationID: 1, Name: "HR", ProjectCode: "HR"})

	var numbers []string
	for _, projectID := range []int64{ops.ID, ops.ID, hr.ID, ops.ID} {
		ticket := &domain.Ticket{ProjectID: projectID}
		require.NoError(t, store.Tickets().Create(ctx, ticket))
		numbers = append(numbers, ticket.TicketNumber)
	}
	assert.Equal(t, []string{"OPS-1", "OPS-2", "HR-1", "OPS-3"}, numbers)
}

func TestHistoryOrdering(t *testing.T) {
	ctx := context.Background()
	clock := sla.NewManualClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	store := NewStore(clock)
	history := store.History()

	for _, field := range []string{"a", "b", "c"} {
		require.NoError(t, history.Create(ctx, &domain.TicketHistoryEntry{TicketID: 7, FieldName: field}))
		clock.Advance(time.Second)
	}
	require.NoError(t, history.Create(ctx, &domain.TicketHistoryEntry{TicketID: 8, FieldName: "other"}))

	asc, err := history.ListByTicket(ctx, 7, repository.SortAscending)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, "a", asc[0].FieldName)
	assert.Equal(t, "c", asc[2].FieldName)

	desc, err := history.ListByTicket(ctx, 7, repository.SortDescending)
	require.NoError(t, err)
	assert.Equal(t, "c", desc[0].FieldName)
	assert.Equal(t, "a", desc[2].FieldName)
}
