package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/repository"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// Values recorded for the SLA history field.
const (
	slaOnTime   = "ON_TIME"
	slaBreached = "BREACHED"
)

// AuditTrail appends entries to the ticket and group history ledgers. It has
// no update or delete operations.
type AuditTrail struct {
	history repository.TicketHistoryRepository
	groups  repository.GroupHistoryRepository
}

// NewAuditTrail constructs the recorder.
func NewAuditTrail(history repository.TicketHistoryRepository, groups repository.GroupHistoryRepository) *AuditTrail {
	return &AuditTrail{history: history, groups: groups}
}

// RecordChange appends a field level change.
func (a *AuditTrail) RecordChange(ctx context.Context, ticketID, actorID int64, field string, oldValue, newValue *string, description string) error {
	entry := &domain.TicketHistoryEntry{
		TicketID:    ticketID,
		ChangedBy:   actorID,
		FieldName:   field,
		OldValue:    oldValue,
		NewValue:    newValue,
		Description: description,
	}
	if err := a.history.Create(ctx, entry); err != nil {
		return apperrors.NewInternalError(fmt.Errorf("append ticket history: %w", err))
	}
	return nil
}

// RecordCreation notes the initial NEW status of a ticket.
func (a *AuditTrail) RecordCreation(ctx context.Context, ticket *domain.Ticket, actorID int64) error {
	return a.RecordChange(ctx, ticket.ID, actorID, domain.HistoryFieldStatus, nil, strPtr(string(ticket.Status)),
		fmt.Sprintf("Ticket %s created with priority %s", ticket.TicketNumber, ticket.PriorityCode))
}

// RecordStatusChange notes a status transition.
func (a *AuditTrail) RecordStatusChange(ctx context.Context, ticketID, actorID int64, from, to domain.TicketStatus, comment string) error {
	description := fmt.Sprintf("Status changed from %s to %s", from, to)
	if comment != "" {
		description += ": " + comment
	}
	return a.RecordChange(ctx, ticketID, actorID, domain.HistoryFieldStatus, strPtr(string(from)), strPtr(string(to)), description)
}

// RecordAssignment notes an assignment change using the Unassigned, User:<id>
// and Group:<id> labels.
func (a *AuditTrail) RecordAssignment(ctx context.Context, ticketID, actorID int64, from, to, note string) error {
	description := fmt.Sprintf("Assignment changed from %s to %s", from, to)
	if note != "" {
		description += ": " + note
	}
	return a.RecordChange(ctx, ticketID, actorID, domain.HistoryFieldAssignment, strPtr(from), strPtr(to), description)
}

// RecordGroupChange appends a group reassignment event.
func (a *AuditTrail) RecordGroupChange(ctx context.Context, ticketID int64, fromGroup *int64, toGroup, actorID int64, note string) error {
	entry := &domain.GroupHistoryEntry{
		TicketID:    ticketID,
		FromGroupID: fromGroup,
		ToGroupID:   toGroup,
		ChangedBy:   actorID,
		Note:        note,
	}
	if err := a.groups.Create(ctx, entry); err != nil {
		return apperrors.NewInternalError(fmt.Errorf("append group history: %w", err))
	}
	return nil
}

// RecordBreach notes a detected SLA breach on behalf of the system actor.
func (a *AuditTrail) RecordBreach(ctx context.Context, ticketID int64, at time.Time) error {
	return a.RecordChange(ctx, ticketID, domain.SystemActorID, domain.HistoryFieldSLA,
		strPtr(slaOnTime), strPtr(slaBreached),
		fmt.Sprintf("SLA breached at %s", at.UTC().Format(time.RFC3339)))
}

// TicketHistory lists field changes of a ticket.
func (a *AuditTrail) TicketHistory(ctx context.Context, ticketID int64, order repository.SortOrder) ([]domain.TicketHistoryEntry, error) {
	entries, err := a.history.ListByTicket(ctx, ticketID, order)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// GroupHistory lists group reassignments of a ticket, oldest first.
func (a *AuditTrail) GroupHistory(ctx context.Context, ticketID int64) ([]domain.GroupHistoryEntry, error) {
	entries, err := a.groups.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}
