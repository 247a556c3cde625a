// Package lifecycle owns the ticket status field and the side effects of
// moving between statuses.
package lifecycle

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/sla"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// Policy configures which transitions are rejected.
type Policy struct {
	// ClosedIsTerminal rejects every transition out of CLOSED.
	ClosedIsTerminal bool
}

// DefaultPolicy treats CLOSED as terminal.
func DefaultPolicy() Policy {
	return Policy{ClosedIsTerminal: true}
}

// Transition describes what a status change did to a ticket.
type Transition struct {
	From         domain.TicketStatus
	To           domain.TicketStatus
	SLASuspended bool
	SLAResumed   bool
	ResolvedSet  bool
	ClosedSet    bool
}

// PausesSLA reports whether tickets in status stop their SLA countdown.
func PausesSLA(status domain.TicketStatus) bool {
	return status == domain.TicketStatusOnHold || status == domain.TicketStatusAwaitingUserInfo
}

// Initialize puts a freshly classified ticket into NEW with running timers.
func Initialize(ticket *domain.Ticket, now time.Time) {
	ticket.Status = domain.TicketStatusNew
	sla.Initialize(&ticket.SLA, now, sla.Hours{
		Response:   ticket.SLA.ResponseHours,
		Resolution: ticket.SLA.ResolutionHours,
	})
	ticket.SLA.Breached = false
	ticket.SLA.BreachedAt = nil
}

// Apply moves ticket to target and runs the side effects keyed on target.
// The ticket is only mutated when the returned error is nil.
func (p Policy) Apply(ticket *domain.Ticket, target domain.TicketStatus, now time.Time) (Transition, error) {
	if _, ok := domain.ParseTicketStatus(string(target)); !ok {
		return Transition{}, apperrors.NewValidationError("invalid ticket status", map[string]any{"status": target})
	}
	if p.ClosedIsTerminal && ticket.Status == domain.TicketStatusClosed {
		return Transition{}, apperrors.NewAlreadyClosed(ticket.ID)
	}

	tr := Transition{From: ticket.Status, To: target}
	ticket.Status = target

	if PausesSLA(target) {
		if !ticket.SLA.Paused {
			tr.SLASuspended = sla.Suspend(&ticket.SLA, now)
		}
	} else if ticket.SLA.Paused {
		tr.SLAResumed = sla.Resume(&ticket.SLA, now)
	}

	if target == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		at := now.UTC()
		ticket.ResolvedAt = &at
		tr.ResolvedSet = true
	}
	if target == domain.TicketStatusClosed && ticket.ClosedAt == nil {
		at := now.UTC()
		ticket.ClosedAt = &at
		tr.ClosedSet = true
	}
	return tr, nil
}
