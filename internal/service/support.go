package service

import (
	"context"
	"errors"
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/sla"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// maxWriteAttempts bounds the read-modify-write retries on version conflicts.
const maxWriteAttempts = 3

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newTicketCode returns an opaque code such as TCK-2024-01HV....
func newTicketCode(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(now), entropy)
	return fmt.Sprintf("TCK-%d-%s", now.Year(), id.String())
}

// ticketMutator loads a ticket scoped to an organization, lets fn change it
// and writes it back with a version check, retrying on conflicts.
type ticketMutator struct {
	tickets repository.TicketRepository
}

func (m ticketMutator) load(ctx context.Context, orgID, ticketID int64) (*domain.Ticket, error) {
	ticket, err := m.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if ticket.OrganizationID != orgID {
		return nil, apperrors.NewForbidden("ticket belongs to another organization")
	}
	return ticket, nil
}

func (m ticketMutator) mutate(ctx context.Context, orgID, ticketID int64, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	for attempt := 1; ; attempt++ {
		ticket, err := m.load(ctx, orgID, ticketID)
		if err != nil {
			return nil, err
		}
		if err := fn(ticket); err != nil {
			return nil, err
		}
		err = m.tickets.Update(ctx, ticket)
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.MapError(err)
		}
		if attempt >= maxWriteAttempts {
			return nil, apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticketID})
		}
	}
}

type eventPublisher struct {
	dispatcher events.Dispatcher
	clock      sla.Clock
	logger     *zap.Logger
}

// publish emits event. Handler failures are logged and never fail the
// operation that produced the event.
func (p eventPublisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock.Now().UTC()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event handler failed",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err),
		)
	}
}

func strPtr(v string) *string {
	return &v
}
