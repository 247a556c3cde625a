package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/sla"
)

// ScanRecorder receives the outcome of every breach scan.
type ScanRecorder interface {
	RecordScan(duration time.Duration, breached, failed int)
}

// ScanResult summarizes a breach scan pass.
type ScanResult struct {
	Candidates int
	Breached   int
	// Skipped counts candidates that were no longer eligible when re-read or
	// lost a concurrent write.
	Skipped int
	Failed  int
}

// SLAService detects SLA breaches.
type SLAService struct {
	tickets   repository.TicketRepository
	audit     *AuditTrail
	clock     sla.Clock
	events    eventPublisher
	recorder  ScanRecorder
	logger    *zap.Logger
	batchSize int
}

// SLADependencies bundles collaborators of the breach scan.
type SLADependencies struct {
	TicketRepo repository.TicketRepository
	Audit      *AuditTrail
	Dispatcher events.Dispatcher
	Clock      sla.Clock
	Recorder   ScanRecorder
	Logger     *zap.Logger
	BatchSize  int
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	clock := deps.Clock
	if clock == nil {
		clock = sla.SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAService{
		tickets:   deps.TicketRepo,
		audit:     deps.Audit,
		clock:     clock,
		events:    eventPublisher{dispatcher: deps.Dispatcher, clock: clock, logger: logger},
		recorder:  deps.Recorder,
		logger:    logger,
		batchSize: deps.BatchSize,
	}
}

// ScanBreaches marks every overdue, active, non-terminal ticket as breached.
// Each candidate is handled on its own: a failure is logged and counted
// without affecting the others.
func (s *SLAService) ScanBreaches(ctx context.Context) (ScanResult, error) {
	start := time.Now()
	now := s.clock.Now().UTC()

	candidates, err := s.tickets.FindBreachCandidates(ctx, now, s.batchSize)
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{Candidates: len(candidates)}
	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		breached, err := s.breach(ctx, candidates[i].ID, now)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("sla breach update failed",
				zap.Int64("ticket_id", candidates[i].ID),
				zap.Error(err),
			)
		case breached:
			result.Breached++
		default:
			result.Skipped++
		}
	}

	if s.recorder != nil {
		s.recorder.RecordScan(time.Since(start), result.Breached, result.Failed)
	}
	if result.Candidates > 0 {
		s.logger.Info("sla breach scan finished",
			zap.Int("candidates", result.Candidates),
			zap.Int("breached", result.Breached),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	}
	return result, ctx.Err()
}

// breach re-reads the ticket, re-checks eligibility and writes the breach
// flag. It reports false when the ticket no longer qualifies.
func (s *SLAService) breach(ctx context.Context, ticketID int64, now time.Time) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if ticket.Status.IsTerminal() || !sla.BreachEligible(ticket.SLA, now) {
		return false, nil
	}
	sla.MarkBreached(&ticket.SLA, now)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// Picked up by the next run if still eligible.
			return false, nil
		}
		return false, err
	}
	if err := s.recordBreach(ctx, ticket, now); err != nil {
		return true, err
	}

	breachedAt := now
	if ticket.SLA.BreachedAt != nil {
		breachedAt = *ticket.SLA.BreachedAt
	}
	s.events.publish(ctx, events.Event{
		Type:           events.EventTicketSLABreached,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		ActorID:        domain.SystemActorID,
		Payload: events.TicketSLABreachedPayload{
			TicketNumber: ticket.TicketNumber,
			BreachedAt:   breachedAt,
		},
	})
	return true, nil
}

// recordBreach appends the breach history entry. The ticket is already
// breached in storage and later scans skip it, so the append is retried and a
// final failure is logged with what is needed to backfill the entry.
func (s *SLAService) recordBreach(ctx context.Context, ticket *domain.Ticket, now time.Time) error {
	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if err = s.audit.RecordBreach(ctx, ticket.ID, now); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	s.logger.Error("sla breach history missing",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.Int64("organization_id", ticket.OrganizationID),
		zap.Time("breached_at", now),
		zap.Error(err),
	)
	return err
}
