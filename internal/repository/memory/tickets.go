package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/repository"
)

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[ticket.ProjectID]
	if !ok {
		return pgx.ErrNoRows
	}
	p.seq++
	ticket.TicketNumber = domain.FormatTicketNumber(p.ProjectCode, p.seq)
	now := r.s.now()
	ticket.ID = r.s.id()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err, ok := r.s.failUpdateIDs[ticket.ID]; ok {
		return err
	}
	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	next := cloneTicket(ticket)
	// Breach flags are monotonic in storage as well.
	if stored.SLA.Breached {
		next.SLA.Breached = true
	}
	if stored.SLA.BreachedAt != nil {
		next.SLA.BreachedAt = cloneTime(stored.SLA.BreachedAt)
	}
	next.Version = stored.Version + 1
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = r.s.now()
	r.s.tickets[ticket.ID] = next

	ticket.Version = next.Version
	ticket.UpdatedAt = next.UpdatedAt
	ticket.SLA.Breached = next.SLA.Breached
	ticket.SLA.BreachedAt = cloneTime(next.SLA.BreachedAt)
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(stored), nil
}

func (r *ticketRepo) ListByProject(_ context.Context, projectID int64, limit, offset int) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []domain.Ticket
	for _, t := range r.s.tickets {
		if t.ProjectID == projectID {
			matched = append(matched, *cloneTicket(t))
		}
	}
	sortByCreation(matched,
		func(t domain.Ticket) time.Time { return t.CreatedAt },
		func(t domain.Ticket) int64 { return t.ID },
		true,
	)
	return page(matched, limit, offset), nil
}

func (r *ticketRepo) FindBreachCandidates(_ context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 500
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Ticket
	for _, t := range r.s.tickets {
		if t.SLA.Breached || t.SLA.Paused || t.Status.IsTerminal() {
			continue
		}
		if overdue(t.SLA.Response.DueAt, now) || overdue(t.SLA.Resolution.DueAt, now) {
			result = append(result, *cloneTicket(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func overdue(due *time.Time, now time.Time) bool {
	return due != nil && due.Before(now)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTimer(t domain.SLATimer) domain.SLATimer {
	return domain.SLATimer{DueAt: cloneTime(t.DueAt), RemainingSeconds: cloneInt64(t.RemainingSeconds)}
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	c.CategoryID = cloneInt64(t.CategoryID)
	c.ClientID = cloneInt64(t.ClientID)
	c.AssetID = cloneInt64(t.AssetID)
	c.AssignedUserID = cloneInt64(t.AssignedUserID)
	c.AssignedGroup = cloneInt64(t.AssignedGroup)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.SLA.Response = cloneTimer(t.SLA.Response)
	c.SLA.Resolution = cloneTimer(t.SLA.Resolution)
	c.SLA.BreachedAt = cloneTime(t.SLA.BreachedAt)
	return &c
}
