package memory

import (
	"context"
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/repository"
)

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(_ context.Context, entry *domain.TicketHistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id()
	entry.CreatedAt = r.s.now()
	stored := *entry
	stored.OldValue = cloneString(entry.OldValue)
	stored.NewValue = cloneString(entry.NewValue)
	r.s.history = append(r.s.history, stored)
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID int64, order repository.SortOrder) ([]domain.TicketHistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.TicketHistoryEntry
	for _, e := range r.s.history {
		if e.TicketID == ticketID {
			e.OldValue = cloneString(e.OldValue)
			e.NewValue = cloneString(e.NewValue)
			result = append(result, e)
		}
	}
	sortByCreation(result,
		func(e domain.TicketHistoryEntry) time.Time { return e.CreatedAt },
		func(e domain.TicketHistoryEntry) int64 { return e.ID },
		order == repository.SortDescending,
	)
	return result, nil
}

type groupHistoryRepo struct{ s *Store }

func (r *groupHistoryRepo) Create(_ context.Context, entry *domain.GroupHistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id()
	entry.ChangedAt = r.s.now()
	stored := *entry
	stored.FromGroupID = cloneInt64(entry.FromGroupID)
	r.s.groupHistory = append(r.s.groupHistory, stored)
	return nil
}

func (r *groupHistoryRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.GroupHistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.GroupHistoryEntry
	for _, e := range r.s.groupHistory {
		if e.TicketID == ticketID {
			e.FromGroupID = cloneInt64(e.FromGroupID)
			result = append(result, e)
		}
	}
	sortByCreation(result,
		func(e domain.GroupHistoryEntry) time.Time { return e.ChangedAt },
		func(e domain.GroupHistoryEntry) int64 { return e.ID },
		false,
	)
	return result, nil
}

type commentRepo struct{ s *Store }

func (r *commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment.ID = r.s.id()
	comment.CreatedAt = r.s.now()
	r.s.comments = append(r.s.comments, *comment)
	return nil
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Comment
	for _, c := range r.s.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	return result, nil
}

type workNoteRepo struct{ s *Store }

func (r *workNoteRepo) Create(_ context.Context, note *domain.WorkNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	note.ID = r.s.id()
	note.CreatedAt = r.s.now()
	r.s.workNotes = append(r.s.workNotes, *note)
	return nil
}

func (r *workNoteRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.WorkNote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.WorkNote
	for _, n := range r.s.workNotes {
		if n.TicketID == ticketID {
			result = append(result, n)
		}
	}
	return result, nil
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
