// Package memory provides in-process implementations of the repository
// interfaces. It backs local runs without Postgres and the service tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/sla"
)

// Store holds every table behind a single lock.
type Store struct {
	mu    sync.RWMutex
	clock sla.Clock

	nextID int64

	projects      map[int64]*project
	categories    map[int64]domain.Category
	groups        map[int64]domain.Group
	tickets       map[int64]*domain.Ticket
	history       []domain.TicketHistoryEntry
	groupHistory  []domain.GroupHistoryEntry
	comments      []domain.Comment
	workNotes     []domain.WorkNote
	failUpdateIDs map[int64]error
}

type project struct {
	domain.Project
	seq int64
}

// NewStore creates an empty store. A nil clock falls back to the system clock.
func NewStore(clock sla.Clock) *Store {
	if clock == nil {
		clock = sla.SystemClock{}
	}
	return &Store{
		clock:         clock,
		projects:      make(map[int64]*project),
		categories:    make(map[int64]domain.Category),
		groups:        make(map[int64]domain.Group),
		tickets:       make(map[int64]*domain.Ticket),
		failUpdateIDs: make(map[int64]error),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

// AddProject registers a project and returns it with its assigned id.
func (s *Store) AddProject(p domain.Project) domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.projects[p.ID] = &project{Project: p}
	return p
}

// AddCategory registers a category.
func (s *Store) AddCategory(c domain.Category) domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	s.categories[c.ID] = c
	return c
}

// AddGroup registers a support group.
func (s *Store) AddGroup(g domain.Group) domain.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == 0 {
		g.ID = s.id()
	}
	now := s.now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	g.MemberIDs = append([]int64(nil), g.MemberIDs...)
	s.groups[g.ID] = g
	return g
}

// FailUpdates makes every subsequent Update of the ticket return err.
// Passing a nil error clears the failure.
func (s *Store) FailUpdates(ticketID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failUpdateIDs, ticketID)
		return
	}
	s.failUpdateIDs[ticketID] = err
}

// Tickets exposes the ticket table.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s} }

// Projects exposes the project table.
func (s *Store) Projects() repository.ProjectRepository { return &projectRepo{s} }

// Categories exposes the category table.
func (s *Store) Categories() repository.CategoryRepository { return &categoryRepo{s} }

// Groups exposes the support group table.
func (s *Store) Groups() repository.GroupRepository { return &groupRepo{s} }

// History exposes the ticket audit trail.
func (s *Store) History() repository.TicketHistoryRepository { return &historyRepo{s} }

// GroupHistory exposes the group reassignment trail.
func (s *Store) GroupHistory() repository.GroupHistoryRepository { return &groupHistoryRepo{s} }

// Comments exposes ticket comments.
func (s *Store) Comments() repository.CommentRepository { return &commentRepo{s} }

// WorkNotes exposes ticket work notes.
func (s *Store) WorkNotes() repository.WorkNoteRepository { return &workNoteRepo{s} }

func sortByCreation[T any](items []T, at func(T) time.Time, id func(T) int64, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		ai, aj := at(items[i]), at(items[j])
		if !ai.Equal(aj) {
			if desc {
				return ai.After(aj)
			}
			return ai.Before(aj)
		}
		if desc {
			return id(items[i]) > id(items[j])
		}
		return id(items[i]) < id(items[j])
	})
}
