package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/lifecycle"
	"github.com/spec-kit/issue-service/internal/repository/memory"
	"github.com/spec-kit/issue-service/internal/sla"
)

const (
	testOrg   int64 = 10
	otherOrg  int64 = 20
	testActor int64 = 501
)

var baseTime = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, event events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) ofType(eventType events.EventType) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, e := range l.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	clock      *sla.ManualClock
	store      *memory.Store
	audit      *AuditTrail
	assignment *AssignmentService
	tickets    *TicketService
	sla        *SLAService
	events     *eventLog
	project    domain.Project
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := sla.NewManualClock(baseTime)
	store := memory.NewStore(clock)
	dispatcher := events.NewInMemoryDispatcher()
	log := &eventLog{}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, log.handle)
	}

	audit := NewAuditTrail(store.History(), store.GroupHistory())
	assignment := NewAssignmentService(AssignmentDependencies{
		TicketRepo: store.Tickets(),
		GroupRepo:  store.Groups(),
		Audit:      audit,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     zap.NewNop(),
	})
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:   store.Tickets(),
		ProjectRepo:  store.Projects(),
		CategoryRepo: store.Categories(),
		CommentRepo:  store.Comments(),
		WorkNoteRepo: store.WorkNotes(),
		Audit:        audit,
		Assignment:   assignment,
		Policy:       lifecycle.DefaultPolicy(),
		Dispatcher:   dispatcher,
		Clock:        clock,
		Logger:       zap.NewNop(),
	})
	slaService := NewSLAService(SLADependencies{
		TicketRepo: store.Tickets(),
		Audit:      audit,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     zap.NewNop(),
	})

	project := store.AddProject(domain.Project{OrganizationID: testOrg, Name: "Operations", ProjectCode: "OPS"})
	return &testEnv{
		clock:      clock,
		store:      store,
		audit:      audit,
		assignment: assignment,
		tickets:    tickets,
		sla:        slaService,
		events:     log,
		project:    project,
	}
}

func (e *testEnv) addGroup(org int64, level domain.GroupLevel, active bool) domain.Group {
	return e.store.AddGroup(domain.Group{OrganizationID: org, Name: string(level) + " desk", Level: level, Active: active})
}

func (e *testEnv) createTicket(t *testing.T, impact, urgency string) *domain.Ticket {
	t.Helper()
	ticket, err := e.tickets.CreateTicket(context.Background(), testOrg, testActor, e.project.ID, TicketCreateInput{
		Title:   "Printer on fire",
		Impact:  impact,
		Urgency: urgency,
	})
	require.NoError(t, err)
	return ticket
}

func int64Ptr(v int64) *int64 {
	return &v
}

func idText(id int64) string {
	return strconv.FormatInt(id, 10)
}
