package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/lifecycle"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/sla"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	mutator    ticketMutator
	tickets    repository.TicketRepository
	projects   repository.ProjectRepository
	categories repository.CategoryRepository
	comments   repository.CommentRepository
	workNotes  repository.WorkNoteRepository
	audit      *AuditTrail
	assignment *AssignmentService
	policy     lifecycle.Policy
	clock      sla.Clock
	events     eventPublisher
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ProjectRepo  repository.ProjectRepository
	CategoryRepo repository.CategoryRepository
	CommentRepo  repository.CommentRepository
	WorkNoteRepo repository.WorkNoteRepository
	Audit        *AuditTrail
	Assignment   *AssignmentService
	Policy       lifecycle.Policy
	Dispatcher   events.Dispatcher
	Clock        sla.Clock
	Logger       *zap.Logger
}

// TicketCreateInput describes ticket creation payload. Impact and urgency are
// free-form; unrecognized values classify as P3.
type TicketCreateInput struct {
	Title          string
	Description    string
	IssueType      string
	Impact         string
	Urgency        string
	SLAType        string
	RequestName    string
	RequestContact string
	CategoryID     *int64
	ClientID       *int64
	AssetID        *int64
	// Assignment replaces L1 auto-assignment when set.
	Assignment *AssignmentInput
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = sla.SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		mutator:    ticketMutator{tickets: deps.TicketRepo},
		tickets:    deps.TicketRepo,
		projects:   deps.ProjectRepo,
		categories: deps.CategoryRepo,
		comments:   deps.CommentRepo,
		workNotes:  deps.WorkNoteRepo,
		audit:      deps.Audit,
		assignment: deps.Assignment,
		policy:     deps.Policy,
		clock:      clock,
		events:     eventPublisher{dispatcher: deps.Dispatcher, clock: clock, logger: logger},
		logger:     logger,
	}
}

// CreateTicket classifies, times and routes a new ticket in projectID.
func (s *TicketService) CreateTicket(ctx context.Context, orgID, actorID, projectID int64, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("project", map[string]any{"project_id": projectID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if project.OrganizationID != orgID {
		return nil, apperrors.NewForbidden("project belongs to another organization")
	}
	if input.CategoryID != nil {
		if err := s.checkCategory(ctx, orgID, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now().UTC()
	ticket := &domain.Ticket{
		TicketCode:     newTicketCode(now),
		OrganizationID: project.OrganizationID,
		ProjectID:      project.ID,
		CategoryID:     input.CategoryID,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		IssueType:      strings.TrimSpace(input.IssueType),
		Impact:         domain.ParseImpact(input.Impact),
		Urgency:        domain.ParseUrgency(input.Urgency),
		SLAType:        strings.TrimSpace(input.SLAType),
		ReporterID:     actorID,
		RequestName:    strings.TrimSpace(input.RequestName),
		RequestContact: strings.TrimSpace(input.RequestContact),
		ClientID:       input.ClientID,
		AssetID:        input.AssetID,
		AssignmentType: domain.AssignmentNone,
	}
	sla.ClassifyTicket(ticket.Impact, ticket.Urgency).Apply(ticket)
	lifecycle.Initialize(ticket, now)

	var (
		change   assignmentChange
		assigned bool
	)
	if input.Assignment != nil {
		change, err = s.assignment.apply(ctx, ticket, *input.Assignment)
		assigned = err == nil
	} else {
		change, assigned, err = s.assignment.autoAssign(ctx, ticket)
	}
	if err != nil {
		return nil, err
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.audit.RecordCreation(ctx, ticket, actorID); err != nil {
		return nil, err
	}
	if assigned {
		if err := s.assignment.record(ctx, ticket, actorID, change); err != nil {
			return nil, err
		}
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("priority_code", string(ticket.PriorityCode)),
		zap.String("assignment", assignmentLabel(ticket)),
	)
	s.events.publish(ctx, events.Event{
		Type:           events.EventTicketCreated,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		ActorID:        actorID,
		Payload: events.TicketCreatedPayload{
			TicketNumber:  ticket.TicketNumber,
			ProjectID:     ticket.ProjectID,
			PriorityCode:  ticket.PriorityCode,
			Priority:      ticket.Priority,
			AssignedGroup: ticket.AssignedGroup,
			Title:         ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket returns a ticket of the organization.
func (s *TicketService) GetTicket(ctx context.Context, orgID, ticketID int64) (*domain.Ticket, error) {
	return s.mutator.load(ctx, orgID, ticketID)
}

// ListProjectTickets returns a page of project tickets, newest first.
func (s *TicketService) ListProjectTickets(ctx context.Context, orgID, projectID int64, limit, offset int) ([]domain.Ticket, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("project", map[string]any{"project_id": projectID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if project.OrganizationID != orgID {
		return nil, apperrors.NewForbidden("project belongs to another organization")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	tickets, err := s.tickets.ListByProject(ctx, projectID, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// UpdateStatus moves the ticket to rawStatus, adjusting SLA timers. A non
// empty comment is stored as a public comment.
func (s *TicketService) UpdateStatus(ctx context.Context, orgID, actorID, ticketID int64, rawStatus, comment string) (*domain.Ticket, error) {
	target, ok := domain.ParseTicketStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("invalid ticket status", map[string]any{"status": rawStatus})
	}
	comment = strings.TrimSpace(comment)

	var tr lifecycle.Transition
	ticket, err := s.mutator.mutate(ctx, orgID, ticketID, func(t *domain.Ticket) error {
		var err error
		tr, err = s.policy.Apply(t, target, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.RecordStatusChange(ctx, ticket.ID, actorID, tr.From, tr.To, comment); err != nil {
		return nil, err
	}
	if comment != "" {
		if _, err := s.createComment(ctx, ticket.ID, actorID, comment); err != nil {
			return nil, err
		}
	}

	s.logger.Info("ticket status updated",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.Bool("sla_suspended", tr.SLASuspended),
		zap.Bool("sla_resumed", tr.SLAResumed),
	)
	s.events.publish(ctx, events.Event{
		Type:           events.EventTicketStatusChanged,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		ActorID:        actorID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: tr.From,
			NewStatus: tr.To,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// AddComment appends a public comment.
func (s *TicketService) AddComment(ctx context.Context, orgID, actorID, ticketID int64, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required", nil)
	}
	if _, err := s.mutator.load(ctx, orgID, ticketID); err != nil {
		return nil, err
	}
	return s.createComment(ctx, ticketID, actorID, text)
}

// ListComments returns the comments of a ticket.
func (s *TicketService) ListComments(ctx context.Context, orgID, ticketID int64) ([]domain.Comment, error) {
	if _, err := s.mutator.load(ctx, orgID, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return comments, nil
}

// AddWorkNote appends an internal work note.
func (s *TicketService) AddWorkNote(ctx context.Context, orgID, actorID, ticketID int64, note string) (*domain.WorkNote, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, apperrors.NewValidationError("note is required", nil)
	}
	if _, err := s.mutator.load(ctx, orgID, ticketID); err != nil {
		return nil, err
	}
	workNote := &domain.WorkNote{TicketID: ticketID, AuthorID: actorID, Note: note}
	if err := s.workNotes.Create(ctx, workNote); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return workNote, nil
}

// ListWorkNotes returns the work notes of a ticket.
func (s *TicketService) ListWorkNotes(ctx context.Context, orgID, ticketID int64) ([]domain.WorkNote, error) {
	if _, err := s.mutator.load(ctx, orgID, ticketID); err != nil {
		return nil, err
	}
	notes, err := s.workNotes.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return notes, nil
}

// ListHistory returns the field change history of a ticket.
func (s *TicketService) ListHistory(ctx context.Context, orgID, ticketID int64, order repository.SortOrder) ([]domain.TicketHistoryEntry, error) {
	if _, err := s.mutator.load(ctx, orgID, ticketID); err != nil {
		return nil, err
	}
	return s.audit.TicketHistory(ctx, ticketID, order)
}

// ListGroupHistory returns the group reassignments of a ticket.
func (s *TicketService) ListGroupHistory(ctx context.Context, orgID, ticketID int64) ([]domain.GroupHistoryEntry, error) {
	if _, err := s.mutator.load(ctx, orgID, ticketID); err != nil {
		return nil, err
	}
	return s.audit.GroupHistory(ctx, ticketID)
}

func (s *TicketService) createComment(ctx context.Context, ticketID, actorID int64, text string) (*domain.Comment, error) {
	comment := &domain.Comment{
		TicketID: ticketID,
		AuthorID: actorID,
		Text:     text,
		Type:     domain.CommentTypeComment,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return comment, nil
}

func (s *TicketService) checkCategory(ctx context.Context, orgID, categoryID int64) error {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return apperrors.NewInternalError(err)
	}
	if category.OrganizationID != orgID {
		return apperrors.NewForbidden("category belongs to another organization")
	}
	return nil
}
