package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-service/internal/api/dto"
	"github.com/spec-kit/issue-service/internal/auth"
	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/service"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TicketsHandler manages ticket endpoints scoped to an organization.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, assignmentService *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, assignments: assignmentService}
}

// CreateTicket POST /api/orgs/:orgId/projects/:projectId/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := decode(c, &req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Title:          req.Title,
		Description:    req.Description,
		IssueType:      req.IssueType,
		Impact:         req.Impact,
		Urgency:        req.Urgency,
		SLAType:        req.SLAType,
		RequestName:    req.RequestName,
		RequestContact: req.RequestContact,
		CategoryID:     req.CategoryID,
		ClientID:       req.ClientID,
		AssetID:        req.AssetID,
	}
	if req.Assignment != nil {
		assignment, err := assignmentInput(*req.Assignment)
		if err != nil {
			return err
		}
		input.Assignment = &assignment
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.OrganizationID, principal.UserID, projectID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /api/orgs/:orgId/projects/:projectId/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	tickets, err := h.tickets.ListProjectTickets(c.UserContext(), principal.OrganizationID, projectID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items, "page": page, "page_size": pageSize})
}

// GetTicket GET /api/orgs/:orgId/tickets/:ticketId.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ticketID, err := ticketScope(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), principal.OrganizationID, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Assign POST /api/orgs/:orgId/tickets/:ticketId/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ticketID, err := ticketScope(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	input, err := assignmentInput(req)
	if err != nil {
		return err
	}
	ticket, err := h.assignments.Assign(c.UserContext(), principal.OrganizationID, principal.UserID, ticketID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateStatus POST /api/orgs/:orgId/tickets/:ticketId/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ticketID, err := ticketScope(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), principal.OrganizationID, principal.UserID, ticketID, req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /api/orgs/:orgId/tickets/:ticketId/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ticketID, err := ticketScope(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	comment, err := h.tickets.AddComment(c.UserContext(), principal.OrganizationID, principal.UserID, ticketID, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /api/orgs/:orgId/tickets/:ticketId/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	principal, ticketID, err := ticketScope(c)
	if err != nil {
		return err
	}
	comments, err := h.tickets.ListComments(c.UserContext(), principal.OrganizationID, ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddWorkNote POST /api/orgs/:orgId/tickets/:ticketId/worknotes.
func (h *TicketsHandler) AddWorkNote(c *fiber.Ctx) error {
	principal, ticketID, err := ticketScope(c)
	if err != nil {
		return err
	}
	var req dto.WorkNoteRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	note, err := h.tickets.AddWorkNote(c.UserContext(), principal.OrganizationID, principal.UserID, ticketID, req.Note)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": workNoteResponse(note)})
}

// ListWorkNotes GET /api/orgs/:orgId/tickets/:ticketId/worknotes.
func (h *TicketsHandler) ListWorkNotes(c *fiber.Ctx) error {
	principal, ticketID, err := ticketScope(c)
	if err != nil {
		return err
	}
	notes, err := h.tickets.ListWorkNotes(c.UserContext(), principal.OrganizationID, ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.WorkNoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, workNoteResponse(&notes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListHistory GET /api/orgs/:orgId/tickets/:ticketId/history?order=asc|desc.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	principal, ticketID, err := ticketScope(c)
	if err != nil {
		return err
	}
	order := repository.SortAscending
	switch strings.ToLower(c.Query("order")) {
	case "", "asc":
	case "desc":
		order = repository.SortDescending
	default:
		return apperrors.NewValidationError("order must be asc or desc", map[string]any{"order": c.Query("order")})
	}
	entries, err := h.tickets.ListHistory(c.UserContext(), principal.OrganizationID, ticketID, order)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.HistoryResponse{
			ID:          e.ID,
			ChangedBy:   e.ChangedBy,
			FieldName:   e.FieldName,
			OldValue:    e.OldValue,
			NewValue:    e.NewValue,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListGroupHistory GET /api/orgs/:orgId/tickets/:ticketId/group-history.
func (h *TicketsHandler) ListGroupHistory(c *fiber.Ctx) error {
	principal, ticketID, err := ticketScope(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.ListGroupHistory(c.UserContext(), principal.OrganizationID, ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.GroupHistoryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.GroupHistoryResponse{
			ID:          e.ID,
			FromGroupID: e.FromGroupID,
			ToGroupID:   e.ToGroupID,
			ChangedBy:   e.ChangedBy,
			Note:        e.Note,
			ChangedAt:   e.ChangedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func ticketScope(c *fiber.Ctx) (*auth.Principal, int64, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, 0, apperrors.NewUnauthorized("authentication required")
	}
	ticketID, err := paramID(c, "ticketId")
	if err != nil {
		return nil, 0, err
	}
	return principal, ticketID, nil
}

func assignmentInput(req dto.AssignRequest) (service.AssignmentInput, error) {
	assignmentType, ok := domain.ParseAssignmentType(req.AssignmentType)
	if !ok {
		return service.AssignmentInput{}, apperrors.NewValidationError("invalid assignment type", map[string]any{"assignment_type": req.AssignmentType})
	}
	return service.AssignmentInput{
		Type:    assignmentType,
		UserID:  req.UserID,
		GroupID: req.GroupID,
		Note:    req.Note,
	}, nil
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:             t.ID,
		TicketNumber:   t.TicketNumber,
		TicketCode:     t.TicketCode,
		OrganizationID: t.OrganizationID,
		ProjectID:      t.ProjectID,
		CategoryID:     t.CategoryID,
		Title:          t.Title,
		Description:    t.Description,
		IssueType:      t.IssueType,
		Impact:         t.Impact,
		Urgency:        t.Urgency,
		PriorityCode:   t.PriorityCode,
		Priority:       t.Priority,
		SLAType:        t.SLAType,
		SLA: dto.SLAResponse{
			ResponseHours:   t.SLA.ResponseHours,
			ResolutionHours: t.SLA.ResolutionHours,
			Response:        dto.SLATimerResponse{DueAt: t.SLA.Response.DueAt, RemainingSeconds: t.SLA.Response.RemainingSeconds},
			Resolution:      dto.SLATimerResponse{DueAt: t.SLA.Resolution.DueAt, RemainingSeconds: t.SLA.Resolution.RemainingSeconds},
			Paused:          t.SLA.Paused,
			Breached:        t.SLA.Breached,
			BreachedAt:      t.SLA.BreachedAt,
		},
		Status:         t.Status,
		ReporterID:     t.ReporterID,
		RequestName:    t.RequestName,
		RequestContact: t.RequestContact,
		ClientID:       t.ClientID,
		AssetID:        t.AssetID,
		AssignmentType: t.AssignmentType,
		AssignedUserID: t.AssignedUserID,
		AssignedGroup:  t.AssignedGroup,
		ResolvedAt:     t.ResolvedAt,
		ClosedAt:       t.ClosedAt,
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func commentResponse(c *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		Type:      c.Type,
		Internal:  c.Internal,
		CreatedAt: c.CreatedAt,
	}
}

func workNoteResponse(n *domain.WorkNote) dto.WorkNoteResponse {
	return dto.WorkNoteResponse{
		ID:        n.ID,
		TicketID:  n.TicketID,
		AuthorID:  n.AuthorID,
		Note:      n.Note,
		CreatedAt: n.CreatedAt,
	}
}
