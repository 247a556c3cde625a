package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/api/http/handlers"
	"github.com/spec-kit/issue-service/internal/auth"
	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/lifecycle"
	"github.com/spec-kit/issue-service/internal/observability"
	"github.com/spec-kit/issue-service/internal/repository/memory"
	"github.com/spec-kit/issue-service/internal/service"
	"github.com/spec-kit/issue-service/internal/sla"
)

const (
	orgID   int64 = 10
	actorID int64 = 501
)

type apiFixture struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	store   *memory.Store
	project domain.Project
	group   domain.Group
	token   string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	clock := sla.NewManualClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	store := memory.NewStore(clock)
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditTrail(store.History(), store.GroupHistory())
	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: store.Tickets(),
		GroupRepo:  store.Groups(),
		Audit:      audit,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
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
		Logger:       logger,
	})

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("issue-service", "test", map[string]handlers.Pinger{"redis": nil}),
		Tickets:        handlers.NewTicketsHandler(tickets, assignment),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Gatherer:       registry,
	})

	token, _, err := tokens.GenerateToken(actorID, orgID)
	require.NoError(t, err)

	return &apiFixture{
		app:     app,
		tokens:  tokens,
		store:   store,
		project: store.AddProject(domain.Project{OrganizationID: orgID, Name: "Operations", ProjectCode: "OPS"}),
		group:   store.AddGroup(domain.Group{OrganizationID: orgID, Name: "Service desk", Level: domain.GroupLevelL1, Active: true}),
		token:   token,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	return f.doWithToken(t, method, path, body, f.token)
}

func (f *apiFixture) doWithToken(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (f *apiFixture) ticketsPath() string {
	return fmt.Sprintf("/api/orgs/%d/projects/%d/tickets", orgID, f.project.ID)
}

func ticketPath(ticketID any, suffix string) string {
	return fmt.Sprintf("/api/orgs/%d/tickets/%v%s", orgID, ticketID, suffix)
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data object in %v", body)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestCreateTicketEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, fiber.MethodPost, f.ticketsPath(), map[string]any{
		"title":   "VPN down",
		"impact":  "HIGH",
		"urgency": "HIGH",
	})
	require.Equal(t, fiber.StatusCreated, status)
	ticket := data(t, body)
	assert.Equal(t, "OPS-1", ticket["ticket_number"])
	assert.Equal(t, "P1", ticket["priority_code"])
	assert.Equal(t, "NEW", ticket["status"])
	assert.Equal(t, "GROUP", ticket["assignment_type"])
	assert.EqualValues(t, f.group.ID, ticket["assigned_group_id"])

	slaBody := ticket["sla"].(map[string]any)
	assert.EqualValues(t, 1, slaBody["response_hours"])
	assert.EqualValues(t, 2, slaBody["resolution_hours"])
}

func TestCreateTicketRejectsMissingTitle(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, fiber.MethodPost, f.ticketsPath(), map[string]any{"impact": "LOW"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "required", details["title"])
}

func TestAuthAndOrganizationScope(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.doWithToken(t, fiber.MethodGet, f.ticketsPath(), nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = f.doWithToken(t, fiber.MethodGet, f.ticketsPath(), nil, "not-a-token")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	foreign, _, err := f.tokens.GenerateToken(actorID, 99)
	require.NoError(t, err)
	status, body = f.doWithToken(t, fiber.MethodGet, f.ticketsPath(), nil, foreign)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))
}

func TestTicketWorkflowEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	_, body := f.do(t, fiber.MethodPost, f.ticketsPath(), map[string]any{"title": "Laptop"})
	ticketID := data(t, body)["id"]

	status, body := f.do(t, fiber.MethodPost, ticketPath(ticketID, "/assign"), map[string]any{
		"assignment_type": "USER",
		"user_id":         77,
		"note":            "taking it",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "USER", data(t, body)["assignment_type"])
	assert.EqualValues(t, 77, data(t, body)["assigned_user_id"])

	status, body = f.do(t, fiber.MethodPost, ticketPath(ticketID, "/status"), map[string]any{
		"status":  "on_hold",
		"comment": "waiting for vendor",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ON_HOLD", data(t, body)["status"])
	assert.Equal(t, true, data(t, body)["sla"].(map[string]any)["paused"])

	status, body = f.do(t, fiber.MethodGet, ticketPath(ticketID, "/comments"), nil)
	require.Equal(t, fiber.StatusOK, status)
	comments := body["data"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "waiting for vendor", comments[0].(map[string]any)["text"])

	status, _ = f.do(t, fiber.MethodPost, ticketPath(ticketID, "/worknotes"), map[string]any{"note": "called vendor"})
	require.Equal(t, fiber.StatusCreated, status)
	_, body = f.do(t, fiber.MethodGet, ticketPath(ticketID, "/worknotes"), nil)
	assert.Len(t, body["data"].([]any), 1)

	status, body = f.do(t, fiber.MethodGet, ticketPath(ticketID, "/history?order=desc"), nil)
	require.Equal(t, fiber.StatusOK, status)
	history := body["data"].([]any)
	require.NotEmpty(t, history)
	assert.Equal(t, "status", history[0].(map[string]any)["field_name"])

	status, body = f.do(t, fiber.MethodGet, ticketPath(ticketID, "/group-history"), nil)
	require.Equal(t, fiber.StatusOK, status)
	groups := body["data"].([]any)
	require.Len(t, groups, 1)
	assert.EqualValues(t, f.group.ID, groups[0].(map[string]any)["to_group_id"])
}

func TestTicketEndpointErrors(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, fiber.MethodGet, ticketPath(999, ""), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, _ = f.do(t, fiber.MethodGet, ticketPath("abc", ""), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	_, body = f.do(t, fiber.MethodPost, f.ticketsPath(), map[string]any{"title": "Mouse"})
	ticketID := data(t, body)["id"]

	status, body = f.do(t, fiber.MethodPost, ticketPath(ticketID, "/status"), map[string]any{"status": "SLEEPING"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, _ = f.do(t, fiber.MethodPost, ticketPath(ticketID, "/assign"), map[string]any{"assignment_type": "ROBOT"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = f.do(t, fiber.MethodGet, ticketPath(ticketID, "/history?order=sideways"), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = f.do(t, fiber.MethodPost, ticketPath(ticketID, "/status"), map[string]any{"status": "CLOSED"})
	require.Equal(t, fiber.StatusOK, status)
	status, body = f.do(t, fiber.MethodPost, ticketPath(ticketID, "/status"), map[string]any{"status": "OPEN"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "TICKET_ALREADY_CLOSED", errorCode(body))
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.doWithToken(t, fiber.MethodGet, "/health/live", nil, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = f.doWithToken(t, fiber.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "disabled", body["dependencies"].(map[string]any)["redis"])

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "issue_service_http_requests_total")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.doWithToken(t, fiber.MethodGet, "/nope", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestListTicketsClampsPageSize(t *testing.T) {
	f := newAPIFixture(t)
	for _, title := range []string{"one", "two", "three"} {
		status, _ := f.do(t, fiber.MethodPost, f.ticketsPath(), map[string]any{"title": title})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := f.do(t, fiber.MethodGet, f.ticketsPath()+"?page=1&page_size=1000", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 100, body["page_size"])
	assert.Len(t, body["data"].([]any), 3)

	_, body = f.do(t, fiber.MethodGet, f.ticketsPath()+"?page=2&page_size=2", nil)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "one", items[0].(map[string]any)["title"])
}
