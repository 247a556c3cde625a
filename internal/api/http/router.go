package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/issue-service/internal/api/http/handlers"
	"github.com/spec-kit/issue-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	// Gatherer backs /metrics; nil hides the endpoint.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	org := app.Group("/api/orgs/:"+auth.OrgParam, cfg.AuthMiddleware.Handle, auth.RequireOrganization())

	org.Post("/projects/:projectId/tickets", cfg.Tickets.CreateTicket)
	org.Get("/projects/:projectId/tickets", cfg.Tickets.ListTickets)

	tickets := org.Group("/tickets/:ticketId")
	tickets.Get("", cfg.Tickets.GetTicket)
	tickets.Post("/assign", cfg.Tickets.Assign)
	tickets.Post("/status", cfg.Tickets.UpdateStatus)
	tickets.Get("/comments", cfg.Tickets.ListComments)
	tickets.Post("/comments", cfg.Tickets.AddComment)
	tickets.Get("/worknotes", cfg.Tickets.ListWorkNotes)
	tickets.Post("/worknotes", cfg.Tickets.AddWorkNote)
	tickets.Get("/history", cfg.Tickets.ListHistory)
	tickets.Get("/group-history", cfg.Tickets.ListGroupHistory)
}
