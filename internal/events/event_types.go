package events

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketSLABreached   EventType = "ticket_sla_breached"
)

// AllEventTypes lists every event type, used by subscribers that relay all traffic.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketSLABreached,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	TicketID       int64       `json:"ticket_id"`
	OrganizationID int64       `json:"organization_id"`
	ActorID        int64       `json:"actor_id"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber  string                `json:"ticket_number"`
	ProjectID     int64                 `json:"project_id"`
	PriorityCode  domain.PriorityCode   `json:"priority_code"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedGroup *int64                `json:"assigned_group_id,omitempty"`
	Title         string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignmentType domain.AssignmentType `json:"assignment_type"`
	AssignedUserID *int64                `json:"assigned_user_id,omitempty"`
	AssignedGroup  *int64                `json:"assigned_group_id,omitempty"`
	Auto           bool                  `json:"auto"`
}

// TicketSLABreachedPayload payload.
type TicketSLABreachedPayload struct {
	TicketNumber string    `json:"ticket_number"`
	BreachedAt   time.Time `json:"breached_at"`
}
