package dto

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
)

// AssignRequest payload. AssignmentType is one of NONE, USER or GROUP.
type AssignRequest struct {
	AssignmentType string `json:"assignment_type" validate:"required"`
	UserID         *int64 `json:"user_id" validate:"omitempty,gt=0"`
	GroupID        *int64 `json:"group_id" validate:"omitempty,gt=0"`
	Note           string `json:"note" validate:"max=2000"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title          string         `json:"title" validate:"required,max=255"`
	Description    string         `json:"description"`
	IssueType      string         `json:"issue_type" validate:"max=64"`
	Impact         string         `json:"impact"`
	Urgency        string         `json:"urgency"`
	SLAType        string         `json:"sla_type" validate:"max=64"`
	RequestName    string         `json:"request_name" validate:"max=255"`
	RequestContact string         `json:"request_contact" validate:"max=255"`
	CategoryID     *int64         `json:"category_id" validate:"omitempty,gt=0"`
	ClientID       *int64         `json:"client_id" validate:"omitempty,gt=0"`
	AssetID        *int64         `json:"asset_id" validate:"omitempty,gt=0"`
	Assignment     *AssignRequest `json:"assignment"`
}

// StatusRequest payload.
type StatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment" validate:"max=10000"`
}

// CommentRequest payload.
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

// WorkNoteRequest payload.
type WorkNoteRequest struct {
	Note string `json:"note" validate:"required,max=10000"`
}

// SLATimerResponse is one countdown slot.
type SLATimerResponse struct {
	DueAt            *time.Time `json:"due_at"`
	RemainingSeconds *int64     `json:"remaining_seconds"`
}

// SLAResponse describes a ticket's timers.
type SLAResponse struct {
	ResponseHours   int              `json:"response_hours"`
	ResolutionHours int              `json:"resolution_hours"`
	Response        SLATimerResponse `json:"response"`
	Resolution      SLATimerResponse `json:"resolution"`
	Paused          bool             `json:"paused"`
	Breached        bool             `json:"breached"`
	BreachedAt      *time.Time       `json:"breached_at"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID             int64                 `json:"id"`
	TicketNumber   string                `json:"ticket_number"`
	TicketCode     string                `json:"ticket_code"`
	OrganizationID int64                 `json:"organization_id"`
	ProjectID      int64                 `json:"project_id"`
	CategoryID     *int64                `json:"category_id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	IssueType      string                `json:"issue_type"`
	Impact         domain.Impact         `json:"impact"`
	Urgency        domain.Urgency        `json:"urgency"`
	PriorityCode   domain.PriorityCode   `json:"priority_code"`
	Priority       domain.TicketPriority `json:"priority"`
	SLAType        string                `json:"sla_type"`
	SLA            SLAResponse           `json:"sla"`
	Status         domain.TicketStatus   `json:"status"`
	ReporterID     int64                 `json:"reporter_id"`
	RequestName    string                `json:"request_name"`
	RequestContact string                `json:"request_contact"`
	ClientID       *int64                `json:"client_id"`
	AssetID        *int64                `json:"asset_id"`
	AssignmentType domain.AssignmentType `json:"assignment_type"`
	AssignedUserID *int64                `json:"assigned_user_id"`
	AssignedGroup  *int64                `json:"assigned_group_id"`
	ResolvedAt     *time.Time            `json:"resolved_at"`
	ClosedAt       *time.Time            `json:"closed_at"`
	Version        int64                 `json:"version"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// CommentResponse is a thread entry.
type CommentResponse struct {
	ID        int64              `json:"id"`
	TicketID  int64              `json:"ticket_id"`
	AuthorID  int64              `json:"author_id"`
	Text      string             `json:"text"`
	Type      domain.CommentType `json:"type"`
	Internal  bool               `json:"internal"`
	CreatedAt time.Time          `json:"created_at"`
}

// WorkNoteResponse is an internal note.
type WorkNoteResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	AuthorID  int64     `json:"author_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID          int64     `json:"id"`
	ChangedBy   int64     `json:"changed_by"`
	FieldName   string    `json:"field_name"`
	OldValue    *string   `json:"old_value"`
	NewValue    *string   `json:"new_value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroupHistoryResponse records a group move.
type GroupHistoryResponse struct {
	ID          int64     `json:"id"`
	FromGroupID *int64    `json:"from_group_id"`
	ToGroupID   int64     `json:"to_group_id"`
	ChangedBy   int64     `json:"changed_by"`
	Note        string    `json:"note"`
	ChangedAt   time.Time `json:"changed_at"`
}
