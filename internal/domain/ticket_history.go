package domain

import "time"

// SystemActorID identifies changes made by background jobs.
const SystemActorID int64 = 0

// Field names used in ticket history entries.
const (
	HistoryFieldStatus     = "status"
	HistoryFieldAssignment = "assignment"
	HistoryFieldSLA        = "SLA"
)

// TicketHistoryEntry is an immutable audit trail entry.
type TicketHistoryEntry struct {
	ID          int64
	TicketID    int64
	ChangedBy   int64
	FieldName   string
	OldValue    *string
	NewValue    *string
	Description string
	CreatedAt   time.Time
}

// GroupHistoryEntry records a ticket moving between support groups.
type GroupHistoryEntry struct {
	ID          int64
	TicketID    int64
	FromGroupID *int64
	ToGroupID   int64
	ChangedBy   int64
	Note        string
	ChangedAt   time.Time
}
