package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew              TicketStatus = "NEW"
	TicketStatusOpen             TicketStatus = "OPEN"
	TicketStatusInProgress       TicketStatus = "IN_PROGRESS"
	TicketStatusOnHold           TicketStatus = "ON_HOLD"
	TicketStatusAwaitingUserInfo TicketStatus = "AWAITING_USER_INFO"
	TicketStatusResolved         TicketStatus = "RESOLVED"
	TicketStatusClosed           TicketStatus = "CLOSED"
	TicketStatusCancelled        TicketStatus = "CANCELLED"
)

// TicketStatuses lists every known status.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusAwaitingUserInfo,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// ParseTicketStatus resolves a status name case-insensitively.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	candidate := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, status := range TicketStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Impact is the breadth of a ticket's effect on the business.
type Impact string

const (
	ImpactUnspecified Impact = ""
	ImpactLow         Impact = "LOW"
	ImpactMedium      Impact = "MEDIUM"
	ImpactHigh        Impact = "HIGH"
)

// ParseImpact maps free-form input onto the closed set; anything else is unspecified.
func ParseImpact(raw string) Impact {
	switch Impact(strings.ToUpper(strings.TrimSpace(raw))) {
	case ImpactLow:
		return ImpactLow
	case ImpactMedium:
		return ImpactMedium
	case ImpactHigh:
		return ImpactHigh
	default:
		return ImpactUnspecified
	}
}

// Urgency is how quickly a ticket needs attention.
type Urgency string

const (
	UrgencyUnspecified Urgency = ""
	UrgencyLow         Urgency = "LOW"
	UrgencyMedium      Urgency = "MEDIUM"
	UrgencyHigh        Urgency = "HIGH"
	UrgencyCritical    Urgency = "CRITICAL"
)

// ParseUrgency maps free-form input onto the closed set; anything else is unspecified.
func ParseUrgency(raw string) Urgency {
	switch Urgency(strings.ToUpper(strings.TrimSpace(raw))) {
	case UrgencyLow:
		return UrgencyLow
	case UrgencyMedium:
		return UrgencyMedium
	case UrgencyHigh:
		return UrgencyHigh
	case UrgencyCritical:
		return UrgencyCritical
	default:
		return UrgencyUnspecified
	}
}

// PriorityCode is the derived severity tier, P1 being the most severe.
type PriorityCode string

const (
	PriorityP1 PriorityCode = "P1"
	PriorityP2 PriorityCode = "P2"
	PriorityP3 PriorityCode = "P3"
	PriorityP4 PriorityCode = "P4"
)

// TicketPriority is the legacy priority enum kept in sync with PriorityCode.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "CRITICAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityLow      TicketPriority = "LOW"
)

// AssignmentType says who currently owns a ticket.
type AssignmentType string

const (
	AssignmentNone  AssignmentType = "NONE"
	AssignmentUser  AssignmentType = "USER"
	AssignmentGroup AssignmentType = "GROUP"
)

// ParseAssignmentType resolves an assignment type name case-insensitively.
func ParseAssignmentType(raw string) (AssignmentType, bool) {
	switch AssignmentType(strings.ToUpper(strings.TrimSpace(raw))) {
	case AssignmentNone:
		return AssignmentNone, true
	case AssignmentUser:
		return AssignmentUser, true
	case AssignmentGroup:
		return AssignmentGroup, true
	default:
		return "", false
	}
}

// SLATimer is one countdown slot. Exactly one of DueAt (active) or
// RemainingSeconds (paused) is set once the timer is initialized.
type SLATimer struct {
	DueAt            *time.Time
	RemainingSeconds *int64
}

// Active reports whether the timer is counting down.
func (t SLATimer) Active() bool {
	return t.DueAt != nil
}

// Paused reports whether the timer holds a captured remaining duration.
func (t SLATimer) Paused() bool {
	return t.DueAt == nil && t.RemainingSeconds != nil
}

// SLAState carries the paired response/resolution timers of a ticket.
type SLAState struct {
	ResponseHours   int
	ResolutionHours int
	Response        SLATimer
	Resolution      SLATimer
	Paused          bool
	Breached        bool
	BreachedAt      *time.Time
}

// Ticket is the aggregate for service requests.
type Ticket struct {
	ID             int64
	TicketNumber   string
	TicketCode     string
	OrganizationID int64
	ProjectID      int64
	CategoryID     *int64
	Title          string
	Description    string
	IssueType      string
	Impact         Impact
	Urgency        Urgency
	PriorityCode   PriorityCode
	Priority       TicketPriority
	SLAType        string
	SLA            SLAState
	Status         TicketStatus
	ReporterID     int64
	RequestName    string
	RequestContact string
	ClientID       *int64
	AssetID        *int64
	AssignmentType AssignmentType
	AssignedUserID *int64
	AssignedGroup  *int64
	ResolvedAt     *time.Time
	ClosedAt       *time.Time
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsTerminal reports whether the status ends SLA accounting.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusResolved
}
