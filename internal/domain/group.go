package domain

import "time"

// GroupLevel is the escalation tier of a support group.
type GroupLevel string

const (
	GroupLevelL1 GroupLevel = "L1"
	GroupLevelL2 GroupLevel = "L2"
	GroupLevelL3 GroupLevel = "L3"
)

// Group is a support team tickets can be routed to.
type Group struct {
	ID             int64
	OrganizationID int64
	Name           string
	Level          GroupLevel
	Active         bool
	MemberIDs      []int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
