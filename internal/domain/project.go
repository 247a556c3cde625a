package domain

import (
	"fmt"
	"time"
)

// Project owns tickets and belongs to exactly one organization.
type Project struct {
	ID             int64
	OrganizationID int64
	Name           string
	ProjectCode    string
	CreatedAt      time.Time
}

// Category classifies tickets within an organization.
type Category struct {
	ID             int64
	OrganizationID int64
	Name           string
}

// FormatTicketNumber renders the human readable ticket number for the n-th
// ticket of a project.
func FormatTicketNumber(projectCode string, n int64) string {
	return fmt.Sprintf("%s-%d", projectCode, n)
}
