// Package sla classifies tickets and runs their response/resolution timers.
package sla

import "github.com/spec-kit/issue-service/internal/domain"

// Hours is the SLA allocation for a priority code.
type Hours struct {
	Response   int
	Resolution int
}

var priorityMatrix = map[domain.Impact]map[domain.Urgency]domain.PriorityCode{
	domain.ImpactLow: {
		domain.UrgencyLow:      domain.PriorityP4,
		domain.UrgencyMedium:   domain.PriorityP3,
		domain.UrgencyHigh:     domain.PriorityP3,
		domain.UrgencyCritical: domain.PriorityP2,
	},
	domain.ImpactMedium: {
		domain.UrgencyLow:      domain.PriorityP3,
		domain.UrgencyMedium:   domain.PriorityP3,
		domain.UrgencyHigh:     domain.PriorityP2,
		domain.UrgencyCritical: domain.PriorityP1,
	},
	domain.ImpactHigh: {
		domain.UrgencyLow:      domain.PriorityP2,
		domain.UrgencyMedium:   domain.PriorityP2,
		domain.UrgencyHigh:     domain.PriorityP1,
		domain.UrgencyCritical: domain.PriorityP1,
	},
}

var hoursByPriority = map[domain.PriorityCode]Hours{
	domain.PriorityP1: {Response: 1, Resolution: 2},
	domain.PriorityP2: {Response: 2, Resolution: 4},
	domain.PriorityP3: {Response: 4, Resolution: 8},
	domain.PriorityP4: {Response: 6, Resolution: 12},
}

var legacyByPriority = map[domain.PriorityCode]domain.TicketPriority{
	domain.PriorityP1: domain.TicketPriorityCritical,
	domain.PriorityP2: domain.TicketPriorityHigh,
	domain.PriorityP3: domain.TicketPriorityMedium,
	domain.PriorityP4: domain.TicketPriorityLow,
}

// Classify maps impact and urgency onto a priority code. Unspecified
// inputs fall back to P3.
func Classify(impact domain.Impact, urgency domain.Urgency) domain.PriorityCode {
	row, ok := priorityMatrix[impact]
	if !ok {
		return domain.PriorityP3
	}
	code, ok := row[urgency]
	if !ok {
		return domain.PriorityP3
	}
	return code
}

// HoursFor returns the response/resolution allocation for a priority code.
// Unknown codes get the P3 allocation.
func HoursFor(code domain.PriorityCode) Hours {
	if hours, ok := hoursByPriority[code]; ok {
		return hours
	}
	return hoursByPriority[domain.PriorityP3]
}

// LegacyPriority maps a priority code onto the legacy enum.
func LegacyPriority(code domain.PriorityCode) domain.TicketPriority {
	if p, ok := legacyByPriority[code]; ok {
		return p
	}
	return domain.TicketPriorityMedium
}

// Classification is the full derived classification of a ticket.
type Classification struct {
	Code     domain.PriorityCode
	Priority domain.TicketPriority
	Hours    Hours
}

// ClassifyTicket derives every classification field from impact and urgency.
func ClassifyTicket(impact domain.Impact, urgency domain.Urgency) Classification {
	code := Classify(impact, urgency)
	return Classification{
		Code:     code,
		Priority: LegacyPriority(code),
		Hours:    HoursFor(code),
	}
}

// Apply writes the classification onto the ticket.
func (c Classification) Apply(ticket *domain.Ticket) {
	ticket.PriorityCode = c.Code
	ticket.Priority = c.Priority
	ticket.SLA.ResponseHours = c.Hours.Response
	ticket.SLA.ResolutionHours = c.Hours.Resolution
}
