package sla

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
)

// Timer instants are kept at whole-second precision so a pause captured and
// resumed at the same instant restores the due timestamp exactly.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Initialize starts both timers at ref. Called once at ticket creation.
func Initialize(state *domain.SLAState, ref time.Time, hours Hours) {
	ref = normalize(ref)
	responseDue := ref.Add(time.Duration(hours.Response) * time.Hour)
	resolutionDue := ref.Add(time.Duration(hours.Resolution) * time.Hour)

	state.ResponseHours = hours.Response
	state.ResolutionHours = hours.Resolution
	state.Response = domain.SLATimer{DueAt: &responseDue}
	state.Resolution = domain.SLATimer{DueAt: &resolutionDue}
	state.Paused = false
}

// Suspend captures the remaining duration of every active timer and clears
// its due timestamp. Paused timers keep the value captured earlier. It
// reports whether anything changed.
func Suspend(state *domain.SLAState, ref time.Time) bool {
	ref = normalize(ref)
	changed := suspendTimer(&state.Response, ref)
	if suspendTimer(&state.Resolution, ref) {
		changed = true
	}
	state.Paused = state.Response.Paused() && state.Resolution.Paused()
	return changed
}

// Resume restarts every paused timer from ref using its remaining duration.
// It reports whether anything changed.
func Resume(state *domain.SLAState, ref time.Time) bool {
	ref = normalize(ref)
	changed := resumeTimer(&state.Response, ref)
	if resumeTimer(&state.Resolution, ref) {
		changed = true
	}
	state.Paused = state.Response.Paused() && state.Resolution.Paused()
	return changed
}

// BreachEligible reports whether an unbreached, unpaused state has an
// active timer whose due timestamp is before now.
func BreachEligible(state domain.SLAState, now time.Time) bool {
	if state.Breached || state.Paused {
		return false
	}
	return timerOverdue(state.Response, now) || timerOverdue(state.Resolution, now)
}

// MarkBreached flags the state as breached. BreachedAt is only set on the
// first detection and Breached never goes back to false.
func MarkBreached(state *domain.SLAState, now time.Time) bool {
	if state.Breached {
		return false
	}
	state.Breached = true
	if state.BreachedAt == nil {
		at := normalize(now)
		state.BreachedAt = &at
	}
	return true
}

func suspendTimer(timer *domain.SLATimer, ref time.Time) bool {
	if timer.DueAt == nil {
		return false
	}
	remaining := int64(timer.DueAt.Sub(ref) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	timer.RemainingSeconds = &remaining
	timer.DueAt = nil
	return true
}

func resumeTimer(timer *domain.SLATimer, ref time.Time) bool {
	if timer.DueAt != nil || timer.RemainingSeconds == nil {
		return false
	}
	due := ref.Add(time.Duration(*timer.RemainingSeconds) * time.Second)
	timer.DueAt = &due
	timer.RemainingSeconds = nil
	return true
}

func timerOverdue(timer domain.SLATimer, now time.Time) bool {
	return timer.DueAt != nil && timer.DueAt.Before(now)
}
