package model

import "time"

// ResolveEffectiveStatus computes an event's effective status from its stored
// status, the current time, and a live count of capacity-consuming
// registrations. It is a pure function: same inputs, same output.
//
// The count must be fresh. Feeding a cached count into this function on an
// admission path reintroduces the overselling race the repository's row lock
// exists to prevent.
func ResolveEffectiveStatus(e *Event, activeCount int, now time.Time) EffectiveStatus {
	if e.Status != EventPublished {
		// DRAFT, CANCELLED and COMPLETED are authoritative as stored.
		return EffectiveStatus(e.Status)
	}

	switch {
	case now.After(e.EndDate):
		return StatusCompleted
	case now.After(e.StartDate):
		return StatusOngoing
	case e.IsFull(activeCount) || now.After(e.EffectiveDeadline()):
		return StatusRegistrationClosed
	default:
		return StatusRegistrationOpen
	}
}
