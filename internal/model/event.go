// Package model defines the core domain types for the event registration
// platform: events, registrations, their status machines, and the pure rules
// (effective status, pricing, attendance windows) the services enforce.
package model

import (
	"fmt"
	"time"
)

// EventStatus is the persisted, organizer/admin-controlled event state.
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCancelled EventStatus = "CANCELLED"
	EventCompleted EventStatus = "COMPLETED"
)

// EventType distinguishes free events from paid ones.
type EventType string

const (
	EventFree EventType = "FREE"
	EventPaid EventType = "PAID"
)

// EffectiveStatus is the event state as seen at read time: the stored status
// combined with the calendar and live registration counts.
type EffectiveStatus string

const (
	StatusDraft              EffectiveStatus = "DRAFT"
	StatusCancelled          EffectiveStatus = "CANCELLED"
	StatusCompleted          EffectiveStatus = "COMPLETED"
	StatusOngoing            EffectiveStatus = "ONGOING"
	StatusRegistrationClosed EffectiveStatus = "REGISTRATION_CLOSED"
	StatusRegistrationOpen   EffectiveStatus = "REGISTRATION_OPEN"
)

// Event represents an event created by an organizer.
type Event struct {
	ID                   string      `json:"id"`
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	Status               EventStatus `json:"status"`
	Type                 EventType   `json:"type"`
	StartDate            time.Time   `json:"start_date"`
	EndDate              time.Time   `json:"end_date"`
	RegistrationDeadline *time.Time  `json:"registration_deadline,omitempty"`
	MaxParticipants      int         `json:"max_participants"`
	IsUnlimited          bool        `json:"is_unlimited"`
	Price                int64       `json:"price"`
	MemberPrice          *int64      `json:"member_price,omitempty"`
	Currency             string      `json:"currency"`
	OrganizerID          string      `json:"organizer_id"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// EffectiveDeadline returns the registration deadline, falling back to the
// event start when none was set.
func (e *Event) EffectiveDeadline() time.Time {
	if e.RegistrationDeadline != nil {
		return *e.RegistrationDeadline
	}
	return e.StartDate
}

// Validate checks the date and capacity invariants. It is applied on both
// create and update so a stored event can never violate them.
func (e *Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !e.EndDate.After(e.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
	}
	if e.RegistrationDeadline != nil && !e.RegistrationDeadline.Before(e.StartDate) {
		return fmt.Errorf("%w: registration deadline must be before start date", ErrInvalidInput)
	}
	if !e.IsUnlimited && e.MaxParticipants <= 0 {
		return fmt.Errorf("%w: max participants must be a positive integer", ErrInvalidInput)
	}
	if e.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	if e.MemberPrice != nil && *e.MemberPrice < 0 {
		return fmt.Errorf("%w: member price cannot be negative", ErrInvalidInput)
	}
	return nil
}

// IsFull reports whether activeCount capacity-consuming registrations exhaust
// the event's capacity.
func (e *Event) IsFull(activeCount int) bool {
	return !e.IsUnlimited && activeCount >= e.MaxParticipants
}

// PriceFor returns the amount a registrant owes. Verified members get the
// member price when one is set; free events always cost zero.
func (e *Event) PriceFor(memberVerified bool) int64 {
	if e.Type == EventFree {
		return 0
	}
	if memberVerified && e.MemberPrice != nil {
		return *e.MemberPrice
	}
	return e.Price
}
