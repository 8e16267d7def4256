package model

import "time"

// RegistrationStatus is the registration state machine.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "PENDING"
	RegistrationConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationWaitlist  RegistrationStatus = "WAITLIST"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
	RegistrationAttended  RegistrationStatus = "ATTENDED"
	RegistrationNoShow    RegistrationStatus = "NO_SHOW"
)

// ConsumesSlot reports whether a registration in this status occupies one
// unit of event capacity. WAITLIST and CANCELLED never do.
func (s RegistrationStatus) ConsumesSlot() bool {
	switch s {
	case RegistrationPending, RegistrationConfirmed, RegistrationAttended, RegistrationNoShow:
		return true
	}
	return false
}

// Active reports whether this status blocks a new registration for the same
// (user, event) pair.
func (s RegistrationStatus) Active() bool {
	switch s {
	case RegistrationPending, RegistrationConfirmed, RegistrationWaitlist:
		return true
	}
	return false
}

// RegistrationType marks how the registrant relates to the event.
type RegistrationType string

const (
	TypeRegular   RegistrationType = "REGULAR"
	TypeVIP       RegistrationType = "VIP"
	TypeOrganizer RegistrationType = "ORGANIZER"
)

// PaymentStatus tracks the external payment collaborator's view of a
// registration's payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
)

// Registration represents one user's registration for one event.
type Registration struct {
	ID              string             `json:"id"`
	EventID         string             `json:"event_id"`
	UserID          string             `json:"user_id"`
	Status          RegistrationStatus `json:"status"`
	Type            RegistrationType   `json:"registration_type"`
	PaymentRequired bool               `json:"payment_required"`
	PaymentStatus   PaymentStatus      `json:"payment_status"`
	AmountDue       int64              `json:"amount_due"`
	Currency        string             `json:"currency"`
	RegisteredAt    time.Time          `json:"registered_at"`
	ConfirmedAt     *time.Time         `json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
}

// attendanceGrace is how long after an event ends admins may still mark
// attendance. Non-admins must act before the event ends.
const attendanceGrace = 72 * time.Hour

// AttendanceWindowOpen reports whether attendance may be marked for an event
// ending at endDate, at instant now, by an admin or a regular actor.
func AttendanceWindowOpen(endDate, now time.Time, isAdmin bool) bool {
	if isAdmin {
		return now.Before(endDate.Add(attendanceGrace))
	}
	return now.Before(endDate)
}
