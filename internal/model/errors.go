package model

import (
	"errors"
	"fmt"
)

// Business-rule violations returned to callers. Handlers map these onto HTTP
// statuses; services never swallow them.
var (
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")

	ErrRegistrationNotOpen = errors.New("event is not open for registration")
	ErrDeadlinePassed      = errors.New("registration deadline has passed")
	ErrEventFull           = errors.New("event is full")

	ErrDuplicate        = errors.New("already registered for this event")
	ErrAlreadyCancelled = errors.New("registration is already cancelled")
	ErrTerminalState    = errors.New("registration is in a terminal state")
	ErrWindowExpired    = errors.New("attendance window has expired")
	ErrNotPublishable   = errors.New("only draft events can be published")

	// ErrConflict surfaces a race lost at commit after internal retries are
	// exhausted; the caller may retry the whole operation.
	ErrConflict = errors.New("conflicting concurrent update, retry")

	// ErrUnavailable wraps infrastructure failures (store unreachable).
	// Retry policy for these belongs to the caller, not this core.
	ErrUnavailable = errors.New("store unavailable")
)

// DuplicateError reports an admission blocked by an existing active
// registration, carrying that registration's status so callers can tell a
// confirmed seat from a pending payment or a waitlist spot.
type DuplicateError struct {
	Status RegistrationStatus
}

func (e *DuplicateError) Error() string {
	switch e.Status {
	case RegistrationConfirmed:
		return "already registered for this event with a confirmed spot"
	case RegistrationPending:
		return "already registered for this event, payment pending"
	case RegistrationWaitlist:
		return "already on the waitlist for this event"
	default:
		return fmt.Sprintf("already registered for this event (status %s)", e.Status)
	}
}

// Unwrap lets errors.Is(err, ErrDuplicate) match.
func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}
