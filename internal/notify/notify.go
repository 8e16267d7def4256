// Package notify is the fire-and-forget notification collaborator. Delivery
// is never part of a write's correctness contract; failures are logged and
// dropped.
package notify

import "log"

// EventKind identifies what happened to the notified user.
type EventKind string

const (
	KindRegistrationConfirmed  EventKind = "registration_confirmed"
	KindRegistrationWaitlisted EventKind = "registration_waitlisted"
	KindRegistrationCancelled  EventKind = "registration_cancelled"
	KindWaitlistPromoted       EventKind = "waitlist_promoted"
)

// Notifier delivers a notification to a user. Implementations must not
// block: they are called on the request path after the write has committed.
type Notifier interface {
	Notify(userID string, kind EventKind)
}

// LogNotifier writes notifications to the process log. It stands in for a
// real delivery channel (email, push) in development.
type LogNotifier struct{}

// Notify logs the notification.
func (LogNotifier) Notify(userID string, kind EventKind) {
	log.Printf("notify user=%s kind=%s", userID, kind)
}
