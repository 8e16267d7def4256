// Package cache provides the display-read cache and its invalidation
// contract. Cached values serve listings only; the capacity gate inside
// admission and promotion always reads the store directly.
package cache

import "fmt"

// Cache is the invalidation contract every write path must honor: any write
// affecting an event's or user's visible state invalidates the matching keys
// before the write returns success.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Invalidate(keys ...string)
}

// Key builders. Keeping them here means writers and readers cannot drift on
// key shape.

// EventKey caches a single event's display view.
func EventKey(eventID string) string {
	return fmt.Sprintf("event:%s", eventID)
}

// EventRegistrationsKey caches an event's registration listing.
func EventRegistrationsKey(eventID string) string {
	return fmt.Sprintf("event:%s:registrations", eventID)
}

// EventListKey caches the all-events listing.
func EventListKey() string {
	return "events:all"
}

// UserRegistrationsKey caches a user's "my registrations" view.
func UserRegistrationsKey(userID string) string {
	return fmt.Sprintf("user:%s:registrations", userID)
}

// EventKeys returns every event-scoped key for one invalidation call.
func EventKeys(eventID string) []string {
	return []string{EventKey(eventID), EventRegistrationsKey(eventID), EventListKey()}
}
