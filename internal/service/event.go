// Package service implements the business rules of the platform: the event
// lifecycle, capacity-bounded admission, waitlist promotion, and the sweeps
// that keep stored state aligned with the calendar.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gatherly/eventreg/internal/cache"
	"github.com/gatherly/eventreg/internal/clock"
	"github.com/gatherly/eventreg/internal/model"
	"github.com/google/uuid"
)

// EventStore is the persistence surface EventService needs.
type EventStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	UpdateStatus(ctx context.Context, id string, from, to model.EventStatus, now time.Time) error
	Delete(ctx context.Context, id string) error
	CompleteElapsed(ctx context.Context, now time.Time) ([]string, error)
}

// EventRegistrationReader is the slice of registration persistence the event
// side needs: live counts for status derivation and capacity guards.
type EventRegistrationReader interface {
	CountConsuming(ctx context.Context, eventID string) (int, error)
	HasActive(ctx context.Context, eventID string) (bool, error)
}

// EventService orchestrates event lifecycle operations.
type EventService struct {
	events        EventStore
	registrations EventRegistrationReader
	cache         cache.Cache
	clock         clock.Clock
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, registrations EventRegistrationReader, c cache.Cache, clk clock.Clock) *EventService {
	return &EventService{events: events, registrations: registrations, cache: c, clock: clk}
}

// CreateEventInput carries the organizer-supplied event fields.
type CreateEventInput struct {
	Title                string
	Description          string
	Type                 model.EventType
	StartDate            time.Time
	EndDate              time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      int
	IsUnlimited          bool
	Price                int64
	MemberPrice          *int64
	Currency             string
}

// Create validates the input and stores a new DRAFT event owned by the actor.
func (s *EventService) Create(ctx context.Context, in CreateEventInput, actor model.Actor) (*model.Event, error) {
	now := s.clock.Now()
	e := &model.Event{
		ID:                   uuid.New().String(),
		Title:                strings.TrimSpace(in.Title),
		Description:          in.Description,
		Status:               model.EventDraft,
		Type:                 in.Type,
		StartDate:            in.StartDate,
		EndDate:              in.EndDate,
		RegistrationDeadline: in.RegistrationDeadline,
		MaxParticipants:      in.MaxParticipants,
		IsUnlimited:          in.IsUnlimited,
		Price:                in.Price,
		MemberPrice:          in.MemberPrice,
		Currency:             in.Currency,
		OrganizerID:          actor.UserID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if e.Type == "" {
		e.Type = model.EventFree
	}
	if e.Currency == "" {
		e.Currency = "USD"
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.EventListKey())
	return e, nil
}

// Get returns a single event, serving repeat reads from the display cache.
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	if cached, ok := s.cache.Get(cache.EventKey(id)); ok {
		if e, ok := cached.(*model.Event); ok {
			return e, nil
		}
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.EventKey(id), e)
	return e, nil
}

// List returns all events, cache-backed.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	if cached, ok := s.cache.Get(cache.EventListKey()); ok {
		if events, ok := cached.([]model.Event); ok {
			return events, nil
		}
	}
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.EventListKey(), events)
	return events, nil
}

// UpdateEventInput carries the mutable event fields for an update.
type UpdateEventInput = CreateEventInput

// Update rewrites an event's fields. Only the owning organizer or an admin
// may update, and only while the event is DRAFT or PUBLISHED. The event row
// is locked so capacity can never shrink below the seats already taken.
func (s *EventService) Update(ctx context.Context, id string, in UpdateEventInput, actor model.Actor) (*model.Event, error) {
	var updated *model.Event
	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		e, err := s.events.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !actor.CanManage(e) {
			return model.ErrForbidden
		}
		if e.Status != model.EventDraft && e.Status != model.EventPublished {
			return fmt.Errorf("%w: cannot update a %s event", model.ErrInvalidInput, e.Status)
		}

		e.Title = strings.TrimSpace(in.Title)
		e.Description = in.Description
		if in.Type != "" {
			e.Type = in.Type
		}
		e.StartDate = in.StartDate
		e.EndDate = in.EndDate
		e.RegistrationDeadline = in.RegistrationDeadline
		e.MaxParticipants = in.MaxParticipants
		e.IsUnlimited = in.IsUnlimited
		e.Price = in.Price
		e.MemberPrice = in.MemberPrice
		if in.Currency != "" {
			e.Currency = in.Currency
		}
		e.UpdatedAt = s.clock.Now()

		if err := e.Validate(); err != nil {
			return err
		}
		if !e.IsUnlimited {
			taken, err := s.registrations.CountConsuming(txCtx, id)
			if err != nil {
				return err
			}
			if e.MaxParticipants < taken {
				return fmt.Errorf("%w: max participants cannot drop below the %d seats already taken", model.ErrInvalidInput, taken)
			}
		}

		if err := s.events.Update(txCtx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.EventKeys(id)...)
	return updated, nil
}

// Publish moves a DRAFT event to PUBLISHED. The transition is one-way.
func (s *EventService) Publish(ctx context.Context, id string, actor model.Actor) (*model.Event, error) {
	return s.transition(ctx, id, actor, func(from model.EventStatus) error {
		if from != model.EventDraft {
			return model.ErrNotPublishable
		}
		return nil
	}, model.EventPublished, model.ErrNotPublishable)
}

// Cancel sets the stored status to CANCELLED. Allowed from DRAFT or
// PUBLISHED; the stored value is authoritative from then on.
func (s *EventService) Cancel(ctx context.Context, id string, actor model.Actor) (*model.Event, error) {
	return s.transition(ctx, id, actor, func(from model.EventStatus) error {
		if from != model.EventDraft && from != model.EventPublished {
			return fmt.Errorf("%w: cannot cancel a %s event", model.ErrInvalidInput, from)
		}
		return nil
	}, model.EventCancelled, model.ErrConflict)
}

func (s *EventService) transition(ctx context.Context, id string, actor model.Actor, allowed func(from model.EventStatus) error, to model.EventStatus, conflictErr error) (*model.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(e) {
		return nil, model.ErrForbidden
	}
	if err := allowed(e.Status); err != nil {
		return nil, err
	}
	from := e.Status

	now := s.clock.Now()
	if err := s.events.UpdateStatus(ctx, id, from, to, now); err != nil {
		if errors.Is(err, model.ErrConflict) {
			// Lost a race against a concurrent transition.
			return nil, conflictErr
		}
		return nil, err
	}
	e.Status = to
	e.UpdatedAt = now
	s.cache.Invalidate(cache.EventKeys(id)...)
	return e, nil
}

// Delete removes an event and, via the schema, its registrations. Admins may
// always delete; the owning organizer only while no active registrations
// exist.
func (s *EventService) Delete(ctx context.Context, id string, actor model.Actor) error {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(e) {
		return model.ErrForbidden
	}
	if !actor.IsAdmin() {
		active, err := s.registrations.HasActive(ctx, id)
		if err != nil {
			return err
		}
		if active {
			return fmt.Errorf("%w: event has active registrations", model.ErrForbidden)
		}
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(cache.EventKeys(id)...)
	return nil
}

// EffectiveStatus derives the event's status as of now from a fresh
// registration count. By contract this never reads the cache: a stale count
// here would misreport whether registration is open.
func (s *EventService) EffectiveStatus(ctx context.Context, id string) (model.EffectiveStatus, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	count, err := s.registrations.CountConsuming(ctx, id)
	if err != nil {
		return "", err
	}
	return model.ResolveEffectiveStatus(e, count, s.clock.Now()), nil
}

// CompleteElapsed marks published events whose end date has passed as
// COMPLETED. It runs on a timer and is idempotent, so overlapping or
// repeated runs are harmless.
func (s *EventService) CompleteElapsed(ctx context.Context) (int, error) {
	ids, err := s.events.CompleteElapsed(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.cache.Invalidate(cache.EventKeys(id)...)
	}
	if len(ids) > 0 {
		log.Printf("completion sweep: marked %d events completed", len(ids))
	}
	return len(ids), nil
}
