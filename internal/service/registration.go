package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gatherly/eventreg/internal/cache"
	"github.com/gatherly/eventreg/internal/clock"
	"github.com/gatherly/eventreg/internal/model"
	"github.com/gatherly/eventreg/internal/notify"
	"github.com/google/uuid"
)

// RegistrationStore is the persistence surface RegistrationService needs.
// Implementations must route every call through the context transaction when
// one is in flight, so the admission critical section stays atomic.
type RegistrationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, reg *model.Registration) error
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	FindActive(ctx context.Context, eventID, userID string) (*model.Registration, error)
	CountConsuming(ctx context.Context, eventID string) (int, error)
	OldestWaitlisted(ctx context.Context, eventID string) (*model.Registration, error)
	UpdateStatus(ctx context.Context, id string, from, to model.RegistrationStatus, now time.Time) error
	UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]model.Registration, error)
	EventIDsWithWaitlist(ctx context.Context) ([]string, error)
}

// RegistrationEventStore is the slice of event persistence the registration
// side needs. GetByIDForUpdate is the per-event serialisation point: every
// capacity-affecting operation locks the event row before reading counts.
type RegistrationEventStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Event, error)
}

// conflictRetries bounds internal retries after losing a commit race.
const conflictRetries = 3

// RegistrationService implements admission, cancellation with waitlist
// promotion, attendance marking, and payment outcome recording.
type RegistrationService struct {
	registrations RegistrationStore
	events        RegistrationEventStore
	cache         cache.Cache
	notifier      notify.Notifier
	clock         clock.Clock
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	registrations RegistrationStore,
	events RegistrationEventStore,
	c cache.Cache,
	notifier notify.Notifier,
	clk clock.Clock,
) *RegistrationService {
	return &RegistrationService{
		registrations: registrations,
		events:        events,
		cache:         c,
		notifier:      notifier,
		clock:         clk,
	}
}

// withRetry re-runs fn after a lost commit race, a bounded number of times.
func withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, model.ErrConflict) {
			return err
		}
	}
	return err
}

// AdmitInput carries an admission attempt.
type AdmitInput struct {
	EventID       string
	Actor         model.Actor
	WantsWaitlist bool
}

// Admit attempts to register the actor for an event, deciding CONFIRMED,
// WAITLIST, or a typed rejection.
//
// The capacity check and the insert run inside one transaction that holds an
// exclusive lock on the event row, so two concurrent admissions can never
// both observe a free slot. A unique index on the live (event, user) pair
// backstops duplicate admissions that race past the in-transaction check.
func (s *RegistrationService) Admit(ctx context.Context, in AdmitInput) (*model.Registration, error) {
	if in.EventID == "" || in.Actor.UserID == "" {
		return nil, fmt.Errorf("%w: event id and user id are required", model.ErrInvalidInput)
	}

	var reg *model.Registration
	err := withRetry(func() error {
		return s.registrations.WithTx(ctx, func(txCtx context.Context) error {
			existing, err := s.registrations.FindActive(txCtx, in.EventID, in.Actor.UserID)
			if err != nil {
				return err
			}
			if existing != nil {
				return &model.DuplicateError{Status: existing.Status}
			}

			event, err := s.events.GetByIDForUpdate(txCtx, in.EventID)
			if err != nil {
				return err
			}
			if event.Status != model.EventPublished {
				return model.ErrRegistrationNotOpen
			}

			now := s.clock.Now()
			if now.After(event.EffectiveDeadline()) {
				return model.ErrDeadlinePassed
			}

			count, err := s.registrations.CountConsuming(txCtx, in.EventID)
			if err != nil {
				return err
			}
			full := event.IsFull(count)
			if full && !in.WantsWaitlist {
				return model.ErrEventFull
			}

			status := model.RegistrationConfirmed
			if full {
				status = model.RegistrationWaitlist
			}

			amountDue := event.PriceFor(in.Actor.MembershipVerified)
			paymentRequired := amountDue > 0
			paymentStatus := model.PaymentCompleted
			if paymentRequired {
				paymentStatus = model.PaymentPending
			}

			regType := model.TypeRegular
			if in.Actor.UserID == event.OrganizerID {
				regType = model.TypeOrganizer
			}

			reg = &model.Registration{
				ID:              uuid.New().String(),
				EventID:         in.EventID,
				UserID:          in.Actor.UserID,
				Status:          status,
				Type:            regType,
				PaymentRequired: paymentRequired,
				PaymentStatus:   paymentStatus,
				AmountDue:       amountDue,
				Currency:        event.Currency,
				RegisteredAt:    now,
			}
			if status == model.RegistrationConfirmed {
				reg.ConfirmedAt = &now
			}
			return s.registrations.Create(txCtx, reg)
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(in.EventID, in.Actor.UserID)
	kind := notify.KindRegistrationConfirmed
	if reg.Status == model.RegistrationWaitlist {
		kind = notify.KindRegistrationWaitlisted
	}
	s.notifier.Notify(in.Actor.UserID, kind)
	return reg, nil
}

// Cancel cancels a registration and then promotes the oldest waitlisted
// registration for the event, if a slot was freed.
//
// Cancellation is the primary, durable effect and commits on its own.
// Promotion runs as a separate transaction that re-locks the event row and
// re-checks capacity, so a promotion failure never rolls the cancellation
// back and two concurrent cancellations cannot promote the same row.
func (s *RegistrationService) Cancel(ctx context.Context, registrationID string, actor model.Actor) (*model.Registration, error) {
	var (
		cancelled *model.Registration
		freedSlot bool
	)
	err := withRetry(func() error {
		return s.registrations.WithTx(ctx, func(txCtx context.Context) error {
			reg, err := s.registrations.GetByID(txCtx, registrationID)
			if err != nil {
				return err
			}
			// Event lock first: cancellations serialise with admissions and
			// promotions for the same event.
			event, err := s.events.GetByIDForUpdate(txCtx, reg.EventID)
			if err != nil {
				return err
			}
			if !actor.IsAdmin() && actor.UserID != event.OrganizerID && actor.UserID != reg.UserID {
				return model.ErrForbidden
			}
			switch reg.Status {
			case model.RegistrationCancelled:
				return model.ErrAlreadyCancelled
			case model.RegistrationAttended, model.RegistrationNoShow:
				return model.ErrTerminalState
			}

			now := s.clock.Now()
			if err := s.registrations.UpdateStatus(txCtx, reg.ID, reg.Status, model.RegistrationCancelled, now); err != nil {
				return err
			}
			freedSlot = reg.Status.ConsumesSlot()
			reg.Status = model.RegistrationCancelled
			reg.CancelledAt = &now
			cancelled = reg
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(cancelled.EventID, cancelled.UserID)
	s.notifier.Notify(cancelled.UserID, notify.KindRegistrationCancelled)

	if freedSlot {
		if _, err := s.PromoteOldestWaitlisted(ctx, cancelled.EventID); err != nil {
			// Best effort: the reconciliation sweep retries this.
			log.Printf("waitlist promotion after cancel failed for event %s: %v", cancelled.EventID, err)
		}
	}
	return cancelled, nil
}

// PromoteOldestWaitlisted moves the event's oldest waitlisted registration to
// CONFIRMED when a slot is free. It locks the event row and recounts before
// promoting, making it safe to call at any time and from the sweep.
func (s *RegistrationService) PromoteOldestWaitlisted(ctx context.Context, eventID string) (*model.Registration, error) {
	var promoted *model.Registration
	err := withRetry(func() error {
		promoted = nil
		return s.registrations.WithTx(ctx, func(txCtx context.Context) error {
			event, err := s.events.GetByIDForUpdate(txCtx, eventID)
			if err != nil {
				return err
			}
			if event.Status != model.EventPublished {
				return nil
			}

			count, err := s.registrations.CountConsuming(txCtx, eventID)
			if err != nil {
				return err
			}
			if event.IsFull(count) {
				return nil
			}

			next, err := s.registrations.OldestWaitlisted(txCtx, eventID)
			if err != nil {
				return err
			}
			if next == nil {
				return nil
			}

			now := s.clock.Now()
			if err := s.registrations.UpdateStatus(txCtx, next.ID, model.RegistrationWaitlist, model.RegistrationConfirmed, now); err != nil {
				return err
			}
			next.Status = model.RegistrationConfirmed
			next.ConfirmedAt = &now
			promoted = next
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if promoted != nil {
		s.invalidate(eventID, promoted.UserID)
		s.notifier.Notify(promoted.UserID, notify.KindWaitlistPromoted)
	}
	return promoted, nil
}

// MarkAttendance records whether a confirmed registrant attended. Organizers
// of the event must act before it ends; admins get a grace window after.
func (s *RegistrationService) MarkAttendance(ctx context.Context, registrationID string, attended bool, actor model.Actor) (*model.Registration, error) {
	var updated *model.Registration
	err := withRetry(func() error {
		return s.registrations.WithTx(ctx, func(txCtx context.Context) error {
			reg, err := s.registrations.GetByID(txCtx, registrationID)
			if err != nil {
				return err
			}
			event, err := s.events.GetByID(txCtx, reg.EventID)
			if err != nil {
				return err
			}
			if !actor.IsAdmin() && actor.UserID != event.OrganizerID {
				return model.ErrForbidden
			}
			switch reg.Status {
			case model.RegistrationAttended, model.RegistrationNoShow:
				return model.ErrTerminalState
			case model.RegistrationConfirmed:
			default:
				return fmt.Errorf("%w: only confirmed registrations can be marked, got %s", model.ErrInvalidInput, reg.Status)
			}

			now := s.clock.Now()
			if !model.AttendanceWindowOpen(event.EndDate, now, actor.IsAdmin()) {
				return model.ErrWindowExpired
			}

			target := model.RegistrationNoShow
			if attended {
				target = model.RegistrationAttended
			}
			if err := s.registrations.UpdateStatus(txCtx, reg.ID, model.RegistrationConfirmed, target, now); err != nil {
				return err
			}
			reg.Status = target
			updated = reg
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(updated.EventID, updated.UserID)
	return updated, nil
}

// RecordPaymentOutcome stores the payment collaborator's verdict for a
// registration. Slot accounting is unaffected: a PENDING registration keeps
// its slot regardless of payment state.
func (s *RegistrationService) RecordPaymentOutcome(ctx context.Context, registrationID string, status model.PaymentStatus) (*model.Registration, error) {
	switch status {
	case model.PaymentPending, model.PaymentProcessing, model.PaymentCompleted,
		model.PaymentFailed, model.PaymentRefunded, model.PaymentCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown payment status %q", model.ErrInvalidInput, status)
	}

	if err := s.registrations.UpdatePaymentStatus(ctx, registrationID, status); err != nil {
		return nil, err
	}
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	s.invalidate(reg.EventID, reg.UserID)
	return reg, nil
}

// ListByEvent returns an event's registrations after confirming it exists.
// This is a display read, so it may serve from the cache.
func (s *RegistrationService) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	if cached, ok := s.cache.Get(cache.EventRegistrationsKey(eventID)); ok {
		if regs, ok := cached.([]model.Registration); ok {
			return regs, nil
		}
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.EventRegistrationsKey(eventID), regs)
	return regs, nil
}

// ListByUser returns a user's registrations, newest first, cache-backed.
func (s *RegistrationService) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	if cached, ok := s.cache.Get(cache.UserRegistrationsKey(userID)); ok {
		if regs, ok := cached.([]model.Registration); ok {
			return regs, nil
		}
	}
	regs, err := s.registrations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.UserRegistrationsKey(userID), regs)
	return regs, nil
}

// ReconcileWaitlists promotes waitlisted registrations on every event with
// free capacity. It backs up the promotion that runs inline after a
// cancellation, retrying any that failed.
func (s *RegistrationService) ReconcileWaitlists(ctx context.Context) (int, error) {
	ids, err := s.registrations.EventIDsWithWaitlist(ctx)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, eventID := range ids {
		for {
			reg, err := s.PromoteOldestWaitlisted(ctx, eventID)
			if err != nil {
				log.Printf("waitlist reconciliation for event %s: %v", eventID, err)
				break
			}
			if reg == nil {
				break
			}
			promoted++
		}
	}
	if promoted > 0 {
		log.Printf("waitlist reconciliation: promoted %d registrations", promoted)
	}
	return promoted, nil
}

func (s *RegistrationService) invalidate(eventID, userID string) {
	keys := append(cache.EventKeys(eventID), cache.UserRegistrationsKey(userID))
	s.cache.Invalidate(keys...)
}
