package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gatherly/eventreg/internal/model"
	"github.com/gatherly/eventreg/internal/notify"
)

// fakeStore is an in-memory stand-in for both repositories. WithTx holds the
// store mutex for the whole callback, mirroring how the real implementation
// serialises capacity-affecting transactions on the event row lock.
type fakeStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
	regs   map[string]*model.Registration
}

func newFakeStore(events ...*model.Event) *fakeStore {
	s := &fakeStore{
		events: make(map[string]*model.Event),
		regs:   make(map[string]*model.Registration),
	}
	for _, e := range events {
		cp := *e
		s.events[e.ID] = &cp
	}
	return s
}

type fakeTxKey struct{}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, fakeTxKey{}, true))
}

// locked runs fn under the mutex unless a transaction already holds it.
func (s *fakeStore) locked(ctx context.Context, fn func()) {
	if ctx.Value(fakeTxKey{}) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn()
}

func (s *fakeStore) Create(ctx context.Context, reg *model.Registration) error {
	var err error
	s.locked(ctx, func() {
		for _, existing := range s.regs {
			if existing.EventID == reg.EventID && existing.UserID == reg.UserID && existing.Status.Active() {
				err = &model.DuplicateError{Status: existing.Status}
				return
			}
		}
		cp := *reg
		s.regs[reg.ID] = &cp
	})
	return err
}

func (s *fakeStore) CreateEvent(ctx context.Context, e *model.Event) error {
	s.locked(ctx, func() {
		cp := *e
		s.events[e.ID] = &cp
	})
	return nil
}

func (s *fakeStore) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	var (
		out *model.Event
		err error
	)
	s.locked(ctx, func() {
		e, ok := s.events[id]
		if !ok {
			err = model.ErrEventNotFound
			return
		}
		cp := *e
		out = &cp
	})
	return out, err
}

func (s *fakeStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	s.locked(ctx, func() {
		for _, e := range s.events {
			out = append(out, *e)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	})
	return out, nil
}

func (s *fakeStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	var err error
	s.locked(ctx, func() {
		if _, ok := s.events[e.ID]; !ok {
			err = model.ErrEventNotFound
			return
		}
		cp := *e
		s.events[e.ID] = &cp
	})
	return err
}

func (s *fakeStore) UpdateEventStatus(ctx context.Context, id string, from, to model.EventStatus, now time.Time) error {
	var err error
	s.locked(ctx, func() {
		e, ok := s.events[id]
		if !ok || e.Status != from {
			err = model.ErrConflict
			return
		}
		e.Status = to
		e.UpdatedAt = now
	})
	return err
}

func (s *fakeStore) DeleteEvent(ctx context.Context, id string) error {
	var err error
	s.locked(ctx, func() {
		if _, ok := s.events[id]; !ok {
			err = model.ErrEventNotFound
			return
		}
		delete(s.events, id)
		for regID, reg := range s.regs {
			if reg.EventID == id {
				delete(s.regs, regID)
			}
		}
	})
	return err
}

func (s *fakeStore) CompleteElapsed(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	s.locked(ctx, func() {
		for _, e := range s.events {
			if e.Status == model.EventPublished && e.EndDate.Before(now) {
				e.Status = model.EventCompleted
				e.UpdatedAt = now
				ids = append(ids, e.ID)
			}
		}
	})
	return ids, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	var (
		out *model.Registration
		err error
	)
	s.locked(ctx, func() {
		reg, ok := s.regs[id]
		if !ok {
			err = model.ErrRegistrationNotFound
			return
		}
		cp := *reg
		out = &cp
	})
	return out, err
}

func (s *fakeStore) FindActive(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	var out *model.Registration
	s.locked(ctx, func() {
		for _, reg := range s.regs {
			if reg.EventID == eventID && reg.UserID == userID && reg.Status.Active() {
				cp := *reg
				out = &cp
				return
			}
		}
	})
	return out, nil
}

func (s *fakeStore) CountConsuming(ctx context.Context, eventID string) (int, error) {
	count := 0
	s.locked(ctx, func() {
		for _, reg := range s.regs {
			if reg.EventID == eventID && reg.Status.ConsumesSlot() {
				count++
			}
		}
	})
	return count, nil
}

func (s *fakeStore) HasActive(ctx context.Context, eventID string) (bool, error) {
	found := false
	s.locked(ctx, func() {
		for _, reg := range s.regs {
			if reg.EventID == eventID && reg.Status.Active() {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (s *fakeStore) OldestWaitlisted(ctx context.Context, eventID string) (*model.Registration, error) {
	var out *model.Registration
	s.locked(ctx, func() {
		for _, reg := range s.regs {
			if reg.EventID != eventID || reg.Status != model.RegistrationWaitlist {
				continue
			}
			if out == nil ||
				reg.RegisteredAt.Before(out.RegisteredAt) ||
				(reg.RegisteredAt.Equal(out.RegisteredAt) && reg.ID < out.ID) {
				cp := *reg
				out = &cp
			}
		}
	})
	return out, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, from, to model.RegistrationStatus, now time.Time) error {
	var err error
	s.locked(ctx, func() {
		reg, ok := s.regs[id]
		if !ok || reg.Status != from {
			err = model.ErrConflict
			return
		}
		reg.Status = to
		switch to {
		case model.RegistrationConfirmed:
			t := now
			reg.ConfirmedAt = &t
		case model.RegistrationCancelled:
			t := now
			reg.CancelledAt = &t
		}
	})
	return err
}

func (s *fakeStore) UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	var err error
	s.locked(ctx, func() {
		reg, ok := s.regs[id]
		if !ok {
			err = model.ErrRegistrationNotFound
			return
		}
		reg.PaymentStatus = status
	})
	return err
}

func (s *fakeStore) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	var out []model.Registration
	s.locked(ctx, func() {
		for _, reg := range s.regs {
			if reg.EventID == eventID {
				out = append(out, *reg)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	})
	return out, nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	var out []model.Registration
	s.locked(ctx, func() {
		for _, reg := range s.regs {
			if reg.UserID == userID {
				out = append(out, *reg)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	})
	return out, nil
}

func (s *fakeStore) EventIDsWithWaitlist(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	s.locked(ctx, func() {
		for _, reg := range s.regs {
			if reg.Status != model.RegistrationWaitlist || seen[reg.EventID] {
				continue
			}
			if e, ok := s.events[reg.EventID]; ok && e.Status == model.EventPublished {
				seen[reg.EventID] = true
				ids = append(ids, reg.EventID)
			}
		}
	})
	return ids, nil
}

// statusOf reads a registration's current status directly.
func (s *fakeStore) statusOf(id string) model.RegistrationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.regs[id]; ok {
		return reg.Status
	}
	return ""
}

// fakeEventStore exposes the event-side method names the services expect.
type fakeEventStore struct {
	*fakeStore
}

func (f fakeEventStore) Create(ctx context.Context, e *model.Event) error {
	return f.CreateEvent(ctx, e)
}

func (f fakeEventStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return f.GetEventByID(ctx, id)
}

func (f fakeEventStore) GetByIDForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return f.GetEventByID(ctx, id)
}

func (f fakeEventStore) List(ctx context.Context) ([]model.Event, error) {
	return f.ListEvents(ctx)
}

func (f fakeEventStore) Update(ctx context.Context, e *model.Event) error {
	return f.UpdateEvent(ctx, e)
}

func (f fakeEventStore) UpdateStatus(ctx context.Context, id string, from, to model.EventStatus, now time.Time) error {
	return f.UpdateEventStatus(ctx, id, from, to, now)
}

func (f fakeEventStore) Delete(ctx context.Context, id string) error {
	return f.DeleteEvent(ctx, id)
}

// fakeCache records sets and invalidations.
type fakeCache struct {
	mu          sync.Mutex
	data        map[string]any
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]any)}
}

func (c *fakeCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *fakeCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *fakeCache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.data, key)
		c.invalidated = append(c.invalidated, key)
	}
}

func (c *fakeCache) wasInvalidated(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.invalidated {
		if k == key {
			return true
		}
	}
	return false
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []struct {
		UserID string
		Kind   notify.EventKind
	}
}

func (n *fakeNotifier) Notify(userID string, kind notify.EventKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, struct {
		UserID string
		Kind   notify.EventKind
	}{userID, kind})
}
