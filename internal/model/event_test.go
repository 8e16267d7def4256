package model

import (
	"errors"
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	start := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	beforeStart := start.Add(-time.Hour)
	afterStart := start.Add(time.Hour)

	valid := func() *Event {
		return &Event{
			Title:           "Go Meetup",
			StartDate:       start,
			EndDate:         start.Add(2 * time.Hour),
			MaxParticipants: 5,
		}
	}

	t.Run("valid event passes", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(e *Event)
	}{
		{"missing title", func(e *Event) { e.Title = "" }},
		{"end before start", func(e *Event) { e.EndDate = beforeStart }},
		{"end equals start", func(e *Event) { e.EndDate = e.StartDate }},
		{"deadline after start", func(e *Event) { e.RegistrationDeadline = &afterStart }},
		{"deadline equals start", func(e *Event) { e.RegistrationDeadline = &e.StartDate }},
		{"zero capacity without unlimited", func(e *Event) { e.MaxParticipants = 0 }},
		{"negative price", func(e *Event) { e.Price = -100 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)
			if err := e.Validate(); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Validate() = %v, want ErrInvalidInput", err)
			}
		})
	}

	t.Run("unlimited ignores capacity", func(t *testing.T) {
		e := valid()
		e.MaxParticipants = 0
		e.IsUnlimited = true
		if err := e.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestEventPriceFor(t *testing.T) {
	member := int64(1500)
	paid := &Event{Type: EventPaid, Price: 2500, MemberPrice: &member}

	if got := paid.PriceFor(false); got != 2500 {
		t.Errorf("non-member price = %d, want 2500", got)
	}
	if got := paid.PriceFor(true); got != 1500 {
		t.Errorf("member price = %d, want 1500", got)
	}

	noMemberPrice := &Event{Type: EventPaid, Price: 2500}
	if got := noMemberPrice.PriceFor(true); got != 2500 {
		t.Errorf("member without member price = %d, want 2500", got)
	}

	free := &Event{Type: EventFree, Price: 2500, MemberPrice: &member}
	if got := free.PriceFor(true); got != 0 {
		t.Errorf("free event price = %d, want 0", got)
	}
}

func TestEventIsFull(t *testing.T) {
	e := &Event{MaxParticipants: 2}
	if e.IsFull(1) {
		t.Error("IsFull(1) with capacity 2 = true, want false")
	}
	if !e.IsFull(2) {
		t.Error("IsFull(2) with capacity 2 = false, want true")
	}
	e.IsUnlimited = true
	if e.IsFull(1_000_000) {
		t.Error("unlimited event reported full")
	}
}
