// Package repository implements all database queries for the platform.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gatherly/eventreg/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, description, status, event_type, start_date, end_date,
	registration_deadline, max_participants, is_unlimited, price, member_price,
	currency, organizer_id, created_at, updated_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// WithTx runs fn inside a transaction shared via the context.
func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := db(ctx, r.pool).Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.Title, e.Description, e.Status, e.Type, e.StartDate, e.EndDate,
		e.RegistrationDeadline, e.MaxParticipants, e.IsUnlimited, e.Price, e.MemberPrice,
		e.Currency, e.OrganizerID, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return storeErr("insert event", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Status, &e.Type, &e.StartDate, &e.EndDate,
		&e.RegistrationDeadline, &e.MaxParticipants, &e.IsUnlimited, &e.Price, &e.MemberPrice,
		&e.Currency, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, storeErr("scan event", err)
	}
	return &e, nil
}

// GetByID returns a single event or model.ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return scanEvent(db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// GetByIDForUpdate loads an event under an exclusive row lock. Every
// admission, cancellation and promotion takes this lock first, serialising
// all capacity-affecting work per event.
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return scanEvent(db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
}

// List returns all events ordered by start date ascending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := db(ctx, r.pool).Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY start_date ASC, id ASC`)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list events", err)
	}
	return events, nil
}

// Update rewrites an event's mutable fields.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	tag, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, event_type = $4, start_date = $5, end_date = $6,
		     registration_deadline = $7, max_participants = $8, is_unlimited = $9,
		     price = $10, member_price = $11, currency = $12, updated_at = $13
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Type, e.StartDate, e.EndDate,
		e.RegistrationDeadline, e.MaxParticipants, e.IsUnlimited,
		e.Price, e.MemberPrice, e.Currency, e.UpdatedAt,
	)
	if err != nil {
		return storeErr("update event", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEventNotFound
	}
	return nil
}

// UpdateStatus transitions the stored status with a compare-and-set: the
// update applies only when the event is still in from. Returns
// model.ErrConflict when the precondition no longer holds.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, from, to model.EventStatus, now time.Time) error {
	tag, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE events SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, now,
	)
	if err != nil {
		return storeErr("update event status", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

// Delete removes an event; registrations cascade at the schema level.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEventNotFound
	}
	return nil
}

// CompleteElapsed marks every published event whose end date has passed as
// COMPLETED and returns the affected ids. The WHERE clause makes the sweep
// an idempotent compare-and-set; re-running it is harmless.
func (r *EventRepository) CompleteElapsed(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := db(ctx, r.pool).Query(ctx,
		`UPDATE events SET status = $1, updated_at = $2
		 WHERE status = $3 AND end_date < $2
		 RETURNING id`,
		model.EventCompleted, now, model.EventPublished,
	)
	if err != nil {
		return nil, storeErr("complete elapsed events", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan completed event id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("complete elapsed events", err)
	}
	return ids, nil
}
