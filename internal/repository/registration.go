package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gatherly/eventreg/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const registrationColumns = `id, event_id, user_id, status, registration_type,
	payment_required, payment_status, amount_due, currency,
	registered_at, confirmed_at, cancelled_at`

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

// WithTx runs fn inside a transaction shared via the context.
func (r *RegistrationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.Type,
		&reg.PaymentRequired, &reg.PaymentStatus, &reg.AmountDue, &reg.Currency,
		&reg.RegisteredAt, &reg.ConfirmedAt, &reg.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRegistrationNotFound
		}
		return nil, storeErr("scan registration", err)
	}
	return &reg, nil
}

// Create inserts a registration. A unique-index violation on the active
// (event, user) pair comes back as *model.DuplicateError so the caller can
// report what blocked it even when the race was lost after its own check.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	_, err := db(ctx, r.pool).Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		reg.ID, reg.EventID, reg.UserID, reg.Status, reg.Type,
		reg.PaymentRequired, reg.PaymentStatus, reg.AmountDue, reg.Currency,
		reg.RegisteredAt, reg.ConfirmedAt, reg.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if existing, findErr := r.FindActive(ctx, reg.EventID, reg.UserID); findErr == nil && existing != nil {
				return &model.DuplicateError{Status: existing.Status}
			}
			return &model.DuplicateError{Status: reg.Status}
		}
		return storeErr("insert registration", err)
	}
	return nil
}

// GetByID returns a registration or model.ErrRegistrationNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	return scanRegistration(db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
}

// FindActive returns the user's live registration for an event, or nil when
// none exists. Live means PENDING, CONFIRMED or WAITLIST.
func (r *RegistrationRepository) FindActive(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	reg, err := scanRegistration(db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1 AND user_id = $2 AND status IN ('PENDING', 'CONFIRMED', 'WAITLIST')`,
		eventID, userID))
	if errors.Is(err, model.ErrRegistrationNotFound) {
		return nil, nil
	}
	return reg, err
}

// CountConsuming returns the number of capacity-consuming registrations for
// an event: every non-cancelled, non-waitlisted row. Admission and promotion
// call this under the event row lock; it must never be served from a cache.
func (r *RegistrationRepository) CountConsuming(ctx context.Context, eventID string) (int, error) {
	var count int
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = $1 AND status IN ('PENDING', 'CONFIRMED', 'ATTENDED', 'NO_SHOW')`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, storeErr("count registrations", err)
	}
	return count, nil
}

// HasActive reports whether any live registration exists for an event.
func (r *RegistrationRepository) HasActive(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM registrations
			WHERE event_id = $1 AND status IN ('PENDING', 'CONFIRMED', 'WAITLIST')
		)`, eventID,
	).Scan(&exists)
	if err != nil {
		return false, storeErr("check active registrations", err)
	}
	return exists, nil
}

// OldestWaitlisted returns the next registration in line for an event, or nil
// when the waitlist is empty. Strict FIFO: registered_at ascending, id as the
// tiebreaker.
func (r *RegistrationRepository) OldestWaitlisted(ctx context.Context, eventID string) (*model.Registration, error) {
	reg, err := scanRegistration(db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1 AND status = 'WAITLIST'
		 ORDER BY registered_at ASC, id ASC
		 LIMIT 1`, eventID))
	if errors.Is(err, model.ErrRegistrationNotFound) {
		return nil, nil
	}
	return reg, err
}

// UpdateStatus transitions a registration with a compare-and-set on the
// current status. confirmedAt/cancelledAt are stamped when the target status
// calls for them.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, from, to model.RegistrationStatus, now time.Time) error {
	var confirmedAt, cancelledAt *time.Time
	switch to {
	case model.RegistrationConfirmed:
		confirmedAt = &now
	case model.RegistrationCancelled:
		cancelledAt = &now
	}

	tag, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE registrations
		 SET status = $3,
		     confirmed_at = COALESCE($4, confirmed_at),
		     cancelled_at = COALESCE($5, cancelled_at)
		 WHERE id = $1 AND status = $2`,
		id, from, to, confirmedAt, cancelledAt,
	)
	if err != nil {
		return storeErr("update registration status", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

// UpdatePaymentStatus records the payment collaborator's outcome.
func (r *RegistrationRepository) UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	tag, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE registrations SET payment_status = $2 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return storeErr("update payment status", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrRegistrationNotFound
	}
	return nil
}

// ListByEvent returns all registrations for an event in arrival order.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return r.list(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC, id ASC`, eventID)
}

// ListByUser returns all of a user's registrations, newest first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	return r.list(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE user_id = $1
		 ORDER BY registered_at DESC, id ASC`, userID)
}

// EventIDsWithWaitlist returns ids of published events that have at least one
// waitlisted registration. The reconciliation sweep re-checks capacity for
// each under the event lock, so a stale answer here is safe.
func (r *RegistrationRepository) EventIDsWithWaitlist(ctx context.Context) ([]string, error) {
	rows, err := db(ctx, r.pool).Query(ctx,
		`SELECT DISTINCT r.event_id
		 FROM registrations r
		 JOIN events e ON e.id = r.event_id
		 WHERE r.status = 'WAITLIST' AND e.status = 'PUBLISHED'`)
	if err != nil {
		return nil, storeErr("list waitlisted events", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan waitlisted event id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list waitlisted events", err)
	}
	return ids, nil
}

func (r *RegistrationRepository) list(ctx context.Context, query string, arg any) ([]model.Registration, error) {
	rows, err := db(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, storeErr("list registrations", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list registrations", err)
	}
	return regs, nil
}
