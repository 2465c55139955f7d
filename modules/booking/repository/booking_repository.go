package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"meetbook/core/database"
	"meetbook/core/logger"
	"meetbook/core/params"
	"meetbook/modules/booking/entity"
)

// ConfirmParams is everything the confirm transaction needs beyond the hold
// row itself.
type ConfirmParams struct {
	HoldID         uuid.UUID
	HostID         uuid.UUID
	GuestName      string
	GuestTimezone  string
	GuestNotes     *string
	IdempotencyKey uuid.UUID
	RequireNDA     bool
	Now            time.Time
}

type BookingRepositoryInterface interface {
	ConfirmFromHold(ctx context.Context, p ConfirmParams) (*entity.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*entity.Booking, error)
	ListByHost(ctx context.Context, hostID uuid.UUID, from time.Time, p params.QueryParams) ([]entity.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
}

type BookingRepository struct {
	db database.IDatabase
}

func NewBookingRepository(db database.IDatabase) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, meeting_type_id, host_id, slot_start, slot_end, guest_email, guest_name,
	guest_timezone, guest_notes, status, idempotency_key, hold_id, created_at, updated_at
`

// ConfirmFromHold performs the whole hold-to-booking conversion in one
// transaction: the hold row is locked, validated, the booking inserted, the
// hold marked converted exactly once, and any signed document linked.
func (r *BookingRepository) ConfirmFromHold(ctx context.Context, p ConfirmParams) (*entity.Booking, error) {
	var booking entity.Booking
	err := r.db.WithinTransaction(ctx, func(tx *sqlx.Tx) error {
		var hold entity.SlotHold
		err := tx.GetContext(ctx, &hold,
			`SELECT `+holdColumns+` FROM slot_holds WHERE id = $1 FOR UPDATE`, p.HoldID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrHoldNotFound
			}
			return err
		}

		switch hold.Status {
		case entity.HoldStatusActive:
			// fall through to the deadline check
		case entity.HoldStatusExpired:
			return ErrHoldExpired
		default:
			return ErrHoldNotActive
		}
		if !hold.ExpiresAt.After(p.Now) {
			// Beat the sweeper to it so the terminal state lands either way.
			if _, err := tx.ExecContext(ctx,
				`UPDATE slot_holds SET status = 'expired', updated_at = now() WHERE id = $1`,
				hold.ID); err != nil {
				return err
			}
			return ErrHoldExpired
		}

		if p.RequireNDA {
			var docStatus string
			err := tx.GetContext(ctx, &docStatus,
				`SELECT status FROM documents WHERE hold_id = $1`, hold.ID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if docStatus != "signed" {
				return ErrNdaNotSigned
			}
		}

		err = tx.GetContext(ctx, &booking, `
			INSERT INTO bookings
				(meeting_type_id, host_id, slot_start, slot_end, guest_email, guest_name,
				 guest_timezone, guest_notes, status, idempotency_key, hold_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'confirmed', $9, $10)
			RETURNING `+bookingColumns,
			hold.MeetingTypeID, p.HostID, hold.SlotStart, hold.SlotEnd, hold.GuestEmail,
			p.GuestName, p.GuestTimezone, p.GuestNotes, p.IdempotencyKey, hold.ID)
		if err != nil {
			if database.IsExclusionViolation(err) {
				return ErrSlotTaken
			}
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE slot_holds SET status = 'converted', updated_at = now() WHERE id = $1`,
			hold.ID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET booking_id = $2, updated_at = now() WHERE hold_id = $1`,
			hold.ID, booking.ID)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrHoldNotFound), errors.Is(err, ErrHoldNotActive),
			errors.Is(err, ErrHoldExpired), errors.Is(err, ErrNdaNotSigned),
			errors.Is(err, ErrSlotTaken):
			return nil, err
		}
		logger.Error("BookingRepository:ConfirmFromHold:Error", "error", err)
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	err := r.db.GetContext(ctx, &booking,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("BookingRepository:GetByID:Error", "error", err)
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	err := r.db.GetContext(ctx, &booking,
		`SELECT `+bookingColumns+` FROM bookings WHERE idempotency_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("BookingRepository:GetByIdempotencyKey:Error", "error", err)
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID uuid.UUID, from time.Time, p params.QueryParams) ([]entity.Booking, error) {
	var out []entity.Booking
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE host_id = $1 AND slot_end >= $2
		ORDER BY slot_start ASC
		LIMIT $3 OFFSET $4`, hostID, from, p.PageSize, p.Offset())
	if err != nil {
		logger.Error("BookingRepository:ListByHost:Error", "error", err)
		return nil, err
	}
	return out, nil
}

// Cancel transitions confirmed -> canceled and returns the updated row, or
// nil when the booking was not confirmed anymore.
func (r *BookingRepository) Cancel(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	err := r.db.GetContext(ctx, &booking, `
		UPDATE bookings
		SET status = 'canceled', updated_at = now()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING `+bookingColumns, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("BookingRepository:Cancel:Error", "error", err)
		return nil, err
	}
	return &booking, nil
}
