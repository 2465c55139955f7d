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
	"meetbook/modules/booking/entity"
)

// Sentinel errors the services translate into API errors.
var (
	ErrSlotTaken     = errors.New("slot already taken")
	ErrHoldNotFound  = errors.New("hold not found")
	ErrHoldNotActive = errors.New("hold is not active")
	ErrHoldExpired   = errors.New("hold has expired")
	ErrNdaNotSigned  = errors.New("nda not signed")
	ErrDuplicateKey  = errors.New("idempotency key already used")
)

type HoldRepositoryInterface interface {
	CreateExclusive(ctx context.Context, hold *entity.SlotHold) (*entity.SlotHold, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.SlotHold, error)
	GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*entity.SlotHold, error)
	Release(ctx context.Context, id uuid.UUID) (*entity.SlotHold, error)
	ExpireDue(ctx context.Context, now time.Time) ([]entity.SlotHold, error)
}

type HoldRepository struct {
	db database.IDatabase
}

func NewHoldRepository(db database.IDatabase) *HoldRepository {
	return &HoldRepository{db: db}
}

const holdColumns = `
	id, meeting_type_id, slot_start, slot_end, guest_email, guest_name,
	status, expires_at, idempotency_key, created_at, updated_at
`

// CreateExclusive inserts an active hold under a per-slot advisory lock.
// Attempts at the exact same slot are linearized by the lock; overlapping
// but non-identical slots are rejected by the exclusion constraint. A
// confirmed booking on the window also rejects the hold.
func (r *HoldRepository) CreateExclusive(ctx context.Context, hold *entity.SlotHold) (*entity.SlotHold, error) {
	var created entity.SlotHold
	err := r.db.WithinTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := database.AcquireSlotLock(ctx, tx, hold.MeetingTypeID, hold.SlotStart); err != nil {
			return err
		}

		var booked bool
		err := tx.GetContext(ctx, &booked, `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE meeting_type_id = $1 AND status = 'confirmed'
				  AND slot_start < $3 AND slot_end > $2
			)`, hold.MeetingTypeID, hold.SlotStart, hold.SlotEnd)
		if err != nil {
			return err
		}
		if booked {
			return ErrSlotTaken
		}

		return tx.GetContext(ctx, &created, `
			INSERT INTO slot_holds
				(meeting_type_id, slot_start, slot_end, guest_email, guest_name,
				 status, expires_at, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, 'active', $6, $7)
			RETURNING `+holdColumns,
			hold.MeetingTypeID, hold.SlotStart, hold.SlotEnd, hold.GuestEmail,
			hold.GuestName, hold.ExpiresAt, hold.IdempotencyKey)
	})
	if err != nil {
		if database.IsExclusionViolation(err) {
			return nil, ErrSlotTaken
		}
		// A concurrent create with the same idempotency key won the insert;
		// the caller replays that hold.
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		logger.Error("HoldRepository:CreateExclusive:Error", "error", err)
		return nil, err
	}
	return &created, nil
}

func (r *HoldRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.SlotHold, error) {
	var hold entity.SlotHold
	err := r.db.GetContext(ctx, &hold,
		`SELECT `+holdColumns+` FROM slot_holds WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("HoldRepository:GetByID:Error", "error", err)
		return nil, err
	}
	return &hold, nil
}

func (r *HoldRepository) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*entity.SlotHold, error) {
	var hold entity.SlotHold
	err := r.db.GetContext(ctx, &hold,
		`SELECT `+holdColumns+` FROM slot_holds WHERE idempotency_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("HoldRepository:GetByIdempotencyKey:Error", "error", err)
		return nil, err
	}
	return &hold, nil
}

// Release transitions active -> released and returns the updated row.
// Losing the compare-and-set race reports why through the sentinel errors.
func (r *HoldRepository) Release(ctx context.Context, id uuid.UUID) (*entity.SlotHold, error) {
	var hold entity.SlotHold
	err := r.db.GetContext(ctx, &hold, `
		UPDATE slot_holds
		SET status = 'released', updated_at = now()
		WHERE id = $1 AND status = 'active'
		RETURNING `+holdColumns, id)
	if err == nil {
		return &hold, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.Error("HoldRepository:Release:Error", "error", err)
		return nil, err
	}

	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if existing == nil {
		return nil, ErrHoldNotFound
	}
	return nil, ErrHoldNotActive
}

// ExpireDue transitions every active hold past its deadline to expired and
// returns only the rows this call actually transitioned, so concurrent
// sweepers never double-report.
func (r *HoldRepository) ExpireDue(ctx context.Context, now time.Time) ([]entity.SlotHold, error) {
	var expired []entity.SlotHold
	err := r.db.SelectContext(ctx, &expired, `
		UPDATE slot_holds
		SET status = 'expired', updated_at = now()
		WHERE status = 'active' AND expires_at < $1
		RETURNING `+holdColumns, now)
	if err != nil {
		logger.Error("HoldRepository:ExpireDue:Error", "error", err)
		return nil, err
	}
	return expired, nil
}
