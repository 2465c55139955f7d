package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meetbook/core/database"
	"meetbook/core/logger"
	"meetbook/modules/availability/entity"
)

type AvailabilityRepositoryInterface interface {
	CreateRule(ctx context.Context, rule *entity.AvailabilityRule) (*entity.AvailabilityRule, error)
	GetRulesByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.AvailabilityRule, error)
	GetApplicableRules(ctx context.Context, ownerID, meetingTypeID uuid.UUID, windowStart, windowEnd time.Time) ([]entity.AvailabilityRule, error)
	DeleteRule(ctx context.Context, ownerID, id uuid.UUID) (bool, error)

	CreateBlackout(ctx context.Context, b *entity.BlackoutDate) (*entity.BlackoutDate, error)
	GetBlackoutsByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.BlackoutDate, error)
	GetBlackoutsForWindow(ctx context.Context, ownerID uuid.UUID, windowStart, windowEnd time.Time) ([]entity.BlackoutDate, error)
	DeleteBlackout(ctx context.Context, ownerID, id uuid.UUID) (bool, error)

	GetOccupancy(ctx context.Context, meetingTypeID uuid.UUID, from, to time.Time) ([]OccupiedInterval, error)
}

// OccupiedInterval is one active hold or confirmed booking interval.
type OccupiedInterval struct {
	SlotStart time.Time `db:"slot_start"`
	SlotEnd   time.Time `db:"slot_end"`
}

type AvailabilityRepository struct {
	db database.IDatabase
}

func NewAvailabilityRepository(db database.IDatabase) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const ruleColumns = `
	id, owner_id, meeting_type_id, day_of_week, start_time, end_time,
	effective_from, effective_until, active, created_at, updated_at
`

func (r *AvailabilityRepository) CreateRule(ctx context.Context, rule *entity.AvailabilityRule) (*entity.AvailabilityRule, error) {
	query := `
		INSERT INTO availability_rules
			(owner_id, meeting_type_id, day_of_week, start_time, end_time,
			 effective_from, effective_until, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		RETURNING ` + ruleColumns

	var created entity.AvailabilityRule
	err := r.db.GetContext(ctx, &created, query,
		rule.OwnerID, rule.MeetingTypeID, rule.DayOfWeek, rule.StartTime, rule.EndTime,
		rule.EffectiveFrom, rule.EffectiveUntil)
	if err != nil {
		logger.Error("AvailabilityRepository:CreateRule:Error", "error", err)
		return nil, err
	}
	return &created, nil
}

func (r *AvailabilityRepository) GetRulesByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.AvailabilityRule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM availability_rules
		WHERE owner_id = $1 AND active
		ORDER BY day_of_week, start_time`

	var rules []entity.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, ownerID); err != nil {
		logger.Error("AvailabilityRepository:GetRulesByOwner:Error", "error", err)
		return nil, err
	}
	return rules, nil
}

// GetApplicableRules loads active rules for the owner that are either
// unscoped or scoped to the meeting type, and whose effective range
// overlaps the listing window. Rules entirely outside the window are
// discarded here.
func (r *AvailabilityRepository) GetApplicableRules(ctx context.Context, ownerID, meetingTypeID uuid.UUID, windowStart, windowEnd time.Time) ([]entity.AvailabilityRule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM availability_rules
		WHERE owner_id = $1
		  AND active
		  AND (meeting_type_id IS NULL OR meeting_type_id = $2)
		  AND (effective_from IS NULL OR effective_from <= $4)
		  AND (effective_until IS NULL OR effective_until > $3)
		ORDER BY day_of_week, start_time`

	var rules []entity.AvailabilityRule
	err := r.db.SelectContext(ctx, &rules, query, ownerID, meetingTypeID, windowStart, windowEnd)
	if err != nil {
		logger.Error("AvailabilityRepository:GetApplicableRules:Error", "error", err)
		return nil, err
	}
	return rules, nil
}

func (r *AvailabilityRepository) DeleteRule(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	res, err := r.db.NamedExecContext(ctx,
		`DELETE FROM availability_rules WHERE id = :id AND owner_id = :owner_id`,
		map[string]any{"id": id, "owner_id": ownerID})
	if err != nil {
		logger.Error("AvailabilityRepository:DeleteRule:Error", "error", err)
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

const blackoutColumns = `
	id, owner_id, date, start_time, end_time, recurring_yearly, created_at, updated_at
`

func (r *AvailabilityRepository) CreateBlackout(ctx context.Context, b *entity.BlackoutDate) (*entity.BlackoutDate, error) {
	query := `
		INSERT INTO blackout_dates (owner_id, date, start_time, end_time, recurring_yearly)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + blackoutColumns

	var created entity.BlackoutDate
	err := r.db.GetContext(ctx, &created, query,
		b.OwnerID, b.Date, b.StartTime, b.EndTime, b.RecurringYearly)
	if err != nil {
		logger.Error("AvailabilityRepository:CreateBlackout:Error", "error", err)
		return nil, err
	}
	return &created, nil
}

func (r *AvailabilityRepository) GetBlackoutsByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.BlackoutDate, error) {
	query := `SELECT ` + blackoutColumns + `
		FROM blackout_dates WHERE owner_id = $1 ORDER BY date`

	var out []entity.BlackoutDate
	if err := r.db.SelectContext(ctx, &out, query, ownerID); err != nil {
		logger.Error("AvailabilityRepository:GetBlackoutsByOwner:Error", "error", err)
		return nil, err
	}
	return out, nil
}

// GetBlackoutsForWindow loads literal blackouts inside the window plus
// every recurring blackout; recurring month+day matching happens in the
// engine where the civil calendar lives.
func (r *AvailabilityRepository) GetBlackoutsForWindow(ctx context.Context, ownerID uuid.UUID, windowStart, windowEnd time.Time) ([]entity.BlackoutDate, error) {
	query := `SELECT ` + blackoutColumns + `
		FROM blackout_dates
		WHERE owner_id = $1
		  AND (recurring_yearly OR (date >= $2 AND date <= $3))
		ORDER BY date`

	var out []entity.BlackoutDate
	err := r.db.SelectContext(ctx, &out, query, ownerID, windowStart, windowEnd)
	if err != nil {
		logger.Error("AvailabilityRepository:GetBlackoutsForWindow:Error", "error", err)
		return nil, err
	}
	return out, nil
}

func (r *AvailabilityRepository) DeleteBlackout(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	res, err := r.db.NamedExecContext(ctx,
		`DELETE FROM blackout_dates WHERE id = :id AND owner_id = :owner_id`,
		map[string]any{"id": id, "owner_id": ownerID})
	if err != nil {
		logger.Error("AvailabilityRepository:DeleteBlackout:Error", "error", err)
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetOccupancy returns the union of active holds and confirmed bookings
// intersecting [from, to) for the meeting type. Callers expand the window
// by the type's buffers before asking.
func (r *AvailabilityRepository) GetOccupancy(ctx context.Context, meetingTypeID uuid.UUID, from, to time.Time) ([]OccupiedInterval, error) {
	query := `
		SELECT slot_start, slot_end FROM slot_holds
		WHERE meeting_type_id = $1 AND status = 'active'
		  AND slot_start < $3 AND slot_end > $2
		UNION ALL
		SELECT slot_start, slot_end FROM bookings
		WHERE meeting_type_id = $1 AND status = 'confirmed'
		  AND slot_start < $3 AND slot_end > $2
		ORDER BY slot_start
	`
	var out []OccupiedInterval
	err := r.db.SelectContext(ctx, &out, query, meetingTypeID, from, to)
	if err != nil {
		logger.Error("AvailabilityRepository:GetOccupancy:Error", "error", err)
		return nil, err
	}
	return out, nil
}
