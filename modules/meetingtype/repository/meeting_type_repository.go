package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"meetbook/core/database"
	"meetbook/core/logger"
	"meetbook/modules/meetingtype/entity"
)

type MeetingTypeRepositoryInterface interface {
	Create(ctx context.Context, mt *entity.MeetingType) (*entity.MeetingType, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.MeetingType, error)
	GetBySlug(ctx context.Context, slug string) (*entity.MeetingType, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.MeetingType, error)
	SlugExists(ctx context.Context, ownerID uuid.UUID, slug string) (bool, error)
	Update(ctx context.Context, mt *entity.MeetingType) error
	ReleaseActiveHolds(ctx context.Context, meetingTypeID uuid.UUID) ([]ReleasedHold, error)
}

// ReleasedHold is the minimal shape needed to emit slot.released for holds
// invalidated by a meeting-type change.
type ReleasedHold struct {
	ID        uuid.UUID `db:"id"`
	SlotStart time.Time `db:"slot_start"`
	SlotEnd   time.Time `db:"slot_end"`
}

type MeetingTypeRepository struct {
	db database.IDatabase
}

func NewMeetingTypeRepository(db database.IDatabase) *MeetingTypeRepository {
	return &MeetingTypeRepository{db: db}
}

const meetingTypeColumns = `
	id, owner_id, name, slug, duration_minutes, buffer_before_minutes,
	buffer_after_minutes, location, requires_nda, active, created_at, updated_at
`

func (r *MeetingTypeRepository) Create(ctx context.Context, mt *entity.MeetingType) (*entity.MeetingType, error) {
	query := `
		INSERT INTO meeting_types
			(owner_id, name, slug, duration_minutes, buffer_before_minutes,
			 buffer_after_minutes, location, requires_nda, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
		RETURNING ` + meetingTypeColumns

	var created entity.MeetingType
	err := r.db.GetContext(ctx, &created, query,
		mt.OwnerID, mt.Name, mt.Slug, mt.DurationMinutes, mt.BufferBeforeMinutes,
		mt.BufferAfterMinutes, mt.Location, mt.RequiresNDA)
	if err != nil {
		logger.Error("MeetingTypeRepository:Create:Error", "error", err)
		return nil, err
	}
	return &created, nil
}

func (r *MeetingTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.MeetingType, error) {
	query := `SELECT ` + meetingTypeColumns + ` FROM meeting_types WHERE id = $1`

	var mt entity.MeetingType
	err := r.db.GetContext(ctx, &mt, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("MeetingTypeRepository:GetByID:Error", "error", err)
		return nil, err
	}
	return &mt, nil
}

func (r *MeetingTypeRepository) GetBySlug(ctx context.Context, slug string) (*entity.MeetingType, error) {
	query := `SELECT ` + meetingTypeColumns + ` FROM meeting_types WHERE slug = $1`

	var mt entity.MeetingType
	err := r.db.GetContext(ctx, &mt, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("MeetingTypeRepository:GetBySlug:Error", "error", err)
		return nil, err
	}
	return &mt, nil
}

func (r *MeetingTypeRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.MeetingType, error) {
	query := `SELECT ` + meetingTypeColumns + `
		FROM meeting_types WHERE owner_id = $1 ORDER BY created_at DESC`

	var out []entity.MeetingType
	err := r.db.SelectContext(ctx, &out, query, ownerID)
	if err != nil {
		logger.Error("MeetingTypeRepository:GetByOwner:Error", "error", err)
		return nil, err
	}
	return out, nil
}

func (r *MeetingTypeRepository) SlugExists(ctx context.Context, ownerID uuid.UUID, slug string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM meeting_types WHERE owner_id = $1 AND slug = $2)`,
		ownerID, slug)
	if err != nil {
		logger.Error("MeetingTypeRepository:SlugExists:Error", "error", err)
		return false, err
	}
	return exists, nil
}

func (r *MeetingTypeRepository) Update(ctx context.Context, mt *entity.MeetingType) error {
	query := `
		UPDATE meeting_types
		SET name = $2, duration_minutes = $3, buffer_before_minutes = $4,
		    buffer_after_minutes = $5, location = $6, requires_nda = $7,
		    active = $8, updated_at = now()
		WHERE id = $1
	`
	err := r.db.ExecContext(ctx, query,
		mt.ID, mt.Name, mt.DurationMinutes, mt.BufferBeforeMinutes,
		mt.BufferAfterMinutes, mt.Location, mt.RequiresNDA, mt.Active)
	if err != nil {
		logger.Error("MeetingTypeRepository:Update:Error", "error", err)
		return err
	}
	return nil
}

// ReleaseActiveHolds transitions every active hold on the type to released
// and returns the rows it actually transitioned.
func (r *MeetingTypeRepository) ReleaseActiveHolds(ctx context.Context, meetingTypeID uuid.UUID) ([]ReleasedHold, error) {
	query := `
		UPDATE slot_holds
		SET status = 'released', updated_at = now()
		WHERE meeting_type_id = $1 AND status = 'active'
		RETURNING id, slot_start, slot_end
	`
	var released []ReleasedHold
	err := r.db.SelectContext(ctx, &released, query, meetingTypeID)
	if err != nil {
		logger.Error("MeetingTypeRepository:ReleaseActiveHolds:Error", "error", err)
		return nil, err
	}
	return released, nil
}
