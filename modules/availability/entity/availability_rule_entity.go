package entity

import (
	"time"

	"github.com/google/uuid"

	coreEntity "meetbook/core/entity"
)

// AvailabilityRule opens a weekly wall-clock window for booking. A nil
// MeetingTypeID applies the rule to all of the owner's types. Multiple
// rules per day union together.
type AvailabilityRule struct {
	OwnerID       uuid.UUID  `db:"owner_id" json:"owner_id"`
	MeetingTypeID *uuid.UUID `db:"meeting_type_id" json:"meeting_type_id,omitempty"`
	// DayOfWeek is 0..6 with 0 = Sunday.
	DayOfWeek int `db:"day_of_week" json:"day_of_week"`
	// StartTime/EndTime are wall-clock "HH:MM:SS" strings in the host zone.
	StartTime      string     `db:"start_time" json:"start_time"`
	EndTime        string     `db:"end_time" json:"end_time"`
	EffectiveFrom  *time.Time `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveUntil *time.Time `db:"effective_until" json:"effective_until,omitempty"`
	Active         bool       `db:"active" json:"active"`
	coreEntity.BaseEntity
}
