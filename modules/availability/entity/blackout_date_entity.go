package entity

import (
	"time"

	"github.com/google/uuid"

	coreEntity "meetbook/core/entity"
)

// BlackoutDate removes availability on a wall-clock date. Absent start/end
// times black out the entire day; RecurringYearly matches month+day only.
type BlackoutDate struct {
	OwnerID         uuid.UUID `db:"owner_id" json:"owner_id"`
	Date            time.Time `db:"date" json:"date"`
	StartTime       *string   `db:"start_time" json:"start_time,omitempty"`
	EndTime         *string   `db:"end_time" json:"end_time,omitempty"`
	RecurringYearly bool      `db:"recurring_yearly" json:"recurring_yearly"`
	coreEntity.BaseEntity
}
