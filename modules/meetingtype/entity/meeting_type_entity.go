package entity

import (
	"github.com/google/uuid"

	coreEntity "meetbook/core/entity"
)

// MeetingType is a bookable meeting template owned by a host. Duration and
// buffers are effectively immutable while holds are outstanding: changing
// them releases every active hold on the type.
type MeetingType struct {
	OwnerID             uuid.UUID `db:"owner_id" json:"owner_id"`
	Name                string    `db:"name" json:"name"`
	Slug                string    `db:"slug" json:"slug"`
	DurationMinutes     int       `db:"duration_minutes" json:"duration_minutes"`
	BufferBeforeMinutes int       `db:"buffer_before_minutes" json:"buffer_before_minutes"`
	BufferAfterMinutes  int       `db:"buffer_after_minutes" json:"buffer_after_minutes"`
	Location            *string   `db:"location" json:"location,omitempty"`
	RequiresNDA         bool      `db:"requires_nda" json:"requires_nda"`
	Active              bool      `db:"active" json:"active"`
	coreEntity.BaseEntity
}
