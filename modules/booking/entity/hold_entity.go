package entity

import (
	"time"

	"github.com/google/uuid"
)

// Hold statuses. A hold leaves active exactly once; terminal states never
// transition again.
const (
	HoldStatusActive    = "active"
	HoldStatusConverted = "converted"
	HoldStatusExpired   = "expired"
	HoldStatusReleased  = "released"
)

// SlotHold is a short-lived exclusive reservation of one slot. The storage
// layer guarantees no two active holds on a meeting type overlap.
type SlotHold struct {
	ID             uuid.UUID `db:"id" json:"id"`
	MeetingTypeID  uuid.UUID `db:"meeting_type_id" json:"meeting_type_id"`
	SlotStart      time.Time `db:"slot_start" json:"slot_start"`
	SlotEnd        time.Time `db:"slot_end" json:"slot_end"`
	GuestEmail     string    `db:"guest_email" json:"guest_email"`
	GuestName      *string   `db:"guest_name" json:"guest_name,omitempty"`
	Status         string    `db:"status" json:"status"`
	ExpiresAt      time.Time `db:"expires_at" json:"expires_at"`
	IdempotencyKey uuid.UUID `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func (h *SlotHold) ActiveAt(now time.Time) bool {
	return h.Status == HoldStatusActive && h.ExpiresAt.After(now)
}
