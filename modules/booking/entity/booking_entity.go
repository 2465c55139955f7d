package entity

import (
	"time"

	"github.com/google/uuid"
)

// Booking statuses. A booking starts confirmed; later transitions are
// monotonic and never return to confirmed.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCanceled  = "canceled"
	BookingStatusCompleted = "completed"
	BookingStatusNoShow    = "no_show"
)

// Booking is a durable confirmed meeting. The storage layer guarantees no
// two confirmed bookings on a meeting type overlap.
type Booking struct {
	ID             uuid.UUID `db:"id" json:"id"`
	MeetingTypeID  uuid.UUID `db:"meeting_type_id" json:"meeting_type_id"`
	HostID         uuid.UUID `db:"host_id" json:"host_id"`
	SlotStart      time.Time `db:"slot_start" json:"slot_start"`
	SlotEnd        time.Time `db:"slot_end" json:"slot_end"`
	GuestEmail     string    `db:"guest_email" json:"guest_email"`
	GuestName      string    `db:"guest_name" json:"guest_name"`
	GuestTimezone  string    `db:"guest_timezone" json:"guest_timezone"`
	GuestNotes     *string   `db:"guest_notes" json:"guest_notes,omitempty"`
	Status         string    `db:"status" json:"status"`
	IdempotencyKey uuid.UUID `db:"idempotency_key" json:"-"`
	// HoldID is the originating hold, retained for audit.
	HoldID    uuid.UUID `db:"hold_id" json:"hold_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
