package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateHoldRequest struct {
	SlotStart time.Time `json:"slot_start"`
	// SlotEnd is optional; when present it must equal slot_start plus the
	// meeting-type duration.
	SlotEnd        *time.Time `json:"slot_end,omitempty"`
	GuestEmail     string     `json:"guest_email"`
	GuestName      *string    `json:"guest_name,omitempty"`
	IdempotencyKey string     `json:"idempotency_key"`
}

type HoldResponse struct {
	ID            uuid.UUID `json:"id"`
	MeetingTypeID uuid.UUID `json:"meeting_type_id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotEnd       time.Time `json:"slot_end"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
	// NdaRequired tells the client a signature must land before confirm.
	NdaRequired bool `json:"nda_required"`
}

type ConfirmBookingRequest struct {
	HoldID         string  `json:"hold_id"`
	GuestName      string  `json:"guest_name"`
	GuestTimezone  string  `json:"guest_timezone"`
	GuestNotes     *string `json:"guest_notes,omitempty"`
	IdempotencyKey string  `json:"idempotency_key"`
}

type BookingResponse struct {
	ID            uuid.UUID `json:"id"`
	MeetingTypeID uuid.UUID `json:"meeting_type_id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotEnd       time.Time `json:"slot_end"`
	GuestEmail    string    `json:"guest_email"`
	GuestName     string    `json:"guest_name"`
	GuestTimezone string    `json:"guest_timezone"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
