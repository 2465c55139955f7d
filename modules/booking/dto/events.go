package dto

import (
	"time"

	"github.com/google/uuid"
)

// Reasons carried on slot.released.
const (
	ReleaseReasonExpired   = "expired"
	ReleaseReasonCanceled  = "canceled"
	ReleaseReasonConverted = "converted"
)

type SlotHeldEvent struct {
	HoldID        uuid.UUID `json:"hold_id"`
	MeetingTypeID uuid.UUID `json:"meeting_type_id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotEnd       time.Time `json:"slot_end"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type SlotReleasedEvent struct {
	HoldID        uuid.UUID `json:"hold_id"`
	MeetingTypeID uuid.UUID `json:"meeting_type_id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotEnd       time.Time `json:"slot_end"`
	Reason        string    `json:"reason"`
}

type BookingConfirmedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	HoldID        uuid.UUID `json:"hold_id"`
	MeetingTypeID uuid.UUID `json:"meeting_type_id"`
	HostID        uuid.UUID `json:"host_id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotEnd       time.Time `json:"slot_end"`
	GuestEmail    string    `json:"guest_email"`
	GuestName     string    `json:"guest_name"`
}

type BookingCanceledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	MeetingTypeID uuid.UUID `json:"meeting_type_id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotEnd       time.Time `json:"slot_end"`
	GuestEmail    string    `json:"guest_email"`
}
