package dto

import (
	"time"

	"github.com/google/uuid"
)

type NdaCreatedEvent struct {
	DocumentID  uuid.UUID `json:"document_id"`
	HoldID      uuid.UUID `json:"hold_id"`
	SignerEmail string    `json:"signer_email"`
}

type NdaSentEvent struct {
	DocumentID uuid.UUID `json:"document_id"`
	HoldID     uuid.UUID `json:"hold_id"`
	EnvelopeID string    `json:"envelope_id"`
}

type NdaSignedEvent struct {
	DocumentID uuid.UUID `json:"document_id"`
	HoldID     uuid.UUID `json:"hold_id"`
	EnvelopeID string    `json:"envelope_id"`
	SignedAt   time.Time `json:"signed_at"`
}

type NdaExpiredEvent struct {
	DocumentID uuid.UUID `json:"document_id"`
	HoldID     uuid.UUID `json:"hold_id"`
	EnvelopeID string    `json:"envelope_id"`
	// Status distinguishes provider expiry from a declined request.
	Status string `json:"status"`
}
