package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document statuses. Transitions only move forward; a late "sent" webhook
// after "signed" is a no-op.
const (
	DocumentStatusPending = "pending"
	DocumentStatusSent    = "sent"
	DocumentStatusSigned  = "signed"
	DocumentStatusExpired = "expired"
	DocumentStatusRevoked = "revoked"
)

// Document tracks one NDA signature request tied to a hold, and to the
// booking once the hold converts.
type Document struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	HoldID      uuid.UUID  `db:"hold_id" json:"hold_id"`
	BookingID   *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	Status      string     `db:"status" json:"status"`
	SignerEmail string     `db:"signer_email" json:"signer_email"`
	SignerName  string     `db:"signer_name" json:"signer_name"`
	// EnvelopeID is the provider-side document id; nil until the envelope
	// has been created with the provider.
	EnvelopeID *string    `db:"envelope_id" json:"envelope_id,omitempty"`
	SentAt     *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	SignedAt   *time.Time `db:"signed_at" json:"signed_at,omitempty"`
	Audit      []byte     `db:"audit" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
