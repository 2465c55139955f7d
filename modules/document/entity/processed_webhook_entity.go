package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	WebhookStatusProcessing = "processing"
	WebhookStatusCompleted  = "completed"
	WebhookStatusFailed     = "failed"
)

// ProcessedWebhook records every webhook delivery so replays return the
// original response instead of reprocessing.
type ProcessedWebhook struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Provider     string    `db:"provider" json:"provider"`
	WebhookID    string    `db:"webhook_id" json:"webhook_id"`
	Status       string    `db:"status" json:"status"`
	ResponseBody *string   `db:"response_body" json:"response_body,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
