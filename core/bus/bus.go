package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"meetbook/core/logger"
)

// Subjects carried on the bus.
const (
	SubjectSlotHeld         = "slot.held"
	SubjectSlotReleased     = "slot.released"
	SubjectBookingConfirmed = "booking.confirmed"
	SubjectBookingCanceled  = "booking.canceled"

	SubjectNdaCreated = "nda.created"
	SubjectNdaSent    = "nda.sent"
	SubjectNdaSigned  = "nda.signed"
	SubjectNdaExpired = "nda.expired"

	SubjectEmailRequested = "notify.email.requested"
	SubjectEmailSent      = "notify.email.sent"

	DLQPrefix = "dlq."
)

// Streams and their retention windows.
const (
	StreamBookings      = "bus:bookings"
	StreamDocuments     = "bus:documents"
	StreamNotifications = "bus:notifications"
	StreamDeadLetter    = "bus:dead_letter"
)

var retention = map[string]time.Duration{
	StreamBookings:      7 * 24 * time.Hour,
	StreamDocuments:     30 * 24 * time.Hour,
	StreamNotifications: 24 * time.Hour,
	StreamDeadLetter:    90 * 24 * time.Hour,
}

const dedupWindow = 2 * time.Minute

// StreamForSubject routes a subject to its stream by prefix.
func StreamForSubject(subject string) (string, error) {
	switch {
	case strings.HasPrefix(subject, "slot.") || strings.HasPrefix(subject, "booking."):
		return StreamBookings, nil
	case strings.HasPrefix(subject, "nda."):
		return StreamDocuments, nil
	case strings.HasPrefix(subject, "notify."):
		return StreamNotifications, nil
	case strings.HasPrefix(subject, DLQPrefix):
		return StreamDeadLetter, nil
	}
	return "", fmt.Errorf("no stream for subject %q", subject)
}

// Envelope is the wire form of every event. EventID doubles as the
// publisher-side deduplication id.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// DLQEntry is the payload published on dlq.<subject> when a message
// exhausts its retry budget.
type DLQEntry struct {
	OriginalSubject string   `json:"original_subject"`
	OriginalEvent   Envelope `json:"original_event"`
	LastError       string   `json:"last_error"`
	Attempts        int64    `json:"attempts"`
}

// Bus is the durable publish side plus the connection shared by consumers.
type Bus struct {
	client *redis.Client
}

func New(client *redis.Client) *Bus {
	return &Bus{client: client}
}

func (b *Bus) Client() *redis.Client {
	return b.client
}

// Publish appends one event to the subject's stream. A repeated event id
// inside the dedup window is silently dropped.
func (b *Bus) Publish(ctx context.Context, subject string, data any) error {
	return b.PublishEnvelope(ctx, subject, Envelope{
		EventID:    uuid.New(),
		EventType:  subject,
		OccurredAt: time.Now().UTC(),
	}, data)
}

// PublishWithID publishes with a caller-chosen event id, letting the caller
// make the publish itself idempotent across retries.
func (b *Bus) PublishWithID(ctx context.Context, subject string, eventID uuid.UUID, data any) error {
	return b.PublishEnvelope(ctx, subject, Envelope{
		EventID:    eventID,
		EventType:  subject,
		OccurredAt: time.Now().UTC(),
	}, data)
}

func (b *Bus) PublishEnvelope(ctx context.Context, subject string, env Envelope, data any) error {
	stream, err := StreamForSubject(subject)
	if err != nil {
		return err
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		env.Data = raw
	}

	fresh, err := b.client.SetNX(ctx, dedupKey(env.EventID), "1", dedupWindow).Result()
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if !fresh {
		logger.Debug("Bus:Publish:Duplicate", "subject", subject, "event_id", env.EventID)
		return nil
	}

	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: env.streamValues(),
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	logger.Debug("Bus:Publish:Sent", "subject", subject, "event_id", env.EventID)
	return nil
}

func dedupKey(id uuid.UUID) string {
	return "bus:dedup:" + id.String()
}

func (e Envelope) streamValues() map[string]any {
	return map[string]any{
		"event_id":    e.EventID.String(),
		"event_type":  e.EventType,
		"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
		"data":        string(e.Data),
	}
}

func envelopeFromValues(values map[string]any) (Envelope, error) {
	var env Envelope
	id, _ := values["event_id"].(string)
	eventID, err := uuid.Parse(id)
	if err != nil {
		return env, fmt.Errorf("bad event_id %q: %w", id, err)
	}
	env.EventID = eventID
	env.EventType, _ = values["event_type"].(string)
	if env.EventType == "" {
		return env, fmt.Errorf("missing event_type")
	}
	if ts, ok := values["occurred_at"].(string); ok {
		env.OccurredAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return env, fmt.Errorf("bad occurred_at %q: %w", ts, err)
		}
	}
	if raw, ok := values["data"].(string); ok && raw != "" {
		if !json.Valid([]byte(raw)) {
			return env, fmt.Errorf("data is not valid json")
		}
		env.Data = json.RawMessage(raw)
	}
	return env, nil
}

// StartJanitor trims every stream to its retention window until ctx ends.
func (b *Bus) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.trimAll(ctx)
			}
		}
	}()
}

func (b *Bus) trimAll(ctx context.Context) {
	for stream, window := range retention {
		minID := fmt.Sprintf("%d-0", time.Now().Add(-window).UnixMilli())
		if err := b.client.XTrimMinID(ctx, stream, minID).Err(); err != nil && ctx.Err() == nil {
			logger.Warn("Bus:Janitor:Trim:Error", "stream", stream, "error", err)
		}
	}
}
