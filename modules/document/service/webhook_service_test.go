package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"meetbook/core/errors"
	bookingEntity "meetbook/modules/booking/entity"
	"meetbook/modules/document/entity"
)

type fakeWebhookRepo struct {
	rows map[string]*entity.ProcessedWebhook
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{rows: make(map[string]*entity.ProcessedWebhook)}
}

func (r *fakeWebhookRepo) Begin(ctx context.Context, provider, webhookID string) (*entity.ProcessedWebhook, bool, error) {
	key := provider + ":" + webhookID
	if row, ok := r.rows[key]; ok {
		// Failed rows are reclaimed so a provider retry re-runs the handler.
		if row.Status == entity.WebhookStatusFailed {
			row.Status = entity.WebhookStatusProcessing
			return row, true, nil
		}
		return row, false, nil
	}
	row := &entity.ProcessedWebhook{
		ID:        uuid.New(),
		Provider:  provider,
		WebhookID: webhookID,
		Status:    entity.WebhookStatusProcessing,
	}
	r.rows[key] = row
	return row, true, nil
}

func (r *fakeWebhookRepo) Complete(ctx context.Context, id uuid.UUID, responseBody string) error {
	for _, row := range r.rows {
		if row.ID == id {
			row.Status = entity.WebhookStatusCompleted
			row.ResponseBody = &responseBody
		}
	}
	return nil
}

func (r *fakeWebhookRepo) Fail(ctx context.Context, id uuid.UUID) error {
	for _, row := range r.rows {
		if row.ID == id {
			row.Status = entity.WebhookStatusFailed
		}
	}
	return nil
}

type fakeDocuments struct {
	sent   []string
	signed []string
	closed map[string]string
	err    error
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{closed: make(map[string]string)}
}

func (d *fakeDocuments) InitiateForHold(ctx context.Context, hold *bookingEntity.SlotHold) error {
	return nil
}

func (d *fakeDocuments) EnsureEnvelope(ctx context.Context, holdID uuid.UUID) error { return nil }

func (d *fakeDocuments) OnSent(ctx context.Context, envelopeID string) error {
	d.sent = append(d.sent, envelopeID)
	return d.err
}

func (d *fakeDocuments) OnSigned(ctx context.Context, envelopeID string, payload []byte) error {
	d.signed = append(d.signed, envelopeID)
	return d.err
}

func (d *fakeDocuments) OnClosed(ctx context.Context, envelopeID, status string) error {
	d.closed[envelopeID] = status
	return d.err
}

const testSecret = "whsec-test"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookBody(event, docID string) []byte {
	return []byte(fmt.Sprintf(`{"event":{"name":%q},"document":{"id":%q}}`, event, docID))
}

func TestVerifySignature(t *testing.T) {
	reactor := NewWebhookReactor(testSecret, false, newFakeWebhookRepo(), newFakeDocuments(), nil)
	body := webhookBody("document_completed", "env-1")

	if !reactor.VerifySignature(body, sign(body)) {
		t.Error("valid signature must verify")
	}
	if reactor.VerifySignature(body, sign([]byte("other"))) {
		t.Error("signature over different body must fail")
	}
	if reactor.VerifySignature(body, "") {
		t.Error("empty signature must fail")
	}

	unconfigured := NewWebhookReactor("", false, newFakeWebhookRepo(), newFakeDocuments(), nil)
	if unconfigured.VerifySignature(body, sign(body)) {
		t.Error("missing secret must reject everything outside development")
	}

	dev := NewWebhookReactor("", true, newFakeWebhookRepo(), newFakeDocuments(), nil)
	if !dev.VerifySignature(body, "") {
		t.Error("development with no secret must let deliveries through")
	}
	devWithSecret := NewWebhookReactor(testSecret, true, newFakeWebhookRepo(), newFakeDocuments(), nil)
	if devWithSecret.VerifySignature(body, "") {
		t.Error("a configured secret is enforced even in development")
	}
}

func TestProcessDispatch(t *testing.T) {
	tests := []struct {
		event string
		check func(t *testing.T, docs *fakeDocuments)
	}{
		{"document_sent", func(t *testing.T, docs *fakeDocuments) {
			if len(docs.sent) != 1 || docs.sent[0] != "env-1" {
				t.Errorf("sent calls = %v", docs.sent)
			}
		}},
		{"document_completed", func(t *testing.T, docs *fakeDocuments) {
			if len(docs.signed) != 1 || docs.signed[0] != "env-1" {
				t.Errorf("signed calls = %v", docs.signed)
			}
		}},
		{"document_expired", func(t *testing.T, docs *fakeDocuments) {
			if docs.closed["env-1"] != entity.DocumentStatusExpired {
				t.Errorf("closed = %v", docs.closed)
			}
		}},
		{"document_declined", func(t *testing.T, docs *fakeDocuments) {
			if docs.closed["env-1"] != entity.DocumentStatusRevoked {
				t.Errorf("closed = %v", docs.closed)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			docs := newFakeDocuments()
			reactor := NewWebhookReactor(testSecret, false, newFakeWebhookRepo(), docs, nil)

			result, appErr := reactor.Process(context.Background(), webhookBody(tt.event, "env-1"))
			if appErr != nil {
				t.Fatalf("process: %v", appErr)
			}
			if result.Status != "processed" {
				t.Errorf("status = %q, want processed", result.Status)
			}
			tt.check(t, docs)
		})
	}
}

func TestProcessUnknownEventIgnored(t *testing.T) {
	docs := newFakeDocuments()
	reactor := NewWebhookReactor(testSecret, false, newFakeWebhookRepo(), docs, nil)

	result, appErr := reactor.Process(context.Background(), webhookBody("document_viewed", "env-1"))
	if appErr != nil {
		t.Fatalf("process: %v", appErr)
	}
	if result.Status != "ignored" {
		t.Errorf("status = %q, want ignored", result.Status)
	}
	if len(docs.sent)+len(docs.signed)+len(docs.closed) != 0 {
		t.Error("unknown events must not touch documents")
	}
}

func TestProcessReplayReturnsCachedResult(t *testing.T) {
	docs := newFakeDocuments()
	repo := newFakeWebhookRepo()
	reactor := NewWebhookReactor(testSecret, false, repo, docs, nil)
	body := webhookBody("document_completed", "env-1")

	first, appErr := reactor.Process(context.Background(), body)
	if appErr != nil {
		t.Fatalf("first process: %v", appErr)
	}
	second, appErr := reactor.Process(context.Background(), body)
	if appErr != nil {
		t.Fatalf("replay process: %v", appErr)
	}
	if *second != *first {
		t.Errorf("replay result %+v differs from original %+v", second, first)
	}
	if len(docs.signed) != 1 {
		t.Errorf("side effects ran %d times, want 1", len(docs.signed))
	}
}

func TestProcessMalformedPayload(t *testing.T) {
	reactor := NewWebhookReactor(testSecret, false, newFakeWebhookRepo(), newFakeDocuments(), nil)

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("{nope")},
		{"missing fields", []byte(`{"event":{},"document":{}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, appErr := reactor.Process(context.Background(), tt.body)
			if appErr == nil || appErr.Code != errors.ErrInvalidRequestData {
				t.Fatalf("expected InvalidRequestData, got %v", appErr)
			}
		})
	}
}

func TestProcessDispatchFailureMarksFailed(t *testing.T) {
	docs := newFakeDocuments()
	docs.err = fmt.Errorf("db down")
	repo := newFakeWebhookRepo()
	reactor := NewWebhookReactor(testSecret, false, repo, docs, nil)

	_, appErr := reactor.Process(context.Background(), webhookBody("document_completed", "env-1"))
	if appErr == nil || appErr.Code != errors.ErrInternalServer {
		t.Fatalf("expected InternalServer, got %v", appErr)
	}
	row := repo.rows["signwell:env-1:document_completed"]
	if row == nil || row.Status != entity.WebhookStatusFailed {
		t.Errorf("webhook record not marked failed: %+v", row)
	}
}

func TestProcessRetriesAfterFailure(t *testing.T) {
	docs := newFakeDocuments()
	docs.err = fmt.Errorf("db down")
	repo := newFakeWebhookRepo()
	reactor := NewWebhookReactor(testSecret, false, repo, docs, nil)
	body := webhookBody("document_completed", "env-1")

	if _, appErr := reactor.Process(context.Background(), body); appErr == nil {
		t.Fatal("first delivery must fail")
	}

	// The provider retries after the transient error clears; the failed row
	// must be reclaimed and the handler re-run, not replayed.
	docs.err = nil
	result, appErr := reactor.Process(context.Background(), body)
	if appErr != nil {
		t.Fatalf("retry: %v", appErr)
	}
	if result.Status != "processed" {
		t.Errorf("retry status = %q, want processed", result.Status)
	}
	if len(docs.signed) != 2 {
		t.Errorf("handler ran %d times, want 2 (failed attempt plus retry)", len(docs.signed))
	}
	row := repo.rows["signwell:env-1:document_completed"]
	if row == nil || row.Status != entity.WebhookStatusCompleted {
		t.Errorf("row after retry = %+v, want completed", row)
	}
}

type fakeReplayCache struct {
	values map[string]string
}

func newFakeReplayCache() *fakeReplayCache {
	return &fakeReplayCache{values: make(map[string]string)}
}

func (c *fakeReplayCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *fakeReplayCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.values[key] = value
	return nil
}

func TestProcessReplayCacheFastPath(t *testing.T) {
	docs := newFakeDocuments()
	repo := newFakeWebhookRepo()
	replay := newFakeReplayCache()
	reactor := NewWebhookReactor(testSecret, false, repo, docs, replay)
	body := webhookBody("document_completed", "env-1")

	first, appErr := reactor.Process(context.Background(), body)
	if appErr != nil {
		t.Fatalf("first process: %v", appErr)
	}
	if len(replay.values) != 1 {
		t.Fatalf("completed outcome not cached: %v", replay.values)
	}

	// A redelivery is served from the cache without touching the table.
	repo.rows = make(map[string]*entity.ProcessedWebhook)
	second, appErr := reactor.Process(context.Background(), body)
	if appErr != nil {
		t.Fatalf("cached process: %v", appErr)
	}
	if *second != *first {
		t.Errorf("cached result %+v differs from original %+v", second, first)
	}
	if len(repo.rows) != 0 {
		t.Error("cache hit must not reach the repository")
	}
	if len(docs.signed) != 1 {
		t.Errorf("side effects ran %d times, want 1", len(docs.signed))
	}
}
