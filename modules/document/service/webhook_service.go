package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"meetbook/core/errors"
	"meetbook/core/logger"
	"meetbook/modules/document/entity"
	"meetbook/modules/document/repository"
)

const webhookProvider = "signwell"

// Completed outcomes stay cached this long; after that, redeliveries fall
// through to the processed_webhooks table.
const replayCacheTTL = 24 * time.Hour

// ReplayCache short-circuits provider redeliveries of completed webhooks
// without a table round-trip. Optional; nil disables the fast path.
type ReplayCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Provider event names the reactor understands.
const (
	eventDocumentSent      = "document_sent"
	eventDocumentCompleted = "document_completed"
	eventDocumentExpired   = "document_expired"
	eventDocumentDeclined  = "document_declined"
)

type providerPayload struct {
	Event struct {
		Name string `json:"name"`
	} `json:"event"`
	Document struct {
		ID string `json:"id"`
	} `json:"document"`
}

// WebhookResult is what the HTTP layer returns to the provider.
type WebhookResult struct {
	Status     string `json:"status"`
	DocumentID string `json:"document_id,omitempty"`
	Event      string `json:"event,omitempty"`
}

type WebhookReactorInterface interface {
	VerifySignature(body []byte, signature string) bool
	Process(ctx context.Context, body []byte) (*WebhookResult, *errors.AppError)
}

// WebhookReactor authenticates, deduplicates, and dispatches provider
// webhook deliveries. Replayed deliveries get the original outcome back
// without re-running side effects.
type WebhookReactor struct {
	secret      []byte
	devMode     bool
	webhookRepo repository.WebhookRepositoryInterface
	documents   DocumentServiceInterface
	replay      ReplayCache
}

func NewWebhookReactor(secret string, devMode bool, webhookRepo repository.WebhookRepositoryInterface, documents DocumentServiceInterface, replay ReplayCache) *WebhookReactor {
	return &WebhookReactor{
		secret:      []byte(secret),
		devMode:     devMode,
		webhookRepo: webhookRepo,
		documents:   documents,
		replay:      replay,
	}
}

// VerifySignature checks the hex HMAC-SHA256 of the raw body in constant
// time. A development deployment with no shared secret lets deliveries
// through unchecked; anywhere else a missing secret rejects everything.
func (s *WebhookReactor) VerifySignature(body []byte, signature string) bool {
	if len(s.secret) == 0 {
		if s.devMode {
			logger.Warn("WebhookReactor:VerifySignature:Skipped", "reason", "no shared secret in development")
			return true
		}
		return false
	}
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *WebhookReactor) Process(ctx context.Context, body []byte) (*WebhookResult, *errors.AppError) {
	var payload providerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidRequestData, "Malformed webhook payload", nil)
	}
	if payload.Event.Name == "" || payload.Document.ID == "" {
		return nil, errors.NewAppError(errors.ErrInvalidRequestData, "Webhook payload missing event name or document id", nil)
	}

	// One logical delivery per (document, event); provider retries collapse.
	webhookID := fmt.Sprintf("%s:%s", payload.Document.ID, payload.Event.Name)
	cacheKey := "webhook:" + webhookProvider + ":" + webhookID
	if s.replay != nil {
		if cached, ok, cacheErr := s.replay.Get(ctx, cacheKey); cacheErr == nil && ok {
			var result WebhookResult
			if json.Unmarshal([]byte(cached), &result) == nil {
				return &result, nil
			}
		}
	}

	record, claimed, err := s.webhookRepo.Begin(ctx, webhookProvider, webhookID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to record webhook", nil)
	}
	if !claimed {
		return replayResult(record), nil
	}

	result, dispatchErr := s.dispatch(ctx, payload, body)
	if dispatchErr != nil {
		logger.Error("WebhookReactor:Process:Dispatch:Error",
			"webhook_id", webhookID, "error", dispatchErr)
		if err := s.webhookRepo.Fail(ctx, record.ID); err != nil {
			logger.Warn("WebhookReactor:Process:Fail:Error", "webhook_id", webhookID, "error", err)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to process webhook", nil)
	}

	responseBody, _ := json.Marshal(result)
	if err := s.webhookRepo.Complete(ctx, record.ID, string(responseBody)); err != nil {
		logger.Warn("WebhookReactor:Process:Complete:Error", "webhook_id", webhookID, "error", err)
	}
	// Only completed outcomes are cached; failures must hit Begin again so
	// the row can be reclaimed.
	if s.replay != nil {
		if err := s.replay.Set(ctx, cacheKey, string(responseBody), replayCacheTTL); err != nil {
			logger.Warn("WebhookReactor:Process:Cache:Error", "webhook_id", webhookID, "error", err)
		}
	}
	logger.Info("WebhookReactor:Process:Success",
		"webhook_id", webhookID, "event", payload.Event.Name)
	return result, nil
}

func (s *WebhookReactor) dispatch(ctx context.Context, payload providerPayload, body []byte) (*WebhookResult, error) {
	envelopeID := payload.Document.ID
	var err error
	switch payload.Event.Name {
	case eventDocumentSent:
		err = s.documents.OnSent(ctx, envelopeID)
	case eventDocumentCompleted:
		err = s.documents.OnSigned(ctx, envelopeID, body)
	case eventDocumentExpired:
		err = s.documents.OnClosed(ctx, envelopeID, entity.DocumentStatusExpired)
	case eventDocumentDeclined:
		err = s.documents.OnClosed(ctx, envelopeID, entity.DocumentStatusRevoked)
	default:
		return &WebhookResult{Status: "ignored", DocumentID: envelopeID, Event: payload.Event.Name}, nil
	}
	if err != nil {
		return nil, err
	}
	return &WebhookResult{Status: "processed", DocumentID: envelopeID, Event: payload.Event.Name}, nil
}

func replayResult(record *entity.ProcessedWebhook) *WebhookResult {
	if record.Status == entity.WebhookStatusCompleted && record.ResponseBody != nil {
		var cached WebhookResult
		if err := json.Unmarshal([]byte(*record.ResponseBody), &cached); err == nil {
			return &cached
		}
	}
	return &WebhookResult{Status: record.Status}
}
