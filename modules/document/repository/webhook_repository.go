package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"meetbook/core/database"
	"meetbook/core/logger"
	"meetbook/modules/document/entity"
)

type WebhookRepositoryInterface interface {
	Begin(ctx context.Context, provider, webhookID string) (*entity.ProcessedWebhook, bool, error)
	Complete(ctx context.Context, id uuid.UUID, responseBody string) error
	Fail(ctx context.Context, id uuid.UUID) error
}

type WebhookRepository struct {
	db database.IDatabase
}

func NewWebhookRepository(db database.IDatabase) *WebhookRepository {
	return &WebhookRepository{db: db}
}

const webhookColumns = `id, provider, webhook_id, status, response_body, created_at, updated_at`

// Begin claims a webhook id for processing. The bool result is true when
// this call claimed it; false means a prior delivery already holds it and
// the returned row carries that delivery's state. A row left in failed by
// an earlier attempt is reclaimed, so provider retries re-run the handler
// instead of replaying the failure.
func (r *WebhookRepository) Begin(ctx context.Context, provider, webhookID string) (*entity.ProcessedWebhook, bool, error) {
	var row entity.ProcessedWebhook
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO processed_webhooks (provider, webhook_id, status)
		VALUES ($1, $2, 'processing')
		ON CONFLICT (provider, webhook_id) DO UPDATE
		SET status = 'processing', updated_at = now()
		WHERE processed_webhooks.status = 'failed'
		RETURNING `+webhookColumns, provider, webhookID)
	if err == nil {
		return &row, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.Error("WebhookRepository:Begin:Error", "error", err)
		return nil, false, err
	}

	err = r.db.GetContext(ctx, &row, `
		SELECT `+webhookColumns+` FROM processed_webhooks
		WHERE provider = $1 AND webhook_id = $2`, provider, webhookID)
	if err != nil {
		logger.Error("WebhookRepository:Begin:Fetch:Error", "error", err)
		return nil, false, err
	}
	return &row, false, nil
}

func (r *WebhookRepository) Complete(ctx context.Context, id uuid.UUID, responseBody string) error {
	err := r.db.ExecContext(ctx, `
		UPDATE processed_webhooks
		SET status = 'completed', response_body = $2, updated_at = now()
		WHERE id = $1`, id, responseBody)
	if err != nil {
		logger.Error("WebhookRepository:Complete:Error", "error", err)
	}
	return err
}

func (r *WebhookRepository) Fail(ctx context.Context, id uuid.UUID) error {
	err := r.db.ExecContext(ctx, `
		UPDATE processed_webhooks
		SET status = 'failed', updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		logger.Error("WebhookRepository:Fail:Error", "error", err)
	}
	return err
}
