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

type DocumentRepositoryInterface interface {
	Create(ctx context.Context, doc *entity.Document) (*entity.Document, error)
	GetByHoldID(ctx context.Context, holdID uuid.UUID) (*entity.Document, error)
	GetByEnvelopeID(ctx context.Context, envelopeID string) (*entity.Document, error)
	AttachEnvelope(ctx context.Context, id uuid.UUID, envelopeID string) (*entity.Document, error)
	MarkSent(ctx context.Context, envelopeID string) (*entity.Document, error)
	MarkSigned(ctx context.Context, envelopeID string, audit []byte) (*entity.Document, error)
	MarkTerminal(ctx context.Context, envelopeID, status string) (*entity.Document, error)
}

type DocumentRepository struct {
	db database.IDatabase
}

func NewDocumentRepository(db database.IDatabase) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `
	id, hold_id, booking_id, status, signer_email, signer_name, envelope_id,
	sent_at, signed_at, audit, created_at, updated_at
`

func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	var created entity.Document
	err := r.db.GetContext(ctx, &created, `
		INSERT INTO documents (hold_id, status, signer_email, signer_name)
		VALUES ($1, 'pending', $2, $3)
		ON CONFLICT (hold_id) DO NOTHING
		RETURNING `+documentColumns,
		doc.HoldID, doc.SignerEmail, doc.SignerName)
	if err != nil {
		// Lost a create race for the same hold; the existing row wins.
		if errors.Is(err, sql.ErrNoRows) {
			return r.GetByHoldID(ctx, doc.HoldID)
		}
		logger.Error("DocumentRepository:Create:Error", "error", err)
		return nil, err
	}
	return &created, nil
}

func (r *DocumentRepository) GetByHoldID(ctx context.Context, holdID uuid.UUID) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.GetContext(ctx, &doc,
		`SELECT `+documentColumns+` FROM documents WHERE hold_id = $1`, holdID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("DocumentRepository:GetByHoldID:Error", "error", err)
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByEnvelopeID(ctx context.Context, envelopeID string) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.GetContext(ctx, &doc,
		`SELECT `+documentColumns+` FROM documents WHERE envelope_id = $1`, envelopeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("DocumentRepository:GetByEnvelopeID:Error", "error", err)
		return nil, err
	}
	return &doc, nil
}

// AttachEnvelope records the provider envelope on a pending document and
// moves it to sent. Only the first attach wins.
func (r *DocumentRepository) AttachEnvelope(ctx context.Context, id uuid.UUID, envelopeID string) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.GetContext(ctx, &doc, `
		UPDATE documents
		SET envelope_id = $2, status = 'sent', sent_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending' AND envelope_id IS NULL
		RETURNING `+documentColumns, id, envelopeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("DocumentRepository:AttachEnvelope:Error", "error", err)
		return nil, err
	}
	return &doc, nil
}

// MarkSent is the webhook-driven pending -> sent transition. Returns nil
// without error when the document already moved past pending.
func (r *DocumentRepository) MarkSent(ctx context.Context, envelopeID string) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.GetContext(ctx, &doc, `
		UPDATE documents
		SET status = 'sent', sent_at = COALESCE(sent_at, now()), updated_at = now()
		WHERE envelope_id = $1 AND status = 'pending'
		RETURNING `+documentColumns, envelopeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("DocumentRepository:MarkSent:Error", "error", err)
		return nil, err
	}
	return &doc, nil
}

// MarkSigned moves pending or sent to signed and stores the audit payload.
func (r *DocumentRepository) MarkSigned(ctx context.Context, envelopeID string, audit []byte) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.GetContext(ctx, &doc, `
		UPDATE documents
		SET status = 'signed', signed_at = now(), audit = $2, updated_at = now()
		WHERE envelope_id = $1 AND status IN ('pending', 'sent')
		RETURNING `+documentColumns, envelopeID, audit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("DocumentRepository:MarkSigned:Error", "error", err)
		return nil, err
	}
	return &doc, nil
}

// MarkTerminal moves a still-open document to expired or revoked.
func (r *DocumentRepository) MarkTerminal(ctx context.Context, envelopeID, status string) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.GetContext(ctx, &doc, `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE envelope_id = $1 AND status IN ('pending', 'sent')
		RETURNING `+documentColumns, envelopeID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("DocumentRepository:MarkTerminal:Error", "error", err)
		return nil, err
	}
	return &doc, nil
}
