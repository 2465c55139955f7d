package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meetbook/core/bus"
	"meetbook/core/logger"
	"meetbook/core/storage"
	bookingEntity "meetbook/modules/booking/entity"
	bookingService "meetbook/modules/booking/service"
	"meetbook/modules/document/dto"
	"meetbook/modules/document/entity"
	"meetbook/modules/document/repository"
	"meetbook/modules/document/signwell"
)

// EnvelopeCreator is the provider slice DocumentService depends on.
type EnvelopeCreator interface {
	Configured() bool
	CreateEnvelope(ctx context.Context, p signwell.CreateEnvelopeParams) (string, error)
}

type DocumentServiceInterface interface {
	InitiateForHold(ctx context.Context, hold *bookingEntity.SlotHold) error
	EnsureEnvelope(ctx context.Context, holdID uuid.UUID) error
	OnSent(ctx context.Context, envelopeID string) error
	OnSigned(ctx context.Context, envelopeID string, payload []byte) error
	OnClosed(ctx context.Context, envelopeID, status string) error
}

// DocumentService owns the NDA document lifecycle: create the tracking row,
// get the envelope to the provider, and apply webhook-driven transitions.
type DocumentService struct {
	docRepo  repository.DocumentRepositoryInterface
	provider EnvelopeCreator
	archive  storage.DocumentArchive
	events   bookingService.EventPublisher
	now      func() time.Time
}

func NewDocumentService(
	docRepo repository.DocumentRepositoryInterface,
	provider EnvelopeCreator,
	archive storage.DocumentArchive,
	events bookingService.EventPublisher,
) *DocumentService {
	return &DocumentService{
		docRepo:  docRepo,
		provider: provider,
		archive:  archive,
		events:   events,
		now:      time.Now,
	}
}

// InitiateForHold creates the pending document row and tries to get the
// envelope out. A provider failure leaves the row pending; the nda.created
// consumer retries delivery.
func (s *DocumentService) InitiateForHold(ctx context.Context, hold *bookingEntity.SlotHold) error {
	signerName := ""
	if hold.GuestName != nil {
		signerName = *hold.GuestName
	}
	doc, err := s.docRepo.Create(ctx, &entity.Document{
		HoldID:      hold.ID,
		SignerEmail: hold.GuestEmail,
		SignerName:  signerName,
	})
	if err != nil {
		return err
	}
	logger.Info("DocumentService:InitiateForHold:Created", "document_id", doc.ID, "hold_id", hold.ID)

	s.publish(ctx, bus.SubjectNdaCreated, doc.ID.String(), dto.NdaCreatedEvent{
		DocumentID:  doc.ID,
		HoldID:      doc.HoldID,
		SignerEmail: doc.SignerEmail,
	})

	return s.ensureEnvelope(ctx, doc)
}

// EnsureEnvelope makes sure a document for the hold has a provider envelope.
// Used by the retry consumer; idempotent.
func (s *DocumentService) EnsureEnvelope(ctx context.Context, holdID uuid.UUID) error {
	doc, err := s.docRepo.GetByHoldID(ctx, holdID)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	return s.ensureEnvelope(ctx, doc)
}

func (s *DocumentService) ensureEnvelope(ctx context.Context, doc *entity.Document) error {
	if doc.EnvelopeID != nil || doc.Status != entity.DocumentStatusPending {
		return nil
	}
	if !s.provider.Configured() {
		logger.Warn("DocumentService:EnsureEnvelope:ProviderUnconfigured", "document_id", doc.ID)
		return nil
	}

	envelopeID, err := s.provider.CreateEnvelope(ctx, signwell.CreateEnvelopeParams{
		SignerEmail: doc.SignerEmail,
		SignerName:  doc.SignerName,
		HoldID:      doc.HoldID.String(),
		Subject:     "NDA for your upcoming meeting",
	})
	if err != nil {
		return fmt.Errorf("create envelope for document %s: %w", doc.ID, err)
	}

	attached, err := s.docRepo.AttachEnvelope(ctx, doc.ID, envelopeID)
	if err != nil {
		return err
	}
	if attached == nil {
		// Someone else attached first; their envelope stands.
		return nil
	}
	logger.Info("DocumentService:EnsureEnvelope:Sent",
		"document_id", attached.ID, "envelope_id", envelopeID)

	s.publish(ctx, bus.SubjectNdaSent, attached.ID.String(), dto.NdaSentEvent{
		DocumentID: attached.ID,
		HoldID:     attached.HoldID,
		EnvelopeID: envelopeID,
	})
	return nil
}

// OnSent applies the provider's sent notification. A no-op when the document
// already moved past pending.
func (s *DocumentService) OnSent(ctx context.Context, envelopeID string) error {
	doc, err := s.docRepo.MarkSent(ctx, envelopeID)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	s.publish(ctx, bus.SubjectNdaSent, doc.ID.String(), dto.NdaSentEvent{
		DocumentID: doc.ID,
		HoldID:     doc.HoldID,
		EnvelopeID: envelopeID,
	})
	return nil
}

// OnSigned records the signature, archives the provider payload, and
// announces nda.signed.
func (s *DocumentService) OnSigned(ctx context.Context, envelopeID string, payload []byte) error {
	doc, err := s.docRepo.MarkSigned(ctx, envelopeID, payload)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	logger.Info("DocumentService:OnSigned:Success", "document_id", doc.ID, "envelope_id", envelopeID)

	key := fmt.Sprintf("documents/%s/audit.json", doc.ID)
	if err := s.archive.Put(ctx, key, payload, "application/json"); err != nil {
		// The audit payload survives in the documents row either way.
		logger.Warn("DocumentService:OnSigned:Archive:Error", "document_id", doc.ID, "error", err)
	}

	signedAt := s.now()
	if doc.SignedAt != nil {
		signedAt = *doc.SignedAt
	}
	s.publish(ctx, bus.SubjectNdaSigned, doc.ID.String(), dto.NdaSignedEvent{
		DocumentID: doc.ID,
		HoldID:     doc.HoldID,
		EnvelopeID: envelopeID,
		SignedAt:   signedAt,
	})
	return nil
}

// OnClosed applies a terminal provider outcome (expired or revoked).
func (s *DocumentService) OnClosed(ctx context.Context, envelopeID, status string) error {
	doc, err := s.docRepo.MarkTerminal(ctx, envelopeID, status)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	s.publish(ctx, bus.SubjectNdaExpired, doc.ID.String()+":"+status, dto.NdaExpiredEvent{
		DocumentID: doc.ID,
		HoldID:     doc.HoldID,
		EnvelopeID: envelopeID,
		Status:     status,
	})
	return nil
}

func (s *DocumentService) publish(ctx context.Context, subject, key string, data any) {
	err := s.events.PublishWithID(ctx, subject, bookingService.EventID(subject, key), data)
	if err != nil {
		logger.Warn("DocumentService:Publish:Error", "subject", subject, "error", err)
	}
}
