package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetbook/core/bus"
	"meetbook/core/constants"
	"meetbook/core/errors"
	"meetbook/core/logger"
	"meetbook/modules/booking/dto"
	"meetbook/modules/booking/entity"
	"meetbook/modules/booking/repository"
	mtEntity "meetbook/modules/meetingtype/entity"
)

// EventPublisher is the slice of the bus the booking services need.
type EventPublisher interface {
	PublishWithID(ctx context.Context, subject string, eventID uuid.UUID, data any) error
}

// NdaInitiator kicks off signature collection for a hold. Implemented by the
// document module; failures must not fail the hold.
type NdaInitiator interface {
	InitiateForHold(ctx context.Context, hold *entity.SlotHold) error
}

type HoldManagerInterface interface {
	CreateHold(ctx context.Context, mt *mtEntity.MeetingType, req *dto.CreateHoldRequest) (*dto.HoldResponse, bool, *errors.AppError)
	GetHold(ctx context.Context, mt *mtEntity.MeetingType, holdID uuid.UUID) (*dto.HoldResponse, *errors.AppError)
	ReleaseHold(ctx context.Context, mt *mtEntity.MeetingType, holdID uuid.UUID) *errors.AppError
}

// HoldManager owns the hold lifecycle up to (but not including) conversion.
type HoldManager struct {
	holdRepo repository.HoldRepositoryInterface
	events   EventPublisher
	nda      NdaInitiator
	now      func() time.Time
}

func NewHoldManager(holdRepo repository.HoldRepositoryInterface, events EventPublisher, nda NdaInitiator) *HoldManager {
	return &HoldManager{
		holdRepo: holdRepo,
		events:   events,
		nda:      nda,
		now:      time.Now,
	}
}

// CreateHold places an exclusive hold on one slot. The bool result reports
// whether the hold already existed for the idempotency key (replay).
func (s *HoldManager) CreateHold(ctx context.Context, mt *mtEntity.MeetingType, req *dto.CreateHoldRequest) (*dto.HoldResponse, bool, *errors.AppError) {
	key, err := uuid.Parse(req.IdempotencyKey)
	if err != nil {
		return nil, false, errors.NewAppError(errors.ErrInvalidInput, "idempotency_key must be a UUID", nil)
	}
	if !strings.Contains(req.GuestEmail, "@") {
		return nil, false, errors.NewAppError(errors.ErrInvalidInput, "guest_email is required", nil)
	}
	now := s.now()
	if req.SlotStart.IsZero() || !req.SlotStart.After(now) {
		return nil, false, errors.NewAppError(errors.ErrInvalidInput, "slot_start must be in the future", nil)
	}
	slotEnd := req.SlotStart.UTC().Add(time.Duration(mt.DurationMinutes) * time.Minute)
	if req.SlotEnd != nil && !req.SlotEnd.UTC().Equal(slotEnd) {
		return nil, false, errors.NewAppError(errors.ErrInvalidInput, "slot_end does not match the meeting duration", nil)
	}

	existing, repoErr := s.holdRepo.GetByIdempotencyKey(ctx, key)
	if repoErr != nil {
		return nil, false, errors.NewAppError(errors.ErrInternalServer, "Failed to check idempotency key", nil)
	}
	if existing != nil {
		if !existing.ActiveAt(now) {
			return nil, false, errors.NewAppError(errors.ErrSlotUnavailable,
				"Previous hold for this key is no longer active", nil)
		}
		logger.Info("HoldManager:CreateHold:Replay", "hold_id", existing.ID, "idempotency_key", key)
		return s.toResponse(existing, mt), true, nil
	}

	hold := &entity.SlotHold{
		MeetingTypeID:  mt.ID,
		SlotStart:      req.SlotStart.UTC(),
		SlotEnd:        slotEnd,
		GuestEmail:     req.GuestEmail,
		GuestName:      req.GuestName,
		ExpiresAt:      now.Add(constants.HoldTTL),
		IdempotencyKey: key,
	}

	created, repoErr := s.holdRepo.CreateExclusive(ctx, hold)
	if repoErr != nil {
		if repoErr == repository.ErrSlotTaken {
			return nil, false, errors.NewAppError(errors.ErrSlotUnavailable, "Slot is no longer available", nil)
		}
		// Lost an insert race against the same key; replay the winner.
		if repoErr == repository.ErrDuplicateKey {
			return s.replayWinner(ctx, mt, key, now)
		}
		return nil, false, errors.NewAppError(errors.ErrInternalServer, "Failed to create hold", nil)
	}
	logger.Info("HoldManager:CreateHold:Success",
		"hold_id", created.ID, "meeting_type_id", mt.ID,
		"slot_start", created.SlotStart, "expires_at", created.ExpiresAt)

	if mt.RequiresNDA && s.nda != nil {
		// Signature collection is best-effort here; the document module
		// retries delivery and confirm still gates on the signed state.
		if err := s.nda.InitiateForHold(ctx, created); err != nil {
			logger.Warn("HoldManager:CreateHold:NdaInitiate:Error", "hold_id", created.ID, "error", err)
		}
	}

	s.publishHeld(ctx, created)
	return s.toResponse(created, mt), false, nil
}

// replayWinner resolves a lost same-key insert race by returning the hold
// the concurrent winner created.
func (s *HoldManager) replayWinner(ctx context.Context, mt *mtEntity.MeetingType, key uuid.UUID, now time.Time) (*dto.HoldResponse, bool, *errors.AppError) {
	winner, err := s.holdRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, false, errors.NewAppError(errors.ErrInternalServer, "Failed to create hold", nil)
	}
	if winner == nil || !winner.ActiveAt(now) {
		return nil, false, errors.NewAppError(errors.ErrSlotUnavailable,
			"Previous hold for this key is no longer active", nil)
	}
	logger.Info("HoldManager:CreateHold:Replay", "hold_id", winner.ID, "idempotency_key", key)
	return s.toResponse(winner, mt), true, nil
}

func (s *HoldManager) GetHold(ctx context.Context, mt *mtEntity.MeetingType, holdID uuid.UUID) (*dto.HoldResponse, *errors.AppError) {
	hold, err := s.holdRepo.GetByID(ctx, holdID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load hold", nil)
	}
	if hold == nil || hold.MeetingTypeID != mt.ID {
		return nil, errors.NewAppError(errors.ErrNotFound, "Hold not found", nil)
	}
	return s.toResponse(hold, mt), nil
}

func (s *HoldManager) ReleaseHold(ctx context.Context, mt *mtEntity.MeetingType, holdID uuid.UUID) *errors.AppError {
	hold, err := s.holdRepo.GetByID(ctx, holdID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to load hold", nil)
	}
	if hold == nil || hold.MeetingTypeID != mt.ID {
		return errors.NewAppError(errors.ErrNotFound, "Hold not found", nil)
	}

	released, err := s.holdRepo.Release(ctx, holdID)
	if err != nil {
		switch err {
		case repository.ErrHoldNotFound:
			return errors.NewAppError(errors.ErrNotFound, "Hold not found", nil)
		case repository.ErrHoldNotActive:
			return errors.NewAppError(errors.ErrInvalidInput, "Hold is not active", nil)
		}
		return errors.NewAppError(errors.ErrInternalServer, "Failed to release hold", nil)
	}
	logger.Info("HoldManager:ReleaseHold:Success", "hold_id", released.ID)

	s.publishReleased(ctx, released, dto.ReleaseReasonCanceled)
	return nil
}

func (s *HoldManager) publishHeld(ctx context.Context, hold *entity.SlotHold) {
	err := s.events.PublishWithID(ctx, bus.SubjectSlotHeld, EventID(bus.SubjectSlotHeld, hold.ID.String()),
		dto.SlotHeldEvent{
			HoldID:        hold.ID,
			MeetingTypeID: hold.MeetingTypeID,
			SlotStart:     hold.SlotStart,
			SlotEnd:       hold.SlotEnd,
			ExpiresAt:     hold.ExpiresAt,
		})
	if err != nil {
		logger.Warn("HoldManager:PublishHeld:Error", "hold_id", hold.ID, "error", err)
	}
}

func (s *HoldManager) publishReleased(ctx context.Context, hold *entity.SlotHold, reason string) {
	err := s.events.PublishWithID(ctx, bus.SubjectSlotReleased,
		EventID(bus.SubjectSlotReleased, hold.ID.String()+":"+reason),
		dto.SlotReleasedEvent{
			HoldID:        hold.ID,
			MeetingTypeID: hold.MeetingTypeID,
			SlotStart:     hold.SlotStart,
			SlotEnd:       hold.SlotEnd,
			Reason:        reason,
		})
	if err != nil {
		logger.Warn("HoldManager:PublishReleased:Error", "hold_id", hold.ID, "error", err)
	}
}

func (s *HoldManager) toResponse(hold *entity.SlotHold, mt *mtEntity.MeetingType) *dto.HoldResponse {
	status := hold.Status
	if status == entity.HoldStatusActive && !hold.ExpiresAt.After(s.now()) {
		status = entity.HoldStatusExpired
	}
	return &dto.HoldResponse{
		ID:            hold.ID,
		MeetingTypeID: hold.MeetingTypeID,
		SlotStart:     hold.SlotStart,
		SlotEnd:       hold.SlotEnd,
		Status:        status,
		ExpiresAt:     hold.ExpiresAt,
		NdaRequired:   mt.RequiresNDA,
	}
}

// EventID derives a stable event id from a subject-scoped key, so retried
// publishes of the same fact deduplicate on the bus.
func EventID(subject, key string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(subject+":"+key))
}
