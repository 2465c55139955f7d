package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetbook/core/bus"
	"meetbook/core/errors"
	"meetbook/core/logger"
	"meetbook/modules/booking/dto"
	"meetbook/modules/booking/entity"
	"meetbook/modules/booking/repository"
	mtEntity "meetbook/modules/meetingtype/entity"
)

type ConfirmerInterface interface {
	Confirm(ctx context.Context, mt *mtEntity.MeetingType, req *dto.ConfirmBookingRequest) (*dto.BookingResponse, *errors.AppError)
}

// Confirmer converts an active hold into a durable booking.
type Confirmer struct {
	bookingRepo repository.BookingRepositoryInterface
	holdRepo    repository.HoldRepositoryInterface
	events      EventPublisher
	now         func() time.Time
}

func NewConfirmer(bookingRepo repository.BookingRepositoryInterface, holdRepo repository.HoldRepositoryInterface, events EventPublisher) *Confirmer {
	return &Confirmer{
		bookingRepo: bookingRepo,
		holdRepo:    holdRepo,
		events:      events,
		now:         time.Now,
	}
}

func (s *Confirmer) Confirm(ctx context.Context, mt *mtEntity.MeetingType, req *dto.ConfirmBookingRequest) (*dto.BookingResponse, *errors.AppError) {
	key, err := uuid.Parse(req.IdempotencyKey)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "idempotency_key must be a UUID", nil)
	}
	holdID, err := uuid.Parse(req.HoldID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "hold_id must be a UUID", nil)
	}
	if strings.TrimSpace(req.GuestName) == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "guest_name is required", nil)
	}
	if _, err := time.LoadLocation(req.GuestTimezone); err != nil || req.GuestTimezone == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "guest_timezone must be an IANA zone", nil)
	}

	existing, repoErr := s.bookingRepo.GetByIdempotencyKey(ctx, key)
	if repoErr != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to check idempotency key", nil)
	}
	if existing != nil {
		logger.Info("Confirmer:Confirm:Replay", "booking_id", existing.ID, "idempotency_key", key)
		return toBookingResponse(existing), nil
	}

	hold, repoErr := s.holdRepo.GetByID(ctx, holdID)
	if repoErr != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load hold", nil)
	}
	if hold == nil || hold.MeetingTypeID != mt.ID {
		return nil, errors.NewAppError(errors.ErrNotFound, "Hold not found", nil)
	}

	booking, repoErr := s.bookingRepo.ConfirmFromHold(ctx, repository.ConfirmParams{
		HoldID:         holdID,
		HostID:         mt.OwnerID,
		GuestName:      req.GuestName,
		GuestTimezone:  req.GuestTimezone,
		GuestNotes:     req.GuestNotes,
		IdempotencyKey: key,
		RequireNDA:     mt.RequiresNDA,
		Now:            s.now(),
	})
	if repoErr != nil {
		switch repoErr {
		case repository.ErrHoldNotFound:
			return nil, errors.NewAppError(errors.ErrNotFound, "Hold not found", nil)
		case repository.ErrHoldExpired:
			return nil, errors.NewAppError(errors.ErrHoldExpired, "Hold has expired", nil)
		case repository.ErrNdaNotSigned:
			return nil, errors.NewAppError(errors.ErrNdaRequired, "NDA signature is required before confirming", nil)
		case repository.ErrHoldNotActive, repository.ErrSlotTaken:
			return nil, errors.NewAppError(errors.ErrSlotUnavailable, "Hold is no longer usable for this slot", nil)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to confirm booking", nil)
	}
	logger.Info("Confirmer:Confirm:Success",
		"booking_id", booking.ID, "hold_id", holdID, "meeting_type_id", mt.ID)

	s.publishConfirmed(ctx, booking)
	s.publishConverted(ctx, hold)
	return toBookingResponse(booking), nil
}

func (s *Confirmer) publishConfirmed(ctx context.Context, b *entity.Booking) {
	err := s.events.PublishWithID(ctx, bus.SubjectBookingConfirmed,
		EventID(bus.SubjectBookingConfirmed, b.ID.String()),
		dto.BookingConfirmedEvent{
			BookingID:     b.ID,
			HoldID:        b.HoldID,
			MeetingTypeID: b.MeetingTypeID,
			HostID:        b.HostID,
			SlotStart:     b.SlotStart,
			SlotEnd:       b.SlotEnd,
			GuestEmail:    b.GuestEmail,
			GuestName:     b.GuestName,
		})
	if err != nil {
		logger.Warn("Confirmer:PublishConfirmed:Error", "booking_id", b.ID, "error", err)
	}
}

func (s *Confirmer) publishConverted(ctx context.Context, hold *entity.SlotHold) {
	err := s.events.PublishWithID(ctx, bus.SubjectSlotReleased,
		EventID(bus.SubjectSlotReleased, hold.ID.String()+":"+dto.ReleaseReasonConverted),
		dto.SlotReleasedEvent{
			HoldID:        hold.ID,
			MeetingTypeID: hold.MeetingTypeID,
			SlotStart:     hold.SlotStart,
			SlotEnd:       hold.SlotEnd,
			Reason:        dto.ReleaseReasonConverted,
		})
	if err != nil {
		logger.Warn("Confirmer:PublishConverted:Error", "hold_id", hold.ID, "error", err)
	}
}

func toBookingResponse(b *entity.Booking) *dto.BookingResponse {
	return &dto.BookingResponse{
		ID:            b.ID,
		MeetingTypeID: b.MeetingTypeID,
		SlotStart:     b.SlotStart,
		SlotEnd:       b.SlotEnd,
		GuestEmail:    b.GuestEmail,
		GuestName:     b.GuestName,
		GuestTimezone: b.GuestTimezone,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
	}
}
