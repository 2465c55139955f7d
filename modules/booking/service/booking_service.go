package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meetbook/core/bus"
	"meetbook/core/errors"
	"meetbook/core/logger"
	"meetbook/core/params"
	"meetbook/modules/booking/dto"
	"meetbook/modules/booking/entity"
	"meetbook/modules/booking/repository"
)

type BookingServiceInterface interface {
	ListUpcoming(ctx context.Context, hostID uuid.UUID, p params.QueryParams) ([]dto.BookingResponse, *errors.AppError)
	Cancel(ctx context.Context, hostID, bookingID uuid.UUID) (*dto.BookingResponse, *errors.AppError)
}

// BookingService is the host-facing side of bookings.
type BookingService struct {
	bookingRepo repository.BookingRepositoryInterface
	events      EventPublisher
	now         func() time.Time
}

func NewBookingService(bookingRepo repository.BookingRepositoryInterface, events EventPublisher) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		events:      events,
		now:         time.Now,
	}
}

func (s *BookingService) ListUpcoming(ctx context.Context, hostID uuid.UUID, p params.QueryParams) ([]dto.BookingResponse, *errors.AppError) {
	bookings, err := s.bookingRepo.ListByHost(ctx, hostID, s.now(), p.Normalized())
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list bookings", nil)
	}
	out := make([]dto.BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, *toBookingResponse(&bookings[i]))
	}
	return out, nil
}

func (s *BookingService) Cancel(ctx context.Context, hostID, bookingID uuid.UUID) (*dto.BookingResponse, *errors.AppError) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load booking", nil)
	}
	if booking == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Booking not found", nil)
	}
	if booking.HostID != hostID {
		return nil, errors.NewAppError(errors.ErrForbidden, "Booking belongs to another host", nil)
	}

	canceled, err := s.bookingRepo.Cancel(ctx, bookingID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to cancel booking", nil)
	}
	if canceled == nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Booking is not confirmed", nil)
	}
	logger.Info("BookingService:Cancel:Success", "booking_id", canceled.ID, "host_id", hostID)

	s.publishCanceled(ctx, canceled)
	return toBookingResponse(canceled), nil
}

func (s *BookingService) publishCanceled(ctx context.Context, b *entity.Booking) {
	err := s.events.PublishWithID(ctx, bus.SubjectBookingCanceled,
		EventID(bus.SubjectBookingCanceled, b.ID.String()),
		dto.BookingCanceledEvent{
			BookingID:     b.ID,
			MeetingTypeID: b.MeetingTypeID,
			SlotStart:     b.SlotStart,
			SlotEnd:       b.SlotEnd,
			GuestEmail:    b.GuestEmail,
		})
	if err != nil {
		logger.Warn("BookingService:PublishCanceled:Error", "booking_id", b.ID, "error", err)
	}
}
