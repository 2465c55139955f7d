package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"meetbook/core/bus"
	"meetbook/core/errors"
	"meetbook/core/params"
	"meetbook/modules/booking/dto"
	"meetbook/modules/booking/entity"
	"meetbook/modules/booking/repository"
)

type fakeBookingRepo struct {
	holdRepo   *fakeHoldRepo
	bookings   map[uuid.UUID]*entity.Booking
	confirmErr error
}

func newFakeBookingRepo(holds *fakeHoldRepo) *fakeBookingRepo {
	return &fakeBookingRepo{holdRepo: holds, bookings: make(map[uuid.UUID]*entity.Booking)}
}

func (r *fakeBookingRepo) ConfirmFromHold(ctx context.Context, p repository.ConfirmParams) (*entity.Booking, error) {
	if r.confirmErr != nil {
		return nil, r.confirmErr
	}
	hold, ok := r.holdRepo.holds[p.HoldID]
	if !ok {
		return nil, repository.ErrHoldNotFound
	}
	switch hold.Status {
	case entity.HoldStatusActive:
	case entity.HoldStatusExpired:
		return nil, repository.ErrHoldExpired
	default:
		return nil, repository.ErrHoldNotActive
	}
	if !hold.ExpiresAt.After(p.Now) {
		hold.Status = entity.HoldStatusExpired
		return nil, repository.ErrHoldExpired
	}
	hold.Status = entity.HoldStatusConverted
	booking := &entity.Booking{
		ID:             uuid.New(),
		MeetingTypeID:  hold.MeetingTypeID,
		HostID:         p.HostID,
		SlotStart:      hold.SlotStart,
		SlotEnd:        hold.SlotEnd,
		GuestEmail:     hold.GuestEmail,
		GuestName:      p.GuestName,
		GuestTimezone:  p.GuestTimezone,
		Status:         entity.BookingStatusConfirmed,
		IdempotencyKey: p.IdempotencyKey,
		HoldID:         hold.ID,
	}
	r.bookings[booking.ID] = booking
	return booking, nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.bookings[id], nil
}

func (r *fakeBookingRepo) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*entity.Booking, error) {
	for _, b := range r.bookings {
		if b.IdempotencyKey == key {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) ListByHost(ctx context.Context, hostID uuid.UUID, from time.Time, p params.QueryParams) ([]entity.Booking, error) {
	var out []entity.Booking
	for _, b := range r.bookings {
		if b.HostID == hostID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) Cancel(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	b, ok := r.bookings[id]
	if !ok || b.Status != entity.BookingStatusConfirmed {
		return nil, nil
	}
	b.Status = entity.BookingStatusCanceled
	return b, nil
}

func activeHold(repo *fakeHoldRepo, meetingTypeID uuid.UUID, now time.Time) *entity.SlotHold {
	hold := &entity.SlotHold{
		ID:             uuid.New(),
		MeetingTypeID:  meetingTypeID,
		SlotStart:      now.Add(3 * time.Hour),
		SlotEnd:        now.Add(3*time.Hour + 30*time.Minute),
		GuestEmail:     "guest@example.com",
		Status:         entity.HoldStatusActive,
		ExpiresAt:      now.Add(10 * time.Minute),
		IdempotencyKey: uuid.New(),
	}
	repo.holds[hold.ID] = hold
	return hold
}

func newTestConfirmer(bookings *fakeBookingRepo, holds *fakeHoldRepo, pub *fakePublisher, now time.Time) *Confirmer {
	c := NewConfirmer(bookings, holds, pub)
	c.now = func() time.Time { return now }
	return c
}

func confirmReq(holdID uuid.UUID) *dto.ConfirmBookingRequest {
	return &dto.ConfirmBookingRequest{
		HoldID:         holdID.String(),
		GuestName:      "Ada Lovelace",
		GuestTimezone:  "Europe/London",
		IdempotencyKey: uuid.NewString(),
	}
}

func TestConfirmSuccess(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	holds := newFakeHoldRepo()
	bookings := newFakeBookingRepo(holds)
	pub := &fakePublisher{}
	mt := testMeetingType(false)
	hold := activeHold(holds, mt.ID, now)
	confirmer := newTestConfirmer(bookings, holds, pub, now)

	resp, appErr := confirmer.Confirm(context.Background(), mt, confirmReq(hold.ID))
	if appErr != nil {
		t.Fatalf("confirm: %v", appErr)
	}
	if resp.Status != entity.BookingStatusConfirmed {
		t.Errorf("status = %q, want confirmed", resp.Status)
	}
	if holds.holds[hold.ID].Status != entity.HoldStatusConverted {
		t.Error("hold must transition to converted")
	}

	if got := pub.bySubject(bus.SubjectBookingConfirmed); len(got) != 1 {
		t.Errorf("expected 1 booking.confirmed event, got %d", len(got))
	}
	released := pub.bySubject(bus.SubjectSlotReleased)
	if len(released) != 1 {
		t.Fatalf("expected 1 slot.released event, got %d", len(released))
	}
	if event := released[0].Data.(dto.SlotReleasedEvent); event.Reason != dto.ReleaseReasonConverted {
		t.Errorf("release reason = %q, want converted", event.Reason)
	}
}

func TestConfirmIdempotentReplay(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	holds := newFakeHoldRepo()
	bookings := newFakeBookingRepo(holds)
	pub := &fakePublisher{}
	mt := testMeetingType(false)
	hold := activeHold(holds, mt.ID, now)
	confirmer := newTestConfirmer(bookings, holds, pub, now)

	req := confirmReq(hold.ID)
	first, appErr := confirmer.Confirm(context.Background(), mt, req)
	if appErr != nil {
		t.Fatalf("first confirm: %v", appErr)
	}
	second, appErr := confirmer.Confirm(context.Background(), mt, req)
	if appErr != nil {
		t.Fatalf("replay confirm: %v", appErr)
	}
	if first.ID != second.ID {
		t.Errorf("replay returned a different booking: %s vs %s", first.ID, second.ID)
	}
	if len(bookings.bookings) != 1 {
		t.Errorf("expected exactly 1 booking, got %d", len(bookings.bookings))
	}
}

func TestConfirmExpiredHold(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	holds := newFakeHoldRepo()
	bookings := newFakeBookingRepo(holds)
	mt := testMeetingType(false)
	hold := activeHold(holds, mt.ID, now)
	hold.ExpiresAt = now.Add(-time.Minute)
	confirmer := newTestConfirmer(bookings, holds, &fakePublisher{}, now)

	_, appErr := confirmer.Confirm(context.Background(), mt, confirmReq(hold.ID))
	if appErr == nil || appErr.Code != errors.ErrHoldExpired {
		t.Fatalf("expected HoldExpired, got %v", appErr)
	}
	if holds.holds[hold.ID].Status != entity.HoldStatusExpired {
		t.Error("overdue hold must land in expired even when confirm beats the sweeper")
	}
}

func TestConfirmNdaGating(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	holds := newFakeHoldRepo()
	bookings := newFakeBookingRepo(holds)
	bookings.confirmErr = repository.ErrNdaNotSigned
	mt := testMeetingType(true)
	hold := activeHold(holds, mt.ID, now)
	confirmer := newTestConfirmer(bookings, holds, &fakePublisher{}, now)

	_, appErr := confirmer.Confirm(context.Background(), mt, confirmReq(hold.ID))
	if appErr == nil || appErr.Code != errors.ErrNdaRequired {
		t.Fatalf("expected NdaRequired, got %v", appErr)
	}
}

func TestConfirmWrongMeetingType(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	holds := newFakeHoldRepo()
	bookings := newFakeBookingRepo(holds)
	mt := testMeetingType(false)
	other := testMeetingType(false)
	hold := activeHold(holds, other.ID, now)
	confirmer := newTestConfirmer(bookings, holds, &fakePublisher{}, now)

	_, appErr := confirmer.Confirm(context.Background(), mt, confirmReq(hold.ID))
	if appErr == nil || appErr.Code != errors.ErrNotFound {
		t.Fatalf("expected NotFound for a hold on another type, got %v", appErr)
	}
}

func TestConfirmValidation(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	holds := newFakeHoldRepo()
	mt := testMeetingType(false)
	hold := activeHold(holds, mt.ID, now)
	confirmer := newTestConfirmer(newFakeBookingRepo(holds), holds, &fakePublisher{}, now)

	tests := []struct {
		name   string
		mutate func(*dto.ConfirmBookingRequest)
	}{
		{"bad hold id", func(r *dto.ConfirmBookingRequest) { r.HoldID = "nope" }},
		{"bad key", func(r *dto.ConfirmBookingRequest) { r.IdempotencyKey = "nope" }},
		{"empty name", func(r *dto.ConfirmBookingRequest) { r.GuestName = "  " }},
		{"bad timezone", func(r *dto.ConfirmBookingRequest) { r.GuestTimezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := confirmReq(hold.ID)
			tt.mutate(req)
			_, appErr := confirmer.Confirm(context.Background(), mt, req)
			if appErr == nil || appErr.Code != errors.ErrInvalidInput {
				t.Fatalf("expected InvalidInput, got %v", appErr)
			}
		})
	}
}

func TestSweeperEmitsOnlyTransitioned(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	holds := newFakeHoldRepo()
	pub := &fakePublisher{}
	mt := testMeetingType(false)

	overdue := activeHold(holds, mt.ID, now)
	overdue.ExpiresAt = now.Add(-time.Minute)
	live := activeHold(holds, mt.ID, now)
	live.ExpiresAt = now.Add(10 * time.Minute)

	sweeper := NewSweeper(holds, pub)
	sweeper.now = func() time.Time { return now }

	sweeper.Sweep(context.Background())

	released := pub.bySubject(bus.SubjectSlotReleased)
	if len(released) != 1 {
		t.Fatalf("expected 1 slot.released event, got %d", len(released))
	}
	event := released[0].Data.(dto.SlotReleasedEvent)
	if event.HoldID != overdue.ID || event.Reason != dto.ReleaseReasonExpired {
		t.Errorf("unexpected event %+v", event)
	}
	if holds.holds[live.ID].Status != entity.HoldStatusActive {
		t.Error("live hold must stay active")
	}

	// A second pass finds nothing to transition and emits nothing.
	sweeper.Sweep(context.Background())
	if got := pub.bySubject(bus.SubjectSlotReleased); len(got) != 1 {
		t.Errorf("second sweep must not re-emit, got %d events", len(got))
	}
}

func TestBookingCancel(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	holds := newFakeHoldRepo()
	bookings := newFakeBookingRepo(holds)
	pub := &fakePublisher{}
	mt := testMeetingType(false)
	hold := activeHold(holds, mt.ID, now)
	confirmer := newTestConfirmer(bookings, holds, &fakePublisher{}, now)

	booked, appErr := confirmer.Confirm(context.Background(), mt, confirmReq(hold.ID))
	if appErr != nil {
		t.Fatalf("confirm: %v", appErr)
	}

	svc := NewBookingService(bookings, pub)
	svc.now = func() time.Time { return now }

	if _, appErr := svc.Cancel(context.Background(), uuid.New(), booked.ID); appErr == nil || appErr.Code != errors.ErrForbidden {
		t.Fatalf("expected Forbidden for another host, got %v", appErr)
	}

	canceled, appErr := svc.Cancel(context.Background(), mt.OwnerID, booked.ID)
	if appErr != nil {
		t.Fatalf("cancel: %v", appErr)
	}
	if canceled.Status != entity.BookingStatusCanceled {
		t.Errorf("status = %q, want canceled", canceled.Status)
	}
	if got := pub.bySubject(bus.SubjectBookingCanceled); len(got) != 1 {
		t.Errorf("expected 1 booking.canceled event, got %d", len(got))
	}

	if _, appErr := svc.Cancel(context.Background(), mt.OwnerID, booked.ID); appErr == nil || appErr.Code != errors.ErrInvalidInput {
		t.Fatalf("expected InvalidInput on double cancel, got %v", appErr)
	}
}
