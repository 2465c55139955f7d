package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"meetbook/core/bus"
	coreEntity "meetbook/core/entity"
	"meetbook/core/errors"
	"meetbook/modules/booking/dto"
	"meetbook/modules/booking/entity"
	"meetbook/modules/booking/repository"
	mtEntity "meetbook/modules/meetingtype/entity"
)

type publishedEvent struct {
	Subject string
	EventID uuid.UUID
	Data    any
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) PublishWithID(ctx context.Context, subject string, eventID uuid.UUID, data any) error {
	p.events = append(p.events, publishedEvent{Subject: subject, EventID: eventID, Data: data})
	return nil
}

func (p *fakePublisher) bySubject(subject string) []publishedEvent {
	var out []publishedEvent
	for _, e := range p.events {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

type fakeHoldRepo struct {
	holds     map[uuid.UUID]*entity.SlotHold
	takenSlot bool
	dupKey    bool
	// missKeyLookups makes GetByIdempotencyKey miss that many times, to
	// model a row landing between the pre-check and the insert.
	missKeyLookups int
}

func newFakeHoldRepo() *fakeHoldRepo {
	return &fakeHoldRepo{holds: make(map[uuid.UUID]*entity.SlotHold)}
}

func (r *fakeHoldRepo) CreateExclusive(ctx context.Context, hold *entity.SlotHold) (*entity.SlotHold, error) {
	if r.takenSlot {
		return nil, repository.ErrSlotTaken
	}
	if r.dupKey {
		return nil, repository.ErrDuplicateKey
	}
	created := *hold
	created.ID = uuid.New()
	created.Status = entity.HoldStatusActive
	r.holds[created.ID] = &created
	return &created, nil
}

func (r *fakeHoldRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.SlotHold, error) {
	return r.holds[id], nil
}

func (r *fakeHoldRepo) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*entity.SlotHold, error) {
	if r.missKeyLookups > 0 {
		r.missKeyLookups--
		return nil, nil
	}
	for _, h := range r.holds {
		if h.IdempotencyKey == key {
			return h, nil
		}
	}
	return nil, nil
}

func (r *fakeHoldRepo) Release(ctx context.Context, id uuid.UUID) (*entity.SlotHold, error) {
	h, ok := r.holds[id]
	if !ok {
		return nil, repository.ErrHoldNotFound
	}
	if h.Status != entity.HoldStatusActive {
		return nil, repository.ErrHoldNotActive
	}
	h.Status = entity.HoldStatusReleased
	return h, nil
}

func (r *fakeHoldRepo) ExpireDue(ctx context.Context, now time.Time) ([]entity.SlotHold, error) {
	var expired []entity.SlotHold
	for _, h := range r.holds {
		if h.Status == entity.HoldStatusActive && h.ExpiresAt.Before(now) {
			h.Status = entity.HoldStatusExpired
			expired = append(expired, *h)
		}
	}
	return expired, nil
}

type fakeNda struct {
	calls []uuid.UUID
	err   error
}

func (n *fakeNda) InitiateForHold(ctx context.Context, hold *entity.SlotHold) error {
	n.calls = append(n.calls, hold.ID)
	return n.err
}

func testMeetingType(requiresNDA bool) *mtEntity.MeetingType {
	return &mtEntity.MeetingType{
		OwnerID:         uuid.New(),
		Name:            "Intro Call",
		Slug:            "intro-call",
		DurationMinutes: 30,
		RequiresNDA:     requiresNDA,
		Active:          true,
		BaseEntity:      coreEntity.BaseEntity{ID: uuid.New()},
	}
}

func newTestHoldManager(repo repository.HoldRepositoryInterface, pub *fakePublisher, nda NdaInitiator, now time.Time) *HoldManager {
	m := NewHoldManager(repo, pub, nda)
	m.now = func() time.Time { return now }
	return m
}

func TestCreateHoldSuccess(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	repo := newFakeHoldRepo()
	pub := &fakePublisher{}
	mgr := newTestHoldManager(repo, pub, nil, now)
	mt := testMeetingType(false)

	resp, replayed, appErr := mgr.CreateHold(context.Background(), mt, &dto.CreateHoldRequest{
		SlotStart:      now.Add(3 * time.Hour),
		GuestEmail:     "guest@example.com",
		IdempotencyKey: uuid.NewString(),
	})
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if replayed {
		t.Error("fresh hold must not be reported as replay")
	}
	if got := resp.SlotEnd.Sub(resp.SlotStart); got != 30*time.Minute {
		t.Errorf("slot length = %v, want 30m", got)
	}
	if got := resp.ExpiresAt.Sub(now); got != 15*time.Minute {
		t.Errorf("hold TTL = %v, want 15m", got)
	}
	if held := pub.bySubject(bus.SubjectSlotHeld); len(held) != 1 {
		t.Errorf("expected 1 slot.held event, got %d", len(held))
	}
}

func TestCreateHoldIdempotentReplay(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	repo := newFakeHoldRepo()
	pub := &fakePublisher{}
	mgr := newTestHoldManager(repo, pub, nil, now)
	mt := testMeetingType(false)

	req := &dto.CreateHoldRequest{
		SlotStart:      now.Add(3 * time.Hour),
		GuestEmail:     "guest@example.com",
		IdempotencyKey: uuid.NewString(),
	}
	first, _, appErr := mgr.CreateHold(context.Background(), mt, req)
	if appErr != nil {
		t.Fatalf("first create: %v", appErr)
	}
	second, replayed, appErr := mgr.CreateHold(context.Background(), mt, req)
	if appErr != nil {
		t.Fatalf("replay create: %v", appErr)
	}
	if !replayed {
		t.Error("second create with same key must be a replay")
	}
	if first.ID != second.ID {
		t.Errorf("replay returned a different hold: %s vs %s", first.ID, second.ID)
	}
	if len(repo.holds) != 1 {
		t.Errorf("expected exactly 1 stored hold, got %d", len(repo.holds))
	}
}

func TestCreateHoldDeadKeyFails(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	repo := newFakeHoldRepo()
	pub := &fakePublisher{}
	mgr := newTestHoldManager(repo, pub, nil, now)
	mt := testMeetingType(false)

	req := &dto.CreateHoldRequest{
		SlotStart:      now.Add(3 * time.Hour),
		GuestEmail:     "guest@example.com",
		IdempotencyKey: uuid.NewString(),
	}
	created, _, appErr := mgr.CreateHold(context.Background(), mt, req)
	if appErr != nil {
		t.Fatalf("create: %v", appErr)
	}
	repo.holds[created.ID].Status = entity.HoldStatusExpired

	_, _, appErr = mgr.CreateHold(context.Background(), mt, req)
	if appErr == nil || appErr.Code != errors.ErrSlotUnavailable {
		t.Fatalf("expected SlotUnavailable for a dead idempotency key, got %v", appErr)
	}
}

func TestCreateHoldSlotTaken(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	repo := newFakeHoldRepo()
	repo.takenSlot = true
	mgr := newTestHoldManager(repo, &fakePublisher{}, nil, now)
	mt := testMeetingType(false)

	_, _, appErr := mgr.CreateHold(context.Background(), mt, &dto.CreateHoldRequest{
		SlotStart:      now.Add(3 * time.Hour),
		GuestEmail:     "guest@example.com",
		IdempotencyKey: uuid.NewString(),
	})
	if appErr == nil || appErr.Code != errors.ErrSlotUnavailable {
		t.Fatalf("expected SlotUnavailable, got %v", appErr)
	}
}

func TestCreateHoldLostInsertRaceReplaysWinner(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	repo := newFakeHoldRepo()
	pub := &fakePublisher{}
	mgr := newTestHoldManager(repo, pub, nil, now)
	mt := testMeetingType(false)

	// The winner's row lands between this call's idempotency pre-check and
	// its insert, so the pre-check misses and the insert trips the unique
	// key; the loser must replay the winner instead of failing.
	key := uuid.New()
	winner := &entity.SlotHold{
		ID:             uuid.New(),
		MeetingTypeID:  mt.ID,
		SlotStart:      now.Add(3 * time.Hour),
		SlotEnd:        now.Add(3*time.Hour + 30*time.Minute),
		Status:         entity.HoldStatusActive,
		ExpiresAt:      now.Add(15 * time.Minute),
		IdempotencyKey: key,
	}
	repo.holds[winner.ID] = winner
	repo.dupKey = true
	repo.missKeyLookups = 1

	req := &dto.CreateHoldRequest{
		SlotStart:      winner.SlotStart,
		GuestEmail:     "guest@example.com",
		IdempotencyKey: key.String(),
	}
	resp, replayed, appErr := mgr.CreateHold(context.Background(), mt, req)
	if appErr != nil {
		t.Fatalf("lost race must replay, got %v", appErr)
	}
	if !replayed {
		t.Error("lost race must be reported as a replay")
	}
	if resp.ID != winner.ID {
		t.Errorf("replayed hold = %s, want winner %s", resp.ID, winner.ID)
	}
	if held := pub.bySubject(bus.SubjectSlotHeld); len(held) != 0 {
		t.Errorf("loser must not emit slot.held, got %d", len(held))
	}

	// A winner that already expired is a dead key, not a replay.
	winner.Status = entity.HoldStatusExpired
	repo.missKeyLookups = 1
	_, _, appErr = mgr.CreateHold(context.Background(), mt, req)
	if appErr == nil || appErr.Code != errors.ErrSlotUnavailable {
		t.Fatalf("expected SlotUnavailable for a dead winner, got %v", appErr)
	}
}

func TestCreateHoldValidation(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	mgr := newTestHoldManager(newFakeHoldRepo(), &fakePublisher{}, nil, now)
	mt := testMeetingType(false)

	tests := []struct {
		name string
		req  dto.CreateHoldRequest
	}{
		{"bad key", dto.CreateHoldRequest{SlotStart: now.Add(time.Hour), GuestEmail: "g@x.com", IdempotencyKey: "nope"}},
		{"missing email", dto.CreateHoldRequest{SlotStart: now.Add(time.Hour), IdempotencyKey: uuid.NewString()}},
		{"past slot", dto.CreateHoldRequest{SlotStart: now.Add(-time.Hour), GuestEmail: "g@x.com", IdempotencyKey: uuid.NewString()}},
		{"slot_end off the duration grid", dto.CreateHoldRequest{
			SlotStart:      now.Add(time.Hour),
			SlotEnd:        timePtr(now.Add(time.Hour + 45*time.Minute)),
			GuestEmail:     "g@x.com",
			IdempotencyKey: uuid.NewString(),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, appErr := mgr.CreateHold(context.Background(), mt, &tt.req)
			if appErr == nil || appErr.Code != errors.ErrInvalidInput {
				t.Fatalf("expected InvalidInput, got %v", appErr)
			}
		})
	}
}

func TestCreateHoldInitiatesNda(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	repo := newFakeHoldRepo()
	nda := &fakeNda{}
	mgr := newTestHoldManager(repo, &fakePublisher{}, nda, now)
	mt := testMeetingType(true)

	resp, _, appErr := mgr.CreateHold(context.Background(), mt, &dto.CreateHoldRequest{
		SlotStart:      now.Add(3 * time.Hour),
		GuestEmail:     "guest@example.com",
		IdempotencyKey: uuid.NewString(),
	})
	if appErr != nil {
		t.Fatalf("create: %v", appErr)
	}
	if !resp.NdaRequired {
		t.Error("response must flag the NDA requirement")
	}
	if len(nda.calls) != 1 {
		t.Fatalf("expected 1 NDA initiation, got %d", len(nda.calls))
	}
}

func TestReleaseHoldEmitsCanceled(t *testing.T) {
	now := time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)
	repo := newFakeHoldRepo()
	pub := &fakePublisher{}
	mgr := newTestHoldManager(repo, pub, nil, now)
	mt := testMeetingType(false)

	created, _, appErr := mgr.CreateHold(context.Background(), mt, &dto.CreateHoldRequest{
		SlotStart:      now.Add(3 * time.Hour),
		GuestEmail:     "guest@example.com",
		IdempotencyKey: uuid.NewString(),
	})
	if appErr != nil {
		t.Fatalf("create: %v", appErr)
	}

	if appErr := mgr.ReleaseHold(context.Background(), mt, created.ID); appErr != nil {
		t.Fatalf("release: %v", appErr)
	}

	released := pub.bySubject(bus.SubjectSlotReleased)
	if len(released) != 1 {
		t.Fatalf("expected 1 slot.released event, got %d", len(released))
	}
	event, ok := released[0].Data.(dto.SlotReleasedEvent)
	if !ok {
		t.Fatalf("unexpected event payload type %T", released[0].Data)
	}
	if event.Reason != dto.ReleaseReasonCanceled {
		t.Errorf("reason = %q, want %q", event.Reason, dto.ReleaseReasonCanceled)
	}

	// Releasing again is a state error, not a crash.
	if appErr := mgr.ReleaseHold(context.Background(), mt, created.ID); appErr == nil || appErr.Code != errors.ErrInvalidInput {
		t.Fatalf("expected InvalidInput on double release, got %v", appErr)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestEventIDDeterministic(t *testing.T) {
	a := EventID(bus.SubjectSlotHeld, "k1")
	b := EventID(bus.SubjectSlotHeld, "k1")
	c := EventID(bus.SubjectSlotReleased, "k1")
	if a != b {
		t.Error("same subject and key must map to the same event id")
	}
	if a == c {
		t.Error("different subjects must map to different event ids")
	}
}
