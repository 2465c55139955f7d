package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"meetbook/core/bus"
	coreEntity "meetbook/core/entity"
	"meetbook/core/errors"
	"meetbook/modules/meetingtype/dto"
	"meetbook/modules/meetingtype/entity"
	"meetbook/modules/meetingtype/repository"
)

type fakeMeetingTypeRepo struct {
	types    map[uuid.UUID]*entity.MeetingType
	released []repository.ReleasedHold
}

func newFakeMeetingTypeRepo() *fakeMeetingTypeRepo {
	return &fakeMeetingTypeRepo{types: make(map[uuid.UUID]*entity.MeetingType)}
}

func (r *fakeMeetingTypeRepo) Create(ctx context.Context, mt *entity.MeetingType) (*entity.MeetingType, error) {
	created := *mt
	created.ID = uuid.New()
	created.Active = true
	r.types[created.ID] = &created
	return &created, nil
}

func (r *fakeMeetingTypeRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.MeetingType, error) {
	return r.types[id], nil
}

func (r *fakeMeetingTypeRepo) GetBySlug(ctx context.Context, s string) (*entity.MeetingType, error) {
	for _, mt := range r.types {
		if mt.Slug == s {
			return mt, nil
		}
	}
	return nil, nil
}

func (r *fakeMeetingTypeRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.MeetingType, error) {
	var out []entity.MeetingType
	for _, mt := range r.types {
		if mt.OwnerID == ownerID {
			out = append(out, *mt)
		}
	}
	return out, nil
}

func (r *fakeMeetingTypeRepo) SlugExists(ctx context.Context, ownerID uuid.UUID, s string) (bool, error) {
	for _, mt := range r.types {
		if mt.OwnerID == ownerID && mt.Slug == s {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMeetingTypeRepo) Update(ctx context.Context, mt *entity.MeetingType) error {
	r.types[mt.ID] = mt
	return nil
}

func (r *fakeMeetingTypeRepo) ReleaseActiveHolds(ctx context.Context, meetingTypeID uuid.UUID) ([]repository.ReleasedHold, error) {
	out := r.released
	r.released = nil
	return out, nil
}

type recordingPublisher struct {
	subjects []string
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, data any) error {
	p.subjects = append(p.subjects, subject)
	return nil
}

func TestCreateGeneratesUniqueSlug(t *testing.T) {
	repo := newFakeMeetingTypeRepo()
	svc := NewMeetingTypeService(repo, &recordingPublisher{})
	ownerID := uuid.New()

	first, appErr := svc.Create(context.Background(), ownerID, &dto.CreateMeetingTypeRequest{
		Name:            "Intro Call",
		DurationMinutes: 30,
	})
	if appErr != nil {
		t.Fatalf("create: %v", appErr)
	}
	if first.Slug != "intro-call" {
		t.Errorf("slug = %q, want intro-call", first.Slug)
	}

	second, appErr := svc.Create(context.Background(), ownerID, &dto.CreateMeetingTypeRequest{
		Name:            "Intro Call",
		DurationMinutes: 30,
	})
	if appErr != nil {
		t.Fatalf("create duplicate name: %v", appErr)
	}
	if second.Slug == first.Slug {
		t.Error("colliding names must get distinct slugs")
	}
	if len(second.Slug) <= len(first.Slug) {
		t.Errorf("second slug %q should carry a suffix", second.Slug)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewMeetingTypeService(newFakeMeetingTypeRepo(), &recordingPublisher{})
	ownerID := uuid.New()

	tests := []struct {
		name string
		req  dto.CreateMeetingTypeRequest
	}{
		{"empty name", dto.CreateMeetingTypeRequest{DurationMinutes: 30}},
		{"zero duration", dto.CreateMeetingTypeRequest{Name: "X"}},
		{"negative buffer", dto.CreateMeetingTypeRequest{Name: "X", DurationMinutes: 30, BufferBeforeMinutes: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, appErr := svc.Create(context.Background(), ownerID, &tt.req); appErr == nil || appErr.Code != errors.ErrInvalidInput {
				t.Fatalf("expected InvalidInput, got %v", appErr)
			}
		})
	}
}

func TestUpdateTimingChangeReleasesHolds(t *testing.T) {
	repo := newFakeMeetingTypeRepo()
	pub := &recordingPublisher{}
	svc := NewMeetingTypeService(repo, pub)
	ownerID := uuid.New()

	mt := &entity.MeetingType{
		OwnerID:         ownerID,
		Name:            "Intro Call",
		Slug:            "intro-call",
		DurationMinutes: 30,
		Active:          true,
		BaseEntity:      coreEntity.BaseEntity{ID: uuid.New()},
	}
	repo.types[mt.ID] = mt
	repo.released = []repository.ReleasedHold{
		{ID: uuid.New(), SlotStart: time.Now(), SlotEnd: time.Now().Add(30 * time.Minute)},
	}

	newDuration := 45
	if _, appErr := svc.Update(context.Background(), ownerID, mt.ID, &dto.UpdateMeetingTypeRequest{
		DurationMinutes: &newDuration,
	}); appErr != nil {
		t.Fatalf("update: %v", appErr)
	}

	if len(pub.subjects) != 1 || pub.subjects[0] != bus.SubjectSlotReleased {
		t.Errorf("expected one slot.released publish, got %v", pub.subjects)
	}
}

func TestUpdateNameOnlyKeepsHolds(t *testing.T) {
	repo := newFakeMeetingTypeRepo()
	pub := &recordingPublisher{}
	svc := NewMeetingTypeService(repo, pub)
	ownerID := uuid.New()

	mt := &entity.MeetingType{
		OwnerID:         ownerID,
		Name:            "Intro Call",
		Slug:            "intro-call",
		DurationMinutes: 30,
		Active:          true,
		BaseEntity:      coreEntity.BaseEntity{ID: uuid.New()},
	}
	repo.types[mt.ID] = mt

	name := "Discovery Call"
	if _, appErr := svc.Update(context.Background(), ownerID, mt.ID, &dto.UpdateMeetingTypeRequest{
		Name: &name,
	}); appErr != nil {
		t.Fatalf("update: %v", appErr)
	}
	if len(pub.subjects) != 0 {
		t.Errorf("a rename must not release holds, got %v", pub.subjects)
	}
}

func TestUpdateOwnership(t *testing.T) {
	repo := newFakeMeetingTypeRepo()
	svc := NewMeetingTypeService(repo, &recordingPublisher{})

	mt := &entity.MeetingType{
		OwnerID:    uuid.New(),
		Name:       "Intro Call",
		Active:     true,
		BaseEntity: coreEntity.BaseEntity{ID: uuid.New()},
	}
	repo.types[mt.ID] = mt

	name := "X"
	if _, appErr := svc.Update(context.Background(), uuid.New(), mt.ID, &dto.UpdateMeetingTypeRequest{Name: &name}); appErr == nil || appErr.Code != errors.ErrForbidden {
		t.Fatalf("expected Forbidden, got %v", appErr)
	}
	if _, appErr := svc.Update(context.Background(), uuid.New(), uuid.New(), &dto.UpdateMeetingTypeRequest{Name: &name}); appErr == nil || appErr.Code != errors.ErrNotFound {
		t.Fatalf("expected NotFound, got %v", appErr)
	}
}
