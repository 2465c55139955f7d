package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"meetbook/core/bus"
	"meetbook/core/errors"
	"meetbook/core/logger"
	"meetbook/core/utils"
	"meetbook/modules/meetingtype/dto"
	"meetbook/modules/meetingtype/entity"
	"meetbook/modules/meetingtype/repository"
)

type MeetingTypeServiceInterface interface {
	Create(ctx context.Context, ownerID uuid.UUID, req *dto.CreateMeetingTypeRequest) (*dto.MeetingTypeResponse, *errors.AppError)
	List(ctx context.Context, ownerID uuid.UUID) ([]dto.MeetingTypeResponse, *errors.AppError)
	Update(ctx context.Context, ownerID, id uuid.UUID, req *dto.UpdateMeetingTypeRequest) (*dto.MeetingTypeResponse, *errors.AppError)
}

// EventPublisher is the slice of the bus this service needs.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

type MeetingTypeService struct {
	repo repository.MeetingTypeRepositoryInterface
	bus  EventPublisher
}

func NewMeetingTypeService(repo repository.MeetingTypeRepositoryInterface, eventBus EventPublisher) *MeetingTypeService {
	return &MeetingTypeService{repo: repo, bus: eventBus}
}

func (s *MeetingTypeService) Create(ctx context.Context, ownerID uuid.UUID, req *dto.CreateMeetingTypeRequest) (*dto.MeetingTypeResponse, *errors.AppError) {
	logger.Info("MeetingTypeService:Create:Start", "owner_id", ownerID, "name", req.Name)

	if req.Name == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Name is required", nil)
	}
	if req.DurationMinutes <= 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Duration must be positive", nil)
	}
	if req.BufferBeforeMinutes < 0 || req.BufferAfterMinutes < 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Buffers must not be negative", nil)
	}

	urlSlug, err := s.uniqueSlug(ctx, ownerID, req.Name)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to generate slug", nil)
	}

	created, err := s.repo.Create(ctx, &entity.MeetingType{
		OwnerID:             ownerID,
		Name:                req.Name,
		Slug:                urlSlug,
		DurationMinutes:     req.DurationMinutes,
		BufferBeforeMinutes: req.BufferBeforeMinutes,
		BufferAfterMinutes:  req.BufferAfterMinutes,
		Location:            req.Location,
		RequiresNDA:         req.RequiresNDA,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create meeting type", nil)
	}

	resp := toResponse(created)
	return &resp, nil
}

func (s *MeetingTypeService) List(ctx context.Context, ownerID uuid.UUID) ([]dto.MeetingTypeResponse, *errors.AppError) {
	types, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list meeting types", nil)
	}
	out := make([]dto.MeetingTypeResponse, 0, len(types))
	for i := range types {
		out = append(out, toResponse(&types[i]))
	}
	return out, nil
}

func (s *MeetingTypeService) Update(ctx context.Context, ownerID, id uuid.UUID, req *dto.UpdateMeetingTypeRequest) (*dto.MeetingTypeResponse, *errors.AppError) {
	logger.Info("MeetingTypeService:Update:Start", "meeting_type_id", id)

	mt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load meeting type", nil)
	}
	if mt == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Meeting type not found", nil)
	}
	if mt.OwnerID != ownerID {
		return nil, errors.NewAppError(errors.ErrForbidden, "Meeting type belongs to another host", nil)
	}

	timingChanged := false
	if req.Name != nil {
		mt.Name = *req.Name
	}
	if req.DurationMinutes != nil && *req.DurationMinutes != mt.DurationMinutes {
		if *req.DurationMinutes <= 0 {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Duration must be positive", nil)
		}
		mt.DurationMinutes = *req.DurationMinutes
		timingChanged = true
	}
	if req.BufferBeforeMinutes != nil && *req.BufferBeforeMinutes != mt.BufferBeforeMinutes {
		mt.BufferBeforeMinutes = *req.BufferBeforeMinutes
		timingChanged = true
	}
	if req.BufferAfterMinutes != nil && *req.BufferAfterMinutes != mt.BufferAfterMinutes {
		mt.BufferAfterMinutes = *req.BufferAfterMinutes
		timingChanged = true
	}
	if req.Location != nil {
		mt.Location = req.Location
	}
	if req.RequiresNDA != nil {
		mt.RequiresNDA = *req.RequiresNDA
	}
	if req.Active != nil {
		mt.Active = *req.Active
	}

	if err := s.repo.Update(ctx, mt); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to update meeting type", nil)
	}

	// Changing duration or buffers invalidates outstanding holds: the slots
	// they reserve no longer line up with the grid guests are shown.
	if timingChanged {
		released, err := s.repo.ReleaseActiveHolds(ctx, mt.ID)
		if err != nil {
			logger.Error("MeetingTypeService:Update:ReleaseActiveHolds:Error", "error", err)
		}
		for _, h := range released {
			pubErr := s.bus.Publish(ctx, bus.SubjectSlotReleased, map[string]any{
				"meeting_type_id": mt.ID,
				"hold_id":         h.ID,
				"slot_start":      h.SlotStart,
				"slot_end":        h.SlotEnd,
				"reason":          "canceled",
			})
			if pubErr != nil {
				logger.Error("MeetingTypeService:Update:PublishReleased:Error", "hold_id", h.ID, "error", pubErr)
			}
		}
		if len(released) > 0 {
			logger.Info("MeetingTypeService:Update:HoldsInvalidated", "meeting_type_id", mt.ID, "count", len(released))
		}
	}

	resp := toResponse(mt)
	return &resp, nil
}

// uniqueSlug slugifies the name and appends a short random suffix when the
// owner already uses it.
func (s *MeetingTypeService) uniqueSlug(ctx context.Context, ownerID uuid.UUID, name string) (string, error) {
	base := slug.Make(name)
	exists, err := s.repo.SlugExists(ctx, ownerID, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}
	return base + "-" + utils.GenerateID(), nil
}

func toResponse(mt *entity.MeetingType) dto.MeetingTypeResponse {
	return dto.MeetingTypeResponse{
		ID:                  mt.ID,
		Name:                mt.Name,
		Slug:                mt.Slug,
		DurationMinutes:     mt.DurationMinutes,
		BufferBeforeMinutes: mt.BufferBeforeMinutes,
		BufferAfterMinutes:  mt.BufferAfterMinutes,
		Location:            mt.Location,
		RequiresNDA:         mt.RequiresNDA,
		Active:              mt.Active,
		CreatedAt:           mt.CreatedAt,
	}
}
