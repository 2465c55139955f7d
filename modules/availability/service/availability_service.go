package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetbook/core/errors"
	"meetbook/core/logger"
	authRepo "meetbook/modules/auth/repository"
	"meetbook/modules/availability/dto"
	"meetbook/modules/availability/entity"
	"meetbook/modules/availability/repository"
	mtEntity "meetbook/modules/meetingtype/entity"
)

type AvailabilityServiceInterface interface {
	GetSlots(ctx context.Context, mt *mtEntity.MeetingType, startDate, endDate, guestZone string) (*dto.SlotsResponse, *errors.AppError)
	CreateRule(ctx context.Context, ownerID uuid.UUID, req *dto.CreateRuleRequest) (*entity.AvailabilityRule, *errors.AppError)
	ListRules(ctx context.Context, ownerID uuid.UUID) ([]entity.AvailabilityRule, *errors.AppError)
	DeleteRule(ctx context.Context, ownerID, id uuid.UUID) *errors.AppError
	CreateBlackout(ctx context.Context, ownerID uuid.UUID, req *dto.CreateBlackoutRequest) (*entity.BlackoutDate, *errors.AppError)
	ListBlackouts(ctx context.Context, ownerID uuid.UUID) ([]entity.BlackoutDate, *errors.AppError)
	DeleteBlackout(ctx context.Context, ownerID, id uuid.UUID) *errors.AppError
}

type AvailabilityService struct {
	repo     repository.AvailabilityRepositoryInterface
	userRepo authRepo.UserRepositoryInterface
	engine   *Engine
}

func NewAvailabilityService(repo repository.AvailabilityRepositoryInterface, userRepo authRepo.UserRepositoryInterface) *AvailabilityService {
	return &AvailabilityService{
		repo:     repo,
		userRepo: userRepo,
		engine:   NewEngine(),
	}
}

// MaxWindowDays bounds a single listing request.
const MaxWindowDays = 62

// GetSlots computes the slot grid for a meeting type over an inclusive
// wall-date window, presented in the guest's zone. Availability itself is
// decided in absolute time.
func (s *AvailabilityService) GetSlots(ctx context.Context, mt *mtEntity.MeetingType, startDate, endDate, guestZone string) (*dto.SlotsResponse, *errors.AppError) {
	logger.Info("AvailabilityService:GetSlots:Start",
		"meeting_type_id", mt.ID, "start", startDate, "end", endDate, "zone", guestZone)

	owner, err := s.userRepo.GetByID(ctx, mt.OwnerID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load host", nil)
	}
	if owner == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Host not found", nil)
	}

	hostZone, err := time.LoadLocation(owner.Timezone)
	if err != nil {
		logger.Error("AvailabilityService:GetSlots:BadHostZone", "zone", owner.Timezone, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Host timezone is invalid", nil)
	}
	guestLoc, err := time.LoadLocation(guestZone)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Unknown timezone", nil)
	}

	start, appErr := parseCivilDate(startDate)
	if appErr != nil {
		return nil, appErr
	}
	end, appErr := parseCivilDate(endDate)
	if appErr != nil {
		return nil, appErr
	}
	if end.Before(start) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "endDate is before startDate", nil)
	}
	if spanDays(start, end) > MaxWindowDays {
		return nil, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("Window may not exceed %d days", MaxWindowDays), nil)
	}

	windowStart := time.Date(start.Year, start.Month, start.Day, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(end.Year, end.Month, end.Day, 0, 0, 0, 0, time.UTC)

	rules, err := s.repo.GetApplicableRules(ctx, mt.OwnerID, mt.ID, windowStart, windowEnd)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load availability rules", nil)
	}
	blackouts, err := s.repo.GetBlackoutsForWindow(ctx, mt.OwnerID, windowStart, windowEnd)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load blackout dates", nil)
	}

	// Expand the occupancy window so neighbours just outside the listing
	// range still collide through their buffers.
	pad := time.Duration(mt.DurationMinutes+mt.BufferBeforeMinutes+mt.BufferAfterMinutes) * time.Minute
	occFrom := wallTime(start, 0, hostZone).Add(-pad)
	occTo := wallTime(end.Next(), 0, hostZone).Add(pad)
	occupied, err := s.repo.GetOccupancy(ctx, mt.ID, occFrom, occTo)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load occupancy", nil)
	}

	in := ComputeInput{
		DurationMinutes:     mt.DurationMinutes,
		BufferBeforeMinutes: mt.BufferBeforeMinutes,
		BufferAfterMinutes:  mt.BufferAfterMinutes,
		HostZone:            hostZone,
		StartDate:           start,
		EndDate:             end,
	}
	for _, r := range rules {
		rw, err := toRuleWindow(r)
		if err != nil {
			logger.Warn("AvailabilityService:GetSlots:SkipRule", "rule_id", r.ID, "error", err)
			continue
		}
		in.Rules = append(in.Rules, rw)
	}
	for _, b := range blackouts {
		bw, err := toBlackoutWindow(b)
		if err != nil {
			logger.Warn("AvailabilityService:GetSlots:SkipBlackout", "blackout_id", b.ID, "error", err)
			continue
		}
		in.Blackouts = append(in.Blackouts, bw)
	}
	for _, o := range occupied {
		in.Occupied = append(in.Occupied, Interval{Start: o.SlotStart, End: o.SlotEnd})
	}

	slots := s.engine.Compute(in)

	resp := &dto.SlotsResponse{Slots: make([]dto.SlotResponse, 0, len(slots))}
	for _, sl := range slots {
		resp.Slots = append(resp.Slots, dto.SlotResponse{
			Start:     sl.Start.In(guestLoc),
			End:       sl.End.In(guestLoc),
			Available: sl.Available,
		})
	}
	return resp, nil
}

func (s *AvailabilityService) CreateRule(ctx context.Context, ownerID uuid.UUID, req *dto.CreateRuleRequest) (*entity.AvailabilityRule, *errors.AppError) {
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "day_of_week must be 0..6", nil)
	}
	startMin, err := ParseMinuteOfDay(req.StartTime)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid start_time", nil)
	}
	endMin, err := ParseMinuteOfDay(req.EndTime)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid end_time", nil)
	}
	if startMin >= endMin {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "start_time must be before end_time", nil)
	}

	rule := &entity.AvailabilityRule{
		OwnerID:       ownerID,
		MeetingTypeID: req.MeetingTypeID,
		DayOfWeek:     req.DayOfWeek,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	}
	if req.EffectiveFrom != nil {
		t, err := time.Parse("2006-01-02", *req.EffectiveFrom)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid effective_from", nil)
		}
		rule.EffectiveFrom = &t
	}
	if req.EffectiveTill != nil {
		t, err := time.Parse("2006-01-02", *req.EffectiveTill)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid effective_until", nil)
		}
		rule.EffectiveUntil = &t
	}

	created, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create rule", nil)
	}
	return created, nil
}

func (s *AvailabilityService) ListRules(ctx context.Context, ownerID uuid.UUID) ([]entity.AvailabilityRule, *errors.AppError) {
	rules, err := s.repo.GetRulesByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list rules", nil)
	}
	return rules, nil
}

func (s *AvailabilityService) DeleteRule(ctx context.Context, ownerID, id uuid.UUID) *errors.AppError {
	ok, err := s.repo.DeleteRule(ctx, ownerID, id)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to delete rule", nil)
	}
	if !ok {
		return errors.NewAppError(errors.ErrNotFound, "Rule not found", nil)
	}
	return nil
}

func (s *AvailabilityService) CreateBlackout(ctx context.Context, ownerID uuid.UUID, req *dto.CreateBlackoutRequest) (*entity.BlackoutDate, *errors.AppError) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid date", nil)
	}
	if (req.StartTime == nil) != (req.EndTime == nil) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "start_time and end_time must be given together", nil)
	}
	if req.StartTime != nil {
		if _, err := ParseMinuteOfDay(*req.StartTime); err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid start_time", nil)
		}
		if _, err := ParseMinuteOfDay(*req.EndTime); err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid end_time", nil)
		}
	}

	created, err := s.repo.CreateBlackout(ctx, &entity.BlackoutDate{
		OwnerID:         ownerID,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		RecurringYearly: req.RecurringYearly,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create blackout", nil)
	}
	return created, nil
}

func (s *AvailabilityService) ListBlackouts(ctx context.Context, ownerID uuid.UUID) ([]entity.BlackoutDate, *errors.AppError) {
	out, err := s.repo.GetBlackoutsByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list blackouts", nil)
	}
	return out, nil
}

func (s *AvailabilityService) DeleteBlackout(ctx context.Context, ownerID, id uuid.UUID) *errors.AppError {
	ok, err := s.repo.DeleteBlackout(ctx, ownerID, id)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to delete blackout", nil)
	}
	if !ok {
		return errors.NewAppError(errors.ErrNotFound, "Blackout not found", nil)
	}
	return nil
}

// ParseMinuteOfDay parses "HH:MM" or "HH:MM:SS" into minutes from midnight.
func ParseMinuteOfDay(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	min := h*60 + m
	if min > 24*60 {
		return 0, fmt.Errorf("time %q past midnight", s)
	}
	return min, nil
}

func parseCivilDate(s string) (CivilDate, *errors.AppError) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, errors.NewAppError(errors.ErrInvalidInput, "Dates must be YYYY-MM-DD", nil)
	}
	return CivilDateOf(t), nil
}

func spanDays(a, b CivilDate) int {
	ta := time.Date(a.Year, a.Month, a.Day, 0, 0, 0, 0, time.UTC)
	tb := time.Date(b.Year, b.Month, b.Day, 0, 0, 0, 0, time.UTC)
	return int(tb.Sub(ta).Hours()/24) + 1
}

func toRuleWindow(r entity.AvailabilityRule) (RuleWindow, error) {
	startMin, err := ParseMinuteOfDay(r.StartTime)
	if err != nil {
		return RuleWindow{}, err
	}
	endMin, err := ParseMinuteOfDay(r.EndTime)
	if err != nil {
		return RuleWindow{}, err
	}
	rw := RuleWindow{
		Weekday:     time.Weekday(r.DayOfWeek),
		StartMinute: startMin,
		EndMinute:   endMin,
	}
	if r.EffectiveFrom != nil {
		d := CivilDateOf(r.EffectiveFrom.UTC())
		rw.EffectiveFrom = &d
	}
	if r.EffectiveUntil != nil {
		d := CivilDateOf(r.EffectiveUntil.UTC())
		rw.EffectiveUntil = &d
	}
	return rw, nil
}

func toBlackoutWindow(b entity.BlackoutDate) (BlackoutWindow, error) {
	bw := BlackoutWindow{
		Date:      CivilDateOf(b.Date.UTC()),
		Recurring: b.RecurringYearly,
	}
	if b.StartTime != nil && b.EndTime != nil {
		startMin, err := ParseMinuteOfDay(*b.StartTime)
		if err != nil {
			return BlackoutWindow{}, err
		}
		endMin, err := ParseMinuteOfDay(*b.EndTime)
		if err != nil {
			return BlackoutWindow{}, err
		}
		bw.StartMinute = &startMin
		bw.EndMinute = &endMin
	}
	return bw, nil
}
