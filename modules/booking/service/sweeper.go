package service

import (
	"context"
	"time"

	"meetbook/core/bus"
	"meetbook/core/constants"
	"meetbook/core/logger"
	"meetbook/modules/booking/dto"
	"meetbook/modules/booking/repository"
)

// Sweeper expires overdue holds in the background. Multiple instances may
// run at once; the compare-and-set in the repository keeps each expiry
// reported exactly once.
type Sweeper struct {
	holdRepo repository.HoldRepositoryInterface
	events   EventPublisher
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(holdRepo repository.HoldRepositoryInterface, events EventPublisher) *Sweeper {
	return &Sweeper{
		holdRepo: holdRepo,
		events:   events,
		interval: constants.SweepInterval,
		now:      time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep runs one pass and emits slot.released for every hold it expired.
func (s *Sweeper) Sweep(ctx context.Context) {
	expired, err := s.holdRepo.ExpireDue(ctx, s.now())
	if err != nil {
		logger.Error("Sweeper:Sweep:Error", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}
	logger.Info("Sweeper:Sweep:Expired", "count", len(expired))

	for i := range expired {
		hold := &expired[i]
		err := s.events.PublishWithID(ctx, bus.SubjectSlotReleased,
			EventID(bus.SubjectSlotReleased, hold.ID.String()+":"+dto.ReleaseReasonExpired),
			dto.SlotReleasedEvent{
				HoldID:        hold.ID,
				MeetingTypeID: hold.MeetingTypeID,
				SlotStart:     hold.SlotStart,
				SlotEnd:       hold.SlotEnd,
				Reason:        dto.ReleaseReasonExpired,
			})
		if err != nil {
			logger.Warn("Sweeper:Publish:Error", "hold_id", hold.ID, "error", err)
		}
	}
}
