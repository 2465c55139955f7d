package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"meetbook/core/bus"
	"meetbook/core/logger"
	bookingDto "meetbook/modules/booking/dto"
	bookingService "meetbook/modules/booking/service"
	"meetbook/modules/notification/tasks"
)

// TaskEnqueuer is the asynq.Client slice the service depends on.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotificationService turns booking lifecycle events into queued emails.
// Delivery itself happens on the workqueue; this side only composes and
// enqueues.
type NotificationService struct {
	queue  TaskEnqueuer
	events bookingService.EventPublisher
}

func NewNotificationService(queue TaskEnqueuer, events bookingService.EventPublisher) *NotificationService {
	return &NotificationService{queue: queue, events: events}
}

// HandleBookingEvent is the durable consumer handler for booking.confirmed
// and booking.canceled.
func (s *NotificationService) HandleBookingEvent(ctx context.Context, env bus.Envelope) error {
	switch env.EventType {
	case bus.SubjectBookingConfirmed:
		var event bookingDto.BookingConfirmedEvent
		if err := json.Unmarshal(env.Data, &event); err != nil {
			logger.Error("NotificationService:HandleBookingEvent:BadPayload",
				"event_id", env.EventID, "error", err)
			return nil
		}
		return s.enqueue(ctx, tasks.EmailDeliveryPayload{
			To:        event.GuestEmail,
			Subject:   "Your meeting is confirmed",
			Body:      confirmationBody(event),
			Reference: env.EventID.String(),
		})
	case bus.SubjectBookingCanceled:
		var event bookingDto.BookingCanceledEvent
		if err := json.Unmarshal(env.Data, &event); err != nil {
			logger.Error("NotificationService:HandleBookingEvent:BadPayload",
				"event_id", env.EventID, "error", err)
			return nil
		}
		return s.enqueue(ctx, tasks.EmailDeliveryPayload{
			To:        event.GuestEmail,
			Subject:   "Your meeting was canceled",
			Body:      cancellationBody(event),
			Reference: env.EventID.String(),
		})
	}
	return nil
}

func (s *NotificationService) enqueue(ctx context.Context, p tasks.EmailDeliveryPayload) error {
	task, err := tasks.NewEmailDeliveryTask(p)
	if err != nil {
		return err
	}
	// TaskID keyed on the source event keeps redeliveries from queueing the
	// same email twice.
	info, err := s.queue.EnqueueContext(ctx, task, asynq.TaskID("email:"+p.Reference))
	if err != nil {
		if err == asynq.ErrTaskIDConflict {
			return nil
		}
		return fmt.Errorf("enqueue email for %s: %w", p.To, err)
	}
	logger.Info("NotificationService:Enqueue:Success", "task_id", info.ID, "to", p.To)

	pubErr := s.events.PublishWithID(ctx, bus.SubjectEmailRequested,
		bookingService.EventID(bus.SubjectEmailRequested, p.Reference),
		map[string]string{"to": p.To, "subject": p.Subject, "reference": p.Reference})
	if pubErr != nil {
		logger.Warn("NotificationService:Publish:Error", "error", pubErr)
	}
	return nil
}

func confirmationBody(e bookingDto.BookingConfirmedEvent) string {
	return fmt.Sprintf(
		"Hi %s,\n\nYour meeting is confirmed.\n\nStarts: %s\nEnds:   %s\n\nBooking reference: %s\n",
		e.GuestName,
		e.SlotStart.UTC().Format(time.RFC1123),
		e.SlotEnd.UTC().Format(time.RFC1123),
		e.BookingID,
	)
}

func cancellationBody(e bookingDto.BookingCanceledEvent) string {
	return fmt.Sprintf(
		"Hello,\n\nYour meeting scheduled for %s was canceled by the host.\n\nBooking reference: %s\n",
		e.SlotStart.UTC().Format(time.RFC1123),
		e.BookingID,
	)
}
