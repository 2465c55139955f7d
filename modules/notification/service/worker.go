package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"meetbook/core/bus"
	"meetbook/core/logger"
	bookingService "meetbook/modules/booking/service"
	"meetbook/modules/notification/mailer"
	"meetbook/modules/notification/tasks"
)

// EmailWorker drains the email workqueue. Failures return an error so asynq
// retries with its own backoff.
type EmailWorker struct {
	mail   mailer.Mailer
	events bookingService.EventPublisher
}

func NewEmailWorker(mail mailer.Mailer, events bookingService.EventPublisher) *EmailWorker {
	return &EmailWorker{mail: mail, events: events}
}

func (w *EmailWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeEmailDelivery, w.HandleEmailDelivery)
}

func (w *EmailWorker) HandleEmailDelivery(ctx context.Context, task *asynq.Task) error {
	var p tasks.EmailDeliveryPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("bad email payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := w.mail.Send(ctx, p.To, p.Subject, p.Body); err != nil {
		logger.Warn("EmailWorker:Send:Error", "to", p.To, "error", err)
		return err
	}
	logger.Info("EmailWorker:Send:Success", "to", p.To, "reference", p.Reference)

	pubErr := w.events.PublishWithID(ctx, bus.SubjectEmailSent,
		bookingService.EventID(bus.SubjectEmailSent, p.Reference),
		map[string]string{"to": p.To, "subject": p.Subject, "reference": p.Reference})
	if pubErr != nil {
		logger.Warn("EmailWorker:Publish:Error", "error", pubErr)
	}
	return nil
}
