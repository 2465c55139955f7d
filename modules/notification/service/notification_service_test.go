package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"meetbook/core/bus"
	bookingDto "meetbook/modules/booking/dto"
	"meetbook/modules/notification/tasks"
)

type fakeEnqueuer struct {
	tasks    []*asynq.Task
	conflict bool
}

func (q *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.conflict {
		return nil, asynq.ErrTaskIDConflict
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

type nopPublisher struct{}

func (nopPublisher) PublishWithID(ctx context.Context, subject string, eventID uuid.UUID, data any) error {
	return nil
}

func confirmedEnvelope(t *testing.T) bus.Envelope {
	t.Helper()
	start := time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)
	data, err := json.Marshal(bookingDto.BookingConfirmedEvent{
		BookingID:  uuid.New(),
		GuestEmail: "guest@example.com",
		GuestName:  "Ada",
		SlotStart:  start,
		SlotEnd:    start.Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	return bus.Envelope{
		EventID:   uuid.New(),
		EventType: bus.SubjectBookingConfirmed,
		Data:      data,
	}
}

func TestHandleBookingEventEnqueuesConfirmation(t *testing.T) {
	queue := &fakeEnqueuer{}
	svc := NewNotificationService(queue, nopPublisher{})

	env := confirmedEnvelope(t)
	if err := svc.HandleBookingEvent(context.Background(), env); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(queue.tasks) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(queue.tasks))
	}

	task := queue.tasks[0]
	if task.Type() != tasks.TypeEmailDelivery {
		t.Errorf("task type = %q", task.Type())
	}
	var p tasks.EmailDeliveryPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.To != "guest@example.com" {
		t.Errorf("to = %q", p.To)
	}
	if p.Reference != env.EventID.String() {
		t.Errorf("reference = %q, want source event id", p.Reference)
	}
}

func TestHandleBookingEventDuplicateIsNotAnError(t *testing.T) {
	svc := NewNotificationService(&fakeEnqueuer{conflict: true}, nopPublisher{})
	if err := svc.HandleBookingEvent(context.Background(), confirmedEnvelope(t)); err != nil {
		t.Fatalf("task id conflict must ack, got %v", err)
	}
}

func TestHandleBookingEventIgnoresUnrelatedSubjects(t *testing.T) {
	queue := &fakeEnqueuer{}
	svc := NewNotificationService(queue, nopPublisher{})

	err := svc.HandleBookingEvent(context.Background(), bus.Envelope{
		EventID:   uuid.New(),
		EventType: bus.SubjectSlotHeld,
		Data:      []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(queue.tasks) != 0 {
		t.Errorf("unrelated event enqueued %d tasks", len(queue.tasks))
	}
}

func TestHandleBookingEventBadPayloadAcks(t *testing.T) {
	queue := &fakeEnqueuer{}
	svc := NewNotificationService(queue, nopPublisher{})

	err := svc.HandleBookingEvent(context.Background(), bus.Envelope{
		EventID:   uuid.New(),
		EventType: bus.SubjectBookingConfirmed,
		Data:      []byte(`{not json`),
	})
	if err != nil {
		t.Fatalf("malformed payload must not be retried, got %v", err)
	}
	if len(queue.tasks) != 0 {
		t.Errorf("malformed payload enqueued %d tasks", len(queue.tasks))
	}
}
