package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TypeEmailDelivery = "email:deliver"

// EmailDeliveryPayload is the asynq task body for one outbound email.
type EmailDeliveryPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// Reference ties the email back to the event that requested it.
	Reference string `json:"reference"`
}

func NewEmailDeliveryTask(p EmailDeliveryPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailDelivery, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}
