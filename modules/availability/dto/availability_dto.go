package dto

import (
	"time"

	"github.com/google/uuid"
)

type SlotResponse struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type SlotsResponse struct {
	Slots []SlotResponse `json:"slots"`
}

type CreateRuleRequest struct {
	MeetingTypeID *uuid.UUID `json:"meeting_type_id,omitempty"`
	DayOfWeek     int        `json:"day_of_week"`
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
	EffectiveFrom *string    `json:"effective_from,omitempty"` // YYYY-MM-DD
	EffectiveTill *string    `json:"effective_until,omitempty"`
}

type CreateBlackoutRequest struct {
	Date            string  `json:"date"` // YYYY-MM-DD
	StartTime       *string `json:"start_time,omitempty"`
	EndTime         *string `json:"end_time,omitempty"`
	RecurringYearly bool    `json:"recurring_yearly"`
}
