package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateMeetingTypeRequest struct {
	Name                string  `json:"name"`
	DurationMinutes     int     `json:"duration_minutes"`
	BufferBeforeMinutes int     `json:"buffer_before_minutes"`
	BufferAfterMinutes  int     `json:"buffer_after_minutes"`
	Location            *string `json:"location,omitempty"`
	RequiresNDA         bool    `json:"requires_nda"`
}

type UpdateMeetingTypeRequest struct {
	Name                *string `json:"name,omitempty"`
	DurationMinutes     *int    `json:"duration_minutes,omitempty"`
	BufferBeforeMinutes *int    `json:"buffer_before_minutes,omitempty"`
	BufferAfterMinutes  *int    `json:"buffer_after_minutes,omitempty"`
	Location            *string `json:"location,omitempty"`
	RequiresNDA         *bool   `json:"requires_nda,omitempty"`
	Active              *bool   `json:"active,omitempty"`
}

type MeetingTypeResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Slug                string    `json:"slug"`
	DurationMinutes     int       `json:"duration_minutes"`
	BufferBeforeMinutes int       `json:"buffer_before_minutes"`
	BufferAfterMinutes  int       `json:"buffer_after_minutes"`
	Location            *string   `json:"location,omitempty"`
	RequiresNDA         bool      `json:"requires_nda"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
}

// PublicMeetingTypeResponse is the unauthenticated /book/{slug} shape.
type PublicMeetingTypeResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	DurationMinutes int       `json:"duration_minutes"`
	Location        *string   `json:"location,omitempty"`
	RequiresNDA     bool      `json:"requires_nda"`
	HostName        string    `json:"host_name"`
}
