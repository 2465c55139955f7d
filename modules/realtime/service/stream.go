package service

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"meetbook/core/bus"
)

// Frame is one server-sent event ready to hit the wire.
type Frame struct {
	Event string
	ID    string
	Data  string
}

// Format renders the frame per the text/event-stream grammar. Data spanning
// multiple lines becomes multiple data: fields.
func (f Frame) Format() string {
	var sb strings.Builder
	if f.Event != "" {
		sb.WriteString("event: ")
		sb.WriteString(f.Event)
		sb.WriteByte('\n')
	}
	if f.ID != "" {
		sb.WriteString("id: ")
		sb.WriteString(f.ID)
		sb.WriteByte('\n')
	}
	for _, line := range strings.Split(f.Data, "\n") {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String()
}

// ConnectedFrame is the first frame on every subscription, so clients can
// distinguish an open stream from a stalled connect.
func ConnectedFrame(meetingTypeID uuid.UUID) Frame {
	data, _ := json.Marshal(map[string]string{"meeting_type_id": meetingTypeID.String()})
	return Frame{Event: "connected", Data: string(data)}
}

// Heartbeat is an SSE comment line; clients ignore it, proxies keep the
// connection warm.
const Heartbeat = ": ping\n\n"

// slotEventData is the slice of event payloads the filter needs.
type slotEventData struct {
	MeetingTypeID uuid.UUID `json:"meeting_type_id"`
}

// FrameFor converts a bus envelope into a frame for the given meeting type.
// Returns false for events about other types or outside the slot/booking
// families.
func FrameFor(env bus.Envelope, meetingTypeID uuid.UUID) (Frame, bool) {
	if !strings.HasPrefix(env.EventType, "slot.") && !strings.HasPrefix(env.EventType, "booking.") {
		return Frame{}, false
	}
	var data slotEventData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.MeetingTypeID != meetingTypeID {
		return Frame{}, false
	}
	return Frame{
		Event: env.EventType,
		ID:    env.EventID.String(),
		Data:  string(env.Data),
	}, true
}
