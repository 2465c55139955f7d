package controller

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"meetbook/core/bus"
	"meetbook/core/controller"
	"meetbook/core/errors"
	"meetbook/core/logger"
	mtRepo "meetbook/modules/meetingtype/repository"
	"meetbook/modules/realtime/service"
)

const heartbeatInterval = 25 * time.Second

// RealtimeController streams slot and booking events for one meeting type
// over SSE. Subscriptions are ephemeral: connect, receive new events,
// disconnect; no backlog, no resume.
type RealtimeController struct {
	controller.BaseController
	eventBus     *bus.Bus
	meetingTypes mtRepo.MeetingTypeRepositoryInterface
}

func NewRealtimeController(eventBus *bus.Bus, meetingTypes mtRepo.MeetingTypeRepositoryInterface) *RealtimeController {
	return &RealtimeController{
		BaseController: controller.NewBaseController(),
		eventBus:       eventBus,
		meetingTypes:   meetingTypes,
	}
}

func (c *RealtimeController) StreamSlots(ctx echo.Context) error {
	meetingTypeID, err := uuid.Parse(ctx.Param("meetingTypeId"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid meeting type id")
	}
	mt, err := c.meetingTypes.GetByID(ctx.Request().Context(), meetingTypeID)
	if err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to load meeting type")
	}
	if mt == nil || !mt.Active {
		return c.NotFound(errors.ErrNotFound, "Meeting type not found")
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(200)

	reqCtx := ctx.Request().Context()
	events := c.eventBus.SubscribeNew(reqCtx, bus.StreamBookings)

	if err := writeFlush(resp, service.ConnectedFrame(meetingTypeID).Format()); err != nil {
		return nil
	}
	logger.Info("Realtime:StreamSlots:Connected", "meeting_type_id", meetingTypeID)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-reqCtx.Done():
			logger.Debug("Realtime:StreamSlots:Disconnected", "meeting_type_id", meetingTypeID)
			return nil
		case <-heartbeat.C:
			if err := writeFlush(resp, service.Heartbeat); err != nil {
				return nil
			}
		case env, ok := <-events:
			if !ok {
				return nil
			}
			frame, want := service.FrameFor(env, meetingTypeID)
			if !want {
				continue
			}
			if err := writeFlush(resp, frame.Format()); err != nil {
				return nil
			}
		}
	}
}

func writeFlush(resp *echo.Response, chunk string) error {
	if _, err := io.WriteString(resp, chunk); err != nil {
		return err
	}
	resp.Flush()
	return nil
}
