package realtime

import (
	"github.com/labstack/echo/v4"

	"meetbook/core/bus"
	"meetbook/modules/realtime/controller"
	mtRepo "meetbook/modules/meetingtype/repository"
)

func Init(e *echo.Echo, eventBus *bus.Bus, meetingTypes mtRepo.MeetingTypeRepositoryInterface) {
	ctrl := controller.NewRealtimeController(eventBus, meetingTypes)
	e.GET("/api/v1/realtime/slots/:meetingTypeId", ctrl.StreamSlots)
}
