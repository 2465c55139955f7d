package meetingtype

import (
	"github.com/labstack/echo/v4"

	"meetbook/core/bus"
	"meetbook/core/database"
	"meetbook/core/middleware"
	"meetbook/modules/meetingtype/controller"
	"meetbook/modules/meetingtype/repository"
	"meetbook/modules/meetingtype/router"
	"meetbook/modules/meetingtype/service"
)

func Init(e *echo.Echo, db database.IDatabase, eventBus *bus.Bus, mw *middleware.Middleware) *repository.MeetingTypeRepository {
	repo := repository.NewMeetingTypeRepository(db)
	svc := service.NewMeetingTypeService(repo, eventBus)
	ctrl := controller.NewMeetingTypeController(svc)
	router.NewMeetingTypeRouter(ctrl).Setup(e, mw)
	return repo
}
