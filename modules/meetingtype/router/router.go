package router

import (
	"github.com/labstack/echo/v4"

	"meetbook/core/middleware"
	"meetbook/modules/meetingtype/controller"
)

type MeetingTypeRouter struct {
	Controller *controller.MeetingTypeController
}

func NewMeetingTypeRouter(ctrl *controller.MeetingTypeController) *MeetingTypeRouter {
	return &MeetingTypeRouter{Controller: ctrl}
}

func (r *MeetingTypeRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	priv := e.Group("/api/v1/private", mw.AuthMiddleware())
	priv.POST("/meeting-types", r.Controller.Create)
	priv.GET("/meeting-types", r.Controller.List)
	priv.PATCH("/meeting-types/:id", r.Controller.Update)
}
