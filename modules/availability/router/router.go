package router

import (
	"github.com/labstack/echo/v4"

	"meetbook/core/middleware"
	"meetbook/modules/availability/controller"
)

type AvailabilityRouter struct {
	Controller *controller.AvailabilityController
}

func NewAvailabilityRouter(ctrl *controller.AvailabilityController) *AvailabilityRouter {
	return &AvailabilityRouter{Controller: ctrl}
}

func (r *AvailabilityRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	priv := e.Group("/api/v1/private", mw.AuthMiddleware())
	priv.POST("/availability/rules", r.Controller.CreateRule)
	priv.GET("/availability/rules", r.Controller.ListRules)
	priv.DELETE("/availability/rules/:id", r.Controller.DeleteRule)
	priv.POST("/availability/blackouts", r.Controller.CreateBlackout)
	priv.GET("/availability/blackouts", r.Controller.ListBlackouts)
	priv.DELETE("/availability/blackouts/:id", r.Controller.DeleteBlackout)
}
