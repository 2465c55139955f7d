package router

import (
	"github.com/labstack/echo/v4"

	"meetbook/modules/auth/controller"
)

type AuthRouter struct {
	Controller *controller.AuthController
}

func NewAuthRouter(ctrl *controller.AuthController) *AuthRouter {
	return &AuthRouter{Controller: ctrl}
}

func (r *AuthRouter) Setup(e *echo.Echo) {
	e.POST("/api/v1/auth/login", r.Controller.Login)
}
