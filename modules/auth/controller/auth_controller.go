package controller

import (
	"github.com/labstack/echo/v4"

	"meetbook/core/controller"
	"meetbook/core/errors"
	"meetbook/modules/auth/dto"
	"meetbook/modules/auth/service"
)

type AuthController struct {
	controller.BaseController
	AuthService service.AuthServiceInterface
}

func NewAuthController(svc service.AuthServiceInterface) *AuthController {
	return &AuthController{
		BaseController: controller.NewBaseController(),
		AuthService:    svc,
	}
}

// Login handles POST /api/v1/auth/login
func (a *AuthController) Login(ctx echo.Context) error {
	var req dto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return a.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := a.AuthService.Login(ctx.Request().Context(), &req)
	if appErr != nil {
		return a.ErrorResponse(ctx, appErr)
	}

	return a.SuccessResponse(ctx, result, "Logged in")
}
