package controller

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"meetbook/core/constants"
	"meetbook/core/controller"
	"meetbook/core/errors"
	"meetbook/core/utils"
	"meetbook/modules/availability/dto"
	"meetbook/modules/availability/service"
)

// AvailabilityController exposes the host-facing rule and blackout CRUD.
// The public slot listing lives on the booking surface.
type AvailabilityController struct {
	controller.BaseController
	Service service.AvailabilityServiceInterface
}

func NewAvailabilityController(svc service.AvailabilityServiceInterface) *AvailabilityController {
	return &AvailabilityController{
		BaseController: controller.NewBaseController(),
		Service:        svc,
	}
}

func (c *AvailabilityController) ownerID(ctx echo.Context) (uuid.UUID, bool) {
	claims, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func (c *AvailabilityController) CreateRule(ctx echo.Context) error {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.CreateRuleRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	rule, appErr := c.Service.CreateRule(ctx.Request().Context(), ownerID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, rule, "Rule created")
}

func (c *AvailabilityController) ListRules(ctx echo.Context) error {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	rules, appErr := c.Service.ListRules(ctx.Request().Context(), ownerID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, rules, "Rules")
}

func (c *AvailabilityController) DeleteRule(ctx echo.Context) error {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid rule id")
	}
	if appErr := c.Service.DeleteRule(ctx.Request().Context(), ownerID, id); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Rule deleted")
}

func (c *AvailabilityController) CreateBlackout(ctx echo.Context) error {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.CreateBlackoutRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	blackout, appErr := c.Service.CreateBlackout(ctx.Request().Context(), ownerID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, blackout, "Blackout created")
}

func (c *AvailabilityController) ListBlackouts(ctx echo.Context) error {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	out, appErr := c.Service.ListBlackouts(ctx.Request().Context(), ownerID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, out, "Blackouts")
}

func (c *AvailabilityController) DeleteBlackout(ctx echo.Context) error {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid blackout id")
	}
	if appErr := c.Service.DeleteBlackout(ctx.Request().Context(), ownerID, id); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Blackout deleted")
}
