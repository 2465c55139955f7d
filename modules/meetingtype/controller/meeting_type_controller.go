package controller

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"meetbook/core/constants"
	"meetbook/core/controller"
	"meetbook/core/errors"
	"meetbook/core/utils"
	"meetbook/modules/meetingtype/dto"
	"meetbook/modules/meetingtype/service"
)

type MeetingTypeController struct {
	controller.BaseController
	Service service.MeetingTypeServiceInterface
}

func NewMeetingTypeController(svc service.MeetingTypeServiceInterface) *MeetingTypeController {
	return &MeetingTypeController{
		BaseController: controller.NewBaseController(),
		Service:        svc,
	}
}

func (c *MeetingTypeController) ownerID(ctx echo.Context) (uuid.UUID, bool) {
	claims, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

// Create handles POST /api/v1/private/meeting-types
func (c *MeetingTypeController) Create(ctx echo.Context) error {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.CreateMeetingTypeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.Service.Create(ctx.Request().Context(), ownerID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, result, "Meeting type created")
}

// List handles GET /api/v1/private/meeting-types
func (c *MeetingTypeController) List(ctx echo.Context) error {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	result, appErr := c.Service.List(ctx.Request().Context(), ownerID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Meeting types")
}

// Update handles PATCH /api/v1/private/meeting-types/:id
func (c *MeetingTypeController) Update(ctx echo.Context) error {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid meeting type id")
	}

	var req dto.UpdateMeetingTypeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.Service.Update(ctx.Request().Context(), ownerID, id, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Meeting type updated")
}
