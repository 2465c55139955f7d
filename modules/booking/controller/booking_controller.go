package controller

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"meetbook/core/constants"
	"meetbook/core/controller"
	"meetbook/core/errors"
	"meetbook/core/params"
	"meetbook/core/utils"
	authRepo "meetbook/modules/auth/repository"
	availService "meetbook/modules/availability/service"
	"meetbook/modules/booking/dto"
	"meetbook/modules/booking/service"
	mtDto "meetbook/modules/meetingtype/dto"
	mtEntity "meetbook/modules/meetingtype/entity"
	mtRepo "meetbook/modules/meetingtype/repository"
)

// BookingController serves the public /book/{slug} flow and the host-facing
// booking endpoints.
type BookingController struct {
	controller.BaseController
	holdManager  service.HoldManagerInterface
	confirmer    service.ConfirmerInterface
	bookings     service.BookingServiceInterface
	availability availService.AvailabilityServiceInterface
	meetingTypes mtRepo.MeetingTypeRepositoryInterface
	users        authRepo.UserRepositoryInterface
}

func NewBookingController(
	holdManager service.HoldManagerInterface,
	confirmer service.ConfirmerInterface,
	bookings service.BookingServiceInterface,
	availability availService.AvailabilityServiceInterface,
	meetingTypes mtRepo.MeetingTypeRepositoryInterface,
	users authRepo.UserRepositoryInterface,
) *BookingController {
	return &BookingController{
		BaseController: controller.NewBaseController(),
		holdManager:    holdManager,
		confirmer:      confirmer,
		bookings:       bookings,
		availability:   availability,
		meetingTypes:   meetingTypes,
		users:          users,
	}
}

// resolveType loads the active meeting type behind a public slug.
func (c *BookingController) resolveType(ctx echo.Context) (*mtEntity.MeetingType, *echo.HTTPError) {
	mt, err := c.meetingTypes.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return nil, c.InternalServerError(errors.ErrInternalServer, "Failed to load booking page")
	}
	if mt == nil || !mt.Active {
		return nil, c.NotFound(errors.ErrNotFound, "Booking page not found")
	}
	return mt, nil
}

func (c *BookingController) GetBookingPage(ctx echo.Context) error {
	mt, httpErr := c.resolveType(ctx)
	if httpErr != nil {
		return httpErr
	}

	hostName := ""
	if host, err := c.users.GetByID(ctx.Request().Context(), mt.OwnerID); err == nil && host != nil {
		hostName = host.DisplayName
	}
	return c.SuccessResponse(ctx, mtDto.PublicMeetingTypeResponse{
		ID:              mt.ID,
		Name:            mt.Name,
		Slug:            mt.Slug,
		DurationMinutes: mt.DurationMinutes,
		Location:        mt.Location,
		RequiresNDA:     mt.RequiresNDA,
		HostName:        hostName,
	}, "Booking page")
}

func (c *BookingController) GetSlots(ctx echo.Context) error {
	mt, httpErr := c.resolveType(ctx)
	if httpErr != nil {
		return httpErr
	}

	slots, appErr := c.availability.GetSlots(ctx.Request().Context(), mt,
		ctx.QueryParam("start_date"), ctx.QueryParam("end_date"), ctx.QueryParam("timezone"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, slots, "Available slots")
}

func (c *BookingController) CreateHold(ctx echo.Context) error {
	mt, httpErr := c.resolveType(ctx)
	if httpErr != nil {
		return httpErr
	}

	var req dto.CreateHoldRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	hold, replayed, appErr := c.holdManager.CreateHold(ctx.Request().Context(), mt, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	if replayed {
		return c.SuccessResponse(ctx, hold, "Hold already placed")
	}
	return c.CreatedResponse(ctx, hold, "Hold placed")
}

func (c *BookingController) GetHold(ctx echo.Context) error {
	mt, httpErr := c.resolveType(ctx)
	if httpErr != nil {
		return httpErr
	}
	holdID, err := uuid.Parse(ctx.Param("holdId"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid hold id")
	}

	hold, appErr := c.holdManager.GetHold(ctx.Request().Context(), mt, holdID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, hold, "Hold")
}

func (c *BookingController) ReleaseHold(ctx echo.Context) error {
	mt, httpErr := c.resolveType(ctx)
	if httpErr != nil {
		return httpErr
	}
	holdID, err := uuid.Parse(ctx.Param("holdId"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid hold id")
	}

	if appErr := c.holdManager.ReleaseHold(ctx.Request().Context(), mt, holdID); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Hold released")
}

func (c *BookingController) Confirm(ctx echo.Context) error {
	mt, httpErr := c.resolveType(ctx)
	if httpErr != nil {
		return httpErr
	}

	var req dto.ConfirmBookingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	booking, appErr := c.confirmer.Confirm(ctx.Request().Context(), mt, &req)
	if appErr != nil {
		// At confirm time the slot was already held, so losing it is a
		// stale-hold problem, not a booking conflict.
		if appErr.Code == errors.ErrSlotUnavailable {
			return ctx.JSON(http.StatusBadRequest, controller.NewErrorBody(appErr.Code, appErr.Message))
		}
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, booking, "Booking confirmed")
}

func (c *BookingController) hostID(ctx echo.Context) (uuid.UUID, bool) {
	claims, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func (c *BookingController) ListBookings(ctx echo.Context) error {
	hostID, ok := c.hostID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	page := params.Parse(ctx.QueryParam("page"), ctx.QueryParam("page_size"))
	bookings, appErr := c.bookings.ListUpcoming(ctx.Request().Context(), hostID, page)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, bookings, "Upcoming bookings")
}

func (c *BookingController) CancelBooking(ctx echo.Context) error {
	hostID, ok := c.hostID(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid booking id")
	}

	booking, appErr := c.bookings.Cancel(ctx.Request().Context(), hostID, bookingID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, booking, "Booking canceled")
}
