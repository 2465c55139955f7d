package router

import (
	"github.com/labstack/echo/v4"

	"meetbook/core/constants"
	"meetbook/core/middleware"
	"meetbook/modules/booking/controller"
)

type BookingRouter struct {
	Controller *controller.BookingController
}

func NewBookingRouter(ctrl *controller.BookingController) *BookingRouter {
	return &BookingRouter{Controller: ctrl}
}

func (r *BookingRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	publicLimit := middleware.NewRateLimiter(constants.RateLimitPublicPerMinute)
	holdLimit := middleware.NewRateLimiter(constants.RateLimitHoldPerMinute)

	pub := e.Group("/api/v1/book", publicLimit.Middleware())
	pub.GET("/:slug", r.Controller.GetBookingPage)
	pub.GET("/:slug/slots", r.Controller.GetSlots)
	pub.POST("/:slug/hold", r.Controller.CreateHold, holdLimit.Middleware())
	pub.GET("/:slug/hold/:holdId", r.Controller.GetHold)
	pub.DELETE("/:slug/hold/:holdId", r.Controller.ReleaseHold)
	pub.POST("/:slug/confirm", r.Controller.Confirm)

	priv := e.Group("/api/v1/private", mw.AuthMiddleware())
	priv.GET("/bookings", r.Controller.ListBookings)
	priv.POST("/bookings/:id/cancel", r.Controller.CancelBooking)
}
