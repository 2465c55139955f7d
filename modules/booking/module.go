package booking

import (
	"context"

	"github.com/labstack/echo/v4"

	"meetbook/core/bus"
	"meetbook/core/database"
	"meetbook/core/middleware"
	authRepo "meetbook/modules/auth/repository"
	availService "meetbook/modules/availability/service"
	"meetbook/modules/booking/controller"
	"meetbook/modules/booking/repository"
	"meetbook/modules/booking/router"
	"meetbook/modules/booking/service"
	mtRepo "meetbook/modules/meetingtype/repository"
)

// Module bundles the booking services the rest of the app wires against.
type Module struct {
	HoldManager *service.HoldManager
	Confirmer   *service.Confirmer
	Sweeper     *service.Sweeper
}

func Init(
	ctx context.Context,
	e *echo.Echo,
	db database.IDatabase,
	eventBus *bus.Bus,
	availability availService.AvailabilityServiceInterface,
	meetingTypes mtRepo.MeetingTypeRepositoryInterface,
	users authRepo.UserRepositoryInterface,
	nda service.NdaInitiator,
	mw *middleware.Middleware,
) *Module {
	holdRepo := repository.NewHoldRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	holdManager := service.NewHoldManager(holdRepo, eventBus, nda)
	confirmer := service.NewConfirmer(bookingRepo, holdRepo, eventBus)
	bookingSvc := service.NewBookingService(bookingRepo, eventBus)
	sweeper := service.NewSweeper(holdRepo, eventBus)
	sweeper.Start(ctx)

	ctrl := controller.NewBookingController(holdManager, confirmer, bookingSvc, availability, meetingTypes, users)
	router.NewBookingRouter(ctrl).Setup(e, mw)

	return &Module{HoldManager: holdManager, Confirmer: confirmer, Sweeper: sweeper}
}
