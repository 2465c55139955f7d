package availability

import (
	"github.com/labstack/echo/v4"

	"meetbook/core/database"
	"meetbook/core/middleware"
	authRepo "meetbook/modules/auth/repository"
	"meetbook/modules/availability/controller"
	"meetbook/modules/availability/repository"
	"meetbook/modules/availability/router"
	"meetbook/modules/availability/service"
)

func Init(e *echo.Echo, db database.IDatabase, userRepo authRepo.UserRepositoryInterface, mw *middleware.Middleware) *service.AvailabilityService {
	repo := repository.NewAvailabilityRepository(db)
	svc := service.NewAvailabilityService(repo, userRepo)
	ctrl := controller.NewAvailabilityController(svc)
	router.NewAvailabilityRouter(ctrl).Setup(e, mw)
	return svc
}
