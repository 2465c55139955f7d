package auth

import (
	"github.com/labstack/echo/v4"

	"meetbook/core/config"
	"meetbook/core/database"
	"meetbook/modules/auth/controller"
	"meetbook/modules/auth/repository"
	"meetbook/modules/auth/router"
	"meetbook/modules/auth/service"
)

func Init(e *echo.Echo, db database.IDatabase, cfg *config.Config) *repository.UserRepository {
	repo := repository.NewUserRepository(db)
	svc := service.NewAuthService(repo, cfg)
	ctrl := controller.NewAuthController(svc)
	router.NewAuthRouter(ctrl).Setup(e)
	return repo
}
