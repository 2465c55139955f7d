package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"meetbook/core/config"
	"meetbook/core/constants"
	"meetbook/core/controller"
	"meetbook/core/errors"
	"meetbook/core/utils"
)

type Middleware struct {
	cfg *config.Config
}

func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{cfg: cfg}
}

// AuthMiddleware validates the Bearer token and stores its claims in the
// request context under constants.ContextTokenData.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return unauthorized(c, "Missing Authorization header")
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return unauthorized(c, "Authorization header must be a Bearer token")
			}
			claims, err := utils.ParseToken(m.cfg.Auth.JWTSecret, raw)
			if err != nil {
				return unauthorized(c, "Invalid or expired token")
			}
			c.Set(constants.ContextTokenData, claims)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized,
		controller.NewErrorBody(errors.ErrUnauthorized, msg))
}
