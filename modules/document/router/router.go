package router

import (
	"github.com/labstack/echo/v4"

	"meetbook/modules/document/controller"
)

type DocumentRouter struct {
	Webhooks *controller.WebhookController
}

func NewDocumentRouter(webhooks *controller.WebhookController) *DocumentRouter {
	return &DocumentRouter{Webhooks: webhooks}
}

// Setup registers the provider callback. Authenticated by signature, not by
// session, so it lives outside the private group.
func (r *DocumentRouter) Setup(e *echo.Echo) {
	e.POST("/webhooks/signwell", r.Webhooks.HandleSignWell)
}
