package controller

import (
	"io"

	"github.com/labstack/echo/v4"

	"meetbook/core/controller"
	"meetbook/core/errors"
	"meetbook/modules/document/service"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signwell-Signature"

const maxWebhookBody = 1 << 20

type WebhookController struct {
	controller.BaseController
	reactor service.WebhookReactorInterface
}

func NewWebhookController(reactor service.WebhookReactorInterface) *WebhookController {
	return &WebhookController{
		BaseController: controller.NewBaseController(),
		reactor:        reactor,
	}
}

func (c *WebhookController) HandleSignWell(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBody))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Failed to read request body")
	}

	if !c.reactor.VerifySignature(body, ctx.Request().Header.Get(SignatureHeader)) {
		return c.Unauthorized(errors.ErrWebhookAuth, "Invalid webhook signature")
	}

	result, appErr := c.reactor.Process(ctx.Request().Context(), body)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Webhook processed")
}
