package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soundrift/billingsync/app/controllers"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Billing provider webhooks (no service token, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
