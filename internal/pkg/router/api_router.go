package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/soundrift/billingsync/app/controllers"
	"github.com/soundrift/billingsync/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	// API v1 routes, consumed by the main application with the shared
	// service token.
	v1 := api.Group("/v1", middleware.ServiceAuthMiddleware())
	v1.Post("/portal-link", controllers.HandlePortalLink)
	v1.Get("/users/:id/subscription", controllers.HandleUserSubscription)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
