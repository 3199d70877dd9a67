package router

import (
	"github.com/ToolDockHQ/ToolDock/app/controllers"
	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	billing := app.Group("/billing")
	billing.Post("/webhook", controllers.HandleStripeWebhook)
	billing.Post("/checkout", controllers.HandleStartCheckout)
	billing.Post("/change", controllers.HandleScheduleChange)

	admin := app.Group("/admin/billing")
	admin.Post("/sync/:subscriptionID", controllers.HandleAdminSyncSubscription)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
