package main

import (
	"fmt"
	"log"

	"github.com/ToolDockHQ/ToolDock/internal/pkg/billing"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/cache"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/database"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/env"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/router"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	app := NewApplication()

	sweeper := billing.NewSweeper(
		billing.NewRepository(database.GetDB()),
		billing.NewStripeClient(env.GetEnv("STRIPE_SECRET_KEY", "")),
	)
	if err := sweeper.Start(env.GetEnv("SWEEP_SCHEDULE", "0 3 * * *")); err != nil {
		log.Fatal(err)
	}
	defer sweeper.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		EnablePrintRoutes: env.IsDev(),
	})
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
