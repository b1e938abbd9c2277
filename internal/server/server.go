package server

import (
	"productos/internal/docs"
	"productos/internal/events"
	"productos/internal/handlers"
	"productos/internal/middleware"
	"productos/internal/repositories"
	"productos/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Store is what the HTTP layer needs from a product store.
type Store interface {
	repositories.ProductRepository
	repositories.HealthReporter
}

// NewApp wires handlers over store and returns a ready fiber app.
// Product routes live under apiPrefix; /health, /docs and / stay at the root.
func NewApp(store Store, publisher events.Publisher, apiPrefix string) *fiber.App {
	productService := services.NewProductService(store, publisher)
	productHandler := handlers.NewProductHandler(productService)
	healthHandler := handlers.NewHealthHandler(store)

	app := fiber.New(fiber.Config{
		AppName:      "productos",
		ErrorHandler: middleware.ErrorHandler,
	})
	middleware.Setup(app)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/docs", fiber.StatusFound)
	})
	app.Get("/health", healthHandler.HandleHealth)
	docs.RegisterRoutes(app, apiPrefix)

	productHandler.RegisterRoutes(app.Group(apiPrefix))

	return app
}
