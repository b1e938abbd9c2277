package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"
)

// Setup installs the middleware chain shared by every route: panic recovery,
// request ids, a permissive CORS policy and the access log.
func Setup(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,HEAD,OPTIONS",
		AllowHeaders: "*",
	}))
	app.Use(logger.New(logger.Config{
		Format: "${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: log.StandardLogger().Writer(),
	}))
}

// ErrorHandler renders errors that escape handlers (unknown routes, wrong
// methods, recovered panics) in the same JSON shape as handler errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	if code >= fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).WithError(err).Error("unhandled error")
	}

	return c.Status(code).JSON(fiber.Map{
		"message": fiber.NewError(code).Message,
		"error":   err.Error(),
	})
}
