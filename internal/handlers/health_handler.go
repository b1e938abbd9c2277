package handlers

import (
	"context"
	"time"

	"productos/internal/repositories"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// HealthHandler reports service and database status.
type HealthHandler struct {
	store   repositories.HealthReporter
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store repositories.HealthReporter) *HealthHandler {
	return &HealthHandler{store: store, timeout: 2 * time.Second}
}

// HandleHealth checks connectivity and counts every product row.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	connected := true
	if err := h.store.Ping(ctx); err != nil {
		log.WithError(err).Warn("database ping failed")
		connected = false
	}

	total, err := h.store.CountAll(ctx)
	if err != nil {
		log.WithError(err).Error("health check failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Database error: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":        "healthy",
		"database":      h.store.Backend(),
		"connected":     connected,
		"totalProducts": total,
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}
