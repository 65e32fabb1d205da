package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// HealthChecker is implemented by the reputation store backends
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	Store     HealthChecker
	Version   string
	StartedAt time.Time
}

func NewHealthHandler(store HealthChecker, version string, startedAt time.Time) *HealthHandler {
	return &HealthHandler{Store: store, Version: version, StartedAt: startedAt}
}

// GetHealth serves GET /health; a failing store degrades the service to 503
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"version":   h.Version,
		"uptime":    time.Since(h.StartedAt).Round(time.Second).String(),
		"timestamp": time.Now().Unix(),
	}

	if err := h.Store.HealthCheck(c.UserContext()); err != nil {
		logrus.WithField("component", "HealthHandler").WithError(err).Warn("Store health check failed")
		body["status"] = "degraded"
		body["error"] = "store unavailable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}

	return c.JSON(body)
}
