package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// UntrustedListProvider returns the latest untrusted list JSON, live or cached
type UntrustedListProvider interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

type UntrustedHandler struct {
	Service UntrustedListProvider
}

func NewUntrustedHandler(service UntrustedListProvider) *UntrustedHandler {
	return &UntrustedHandler{Service: service}
}

// GetUntrustedList serves GET /json/github/untrusted with the list JSON exactly as fetched
func (h *UntrustedHandler) GetUntrustedList(c *fiber.Ctx) error {
	logger := logrus.WithField("component", "UntrustedHandler")
	logger.Info("Got GET /json/github/untrusted request")

	raw, err := h.Service.Snapshot(c.UserContext())
	if err != nil {
		logger.WithError(err).Error("Error while reading the untrusted file")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error while reading the file.",
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}
