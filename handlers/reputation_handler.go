package handlers

import (
	"context"
	"errors"
	"net/url"

	"github.com/autobot-tf/reputation-backend/models"
	"github.com/autobot-tf/reputation-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ReputationEvaluator produces the aggregated record of a SteamID64
type ReputationEvaluator interface {
	Evaluate(ctx context.Context, steamID string) (*models.ReputationRecord, error)
}

type ReputationHandler struct {
	Service ReputationEvaluator
}

func NewReputationHandler(service ReputationEvaluator) *ReputationHandler {
	return &ReputationHandler{Service: service}
}

// GetReputation serves GET /json/:steamid
func (h *ReputationHandler) GetReputation(c *fiber.Ctx) error {
	input, err := url.PathUnescape(c.Params("steamid"))
	if err != nil {
		input = c.Params("steamid")
	}
	checkMarketplace := c.QueryBool("checkMptf", false)

	logger := logrus.WithFields(logrus.Fields{
		"component":  "ReputationHandler",
		"input":      input,
		"check_mptf": checkMarketplace,
	})
	logger.Debugf("Got /json/%s", input)

	if input == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "SteamID undefined.",
		})
	}

	steamID, err := services.ParseSteamID(input)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "SteamID entered not valid.",
		})
	}

	record, err := h.Service.Evaluate(c.UserContext(), steamID)
	if err != nil {
		fields := logrus.Fields{"steam_id": steamID}
		if errors.Is(err, services.ErrAggregationUnavailable) {
			fields["reason"] = "aggregation_unavailable"
		}
		logger.WithFields(fields).WithError(err).Error("Error on checkReputation")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error while getting reputation results.",
		})
	}

	return c.JSON(record)
}
