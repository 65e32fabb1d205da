package handlers

import (
	"github.com/autobot-tf/reputation-backend/config"
	"github.com/autobot-tf/reputation-backend/shared"
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the /json routes behind the per-caller rate limiter
func RegisterRoutes(router fiber.Router, reputation *ReputationHandler, untrusted *UntrustedHandler, rateLimit *config.RateLimitConfig) {
	if rateLimit == nil {
		rateLimit = config.DefaultRateLimitConfig()
	}

	api := router.Group("/json", shared.NewRequestRateLimiter(rateLimit.Max, rateLimit.Window))
	api.Get("/github/untrusted", untrusted.GetUntrustedList)
	api.Get("/:steamid?", reputation.GetReputation)
}
