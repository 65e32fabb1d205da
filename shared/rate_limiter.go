package shared

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/sirupsen/logrus"
)

// NewRequestRateLimiter returns a per-caller burst limiter keyed on the client IP.
// Rejections are answered with 429 before the wrapped handlers run.
func NewRequestRateLimiter(limit int, window time.Duration) fiber.Handler {
	if limit <= 0 {
		limit = 2
	}
	if window <= 0 {
		window = time.Second
	}

	message := fmt.Sprintf("You have exceeded the %d requests/%s limit!", limit, describeWindow(window))

	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			logrus.WithFields(logrus.Fields{
				"component": "RequestRateLimiter",
				"ip":        c.IP(),
				"path":      c.Path(),
			}).Debug("Rate limit exceeded")

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": message,
			})
		},
	})
}

func describeWindow(window time.Duration) string {
	if window == time.Second {
		return "second"
	}
	if window == time.Minute {
		return "minute"
	}
	return window.String()
}
