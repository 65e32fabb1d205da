package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHealth struct {
	err error
}

func (s stubHealth) HealthCheck(ctx context.Context) error {
	return s.err
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"healthy store", nil, fiber.StatusOK, "ok"},
		{"failing store", errors.New("disk gone"), fiber.StatusServiceUnavailable, "degraded"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", NewHealthHandler(stubHealth{err: tc.err}, "1.0.0", time.Now().Add(-time.Minute)).GetHealth)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			payload := decodeBody(t, resp.Body)
			assert.Equal(t, tc.want, payload["status"])
			assert.Equal(t, "1.0.0", payload["version"])
		})
	}
}
