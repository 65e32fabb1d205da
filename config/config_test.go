package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "CACHE_TTL_HOURS", "ERROR_RETRY_MINUTES", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW_MS", "STORE_DRIVER", "UNTRUSTED_REFRESH_INTERVAL_MINUTES", "METRICS_ENABLED"} {
		t.Setenv(key, "")
	}
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BPTF_API_KEY", "bptf")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "bptf", cfg.BackpackAPIKey)
	assert.Equal(t, 24*time.Hour, cfg.GetCacheTTL())
	assert.Equal(t, 3*time.Minute, cfg.GetErrorRetryWindow())
	assert.Equal(t, time.Hour, cfg.GetUntrustedRefreshInterval())
	assert.Equal(t, 30*time.Second, cfg.GetHTTPTimeout())
	assert.Equal(t, DefaultRateLimitConfig(), cfg.GetRateLimitConfig())
	assert.Equal(t, DefaultFreshnessConfig(), cfg.GetFreshnessConfig())
}

func TestConfigOverrides(t *testing.T) {
	cfg := &Config{
		CacheTTLHours:              "12",
		ErrorRetryMinutes:          "5",
		HTTPTimeoutSeconds:         "10",
		RateLimitMax:               "10",
		RateLimitWindowMs:          "60000",
		UntrustedRefreshIntervalMn: "0",
	}

	assert.Equal(t, 12*time.Hour, cfg.GetCacheTTL())
	assert.Equal(t, 5*time.Minute, cfg.GetErrorRetryWindow())
	assert.Equal(t, 10*time.Second, cfg.GetHTTPTimeout())
	assert.Equal(t, &RateLimitConfig{Max: 10, Window: time.Minute}, cfg.GetRateLimitConfig())
	assert.Zero(t, cfg.GetUntrustedRefreshInterval())
	assert.Equal(t, &FreshnessConfig{MaxAge: 12 * time.Hour, ErrorRetryWindow: 5 * time.Minute}, cfg.GetFreshnessConfig())
}

func TestConfigInvalidValuesFallBack(t *testing.T) {
	cfg := &Config{
		CacheTTLHours:     "-1",
		ErrorRetryMinutes: "soon",
		RateLimitMax:      "zero",
		RateLimitWindowMs: "0",
	}

	assert.Equal(t, 24*time.Hour, cfg.GetCacheTTL())
	assert.Equal(t, 3*time.Minute, cfg.GetErrorRetryWindow())
	assert.Equal(t, DefaultRateLimitConfig(), cfg.GetRateLimitConfig())
}
