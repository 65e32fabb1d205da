package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort         string
	Version            string
	LogLevel           string
	LogFormat          string
	PublicDir          string
	DataDir            string
	StoreDriver        string
	DatabaseURL        string
	BackpackAPIKey     string
	MarketplaceAPIKey  string
	BackpackAPIURL     string
	MarketplaceAPIURL  string
	SteamRepAPIURL     string
	UntrustedListURL   string
	TrustedProxyHeader string
	MetricsEnabled     bool

	CacheTTLHours              string
	ErrorRetryMinutes          string
	HTTPTimeoutSeconds         string
	RateLimitMax               string
	RateLimitWindowMs          string
	UntrustedRefreshIntervalMn string
}

// RateLimitConfig holds the per-caller request ceiling for the /json routes
type RateLimitConfig struct {
	Max    int           `json:"max"`
	Window time.Duration `json:"window"`
}

// DefaultRateLimitConfig returns the default burst ceiling: 2 requests per second per caller
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Max:    2,
		Window: 1 * time.Second,
	}
}

// FreshnessConfig holds the cache freshness windows for reputation records
type FreshnessConfig struct {
	MaxAge           time.Duration `json:"max_age"`
	ErrorRetryWindow time.Duration `json:"error_retry_window"`
}

// DefaultFreshnessConfig returns the default windows: records live for a day, errored ones for 3 minutes
func DefaultFreshnessConfig() *FreshnessConfig {
	return &FreshnessConfig{
		MaxAge:           24 * time.Hour,
		ErrorRetryWindow: 3 * time.Minute,
	}
}

// GetCacheTTL returns the cache TTL from environment or default
func (c *Config) GetCacheTTL() time.Duration {
	if c.CacheTTLHours == "" {
		return 24 * time.Hour
	}

	hours, err := strconv.Atoi(c.CacheTTLHours)
	if err != nil || hours <= 0 {
		logrus.Warnf("Invalid CACHE_TTL_HOURS value: %s, using default 24 hours", c.CacheTTLHours)
		return 24 * time.Hour
	}

	return time.Duration(hours) * time.Hour
}

// GetErrorRetryWindow returns how long an errored record is served before it is refreshed
func (c *Config) GetErrorRetryWindow() time.Duration {
	return c.minutesOr("ERROR_RETRY_MINUTES", c.ErrorRetryMinutes, 3*time.Minute)
}

// GetUntrustedRefreshInterval returns the refresh period of the untrusted list job; zero disables it
func (c *Config) GetUntrustedRefreshInterval() time.Duration {
	if c.UntrustedRefreshIntervalMn == "0" {
		return 0
	}
	return c.minutesOr("UNTRUSTED_REFRESH_INTERVAL_MINUTES", c.UntrustedRefreshIntervalMn, time.Hour)
}

// GetHTTPTimeout returns the default outbound request timeout
func (c *Config) GetHTTPTimeout() time.Duration {
	seconds, err := strconv.Atoi(c.HTTPTimeoutSeconds)
	if err != nil || seconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

// GetRateLimitConfig merges RATE_LIMIT_* overrides into the default rate limit config
func (c *Config) GetRateLimitConfig() *RateLimitConfig {
	rl := DefaultRateLimitConfig()

	if limit, err := strconv.Atoi(c.RateLimitMax); err == nil && limit > 0 {
		rl.Max = limit
	} else if c.RateLimitMax != "" {
		logrus.Warnf("Invalid RATE_LIMIT_MAX value: %s, using default %d", c.RateLimitMax, rl.Max)
	}

	if ms, err := strconv.Atoi(c.RateLimitWindowMs); err == nil && ms > 0 {
		rl.Window = time.Duration(ms) * time.Millisecond
	} else if c.RateLimitWindowMs != "" {
		logrus.Warnf("Invalid RATE_LIMIT_WINDOW_MS value: %s, using default %v", c.RateLimitWindowMs, rl.Window)
	}

	return rl
}

// GetFreshnessConfig returns the freshness windows derived from CACHE_TTL_HOURS and ERROR_RETRY_MINUTES
func (c *Config) GetFreshnessConfig() *FreshnessConfig {
	return &FreshnessConfig{
		MaxAge:           c.GetCacheTTL(),
		ErrorRetryWindow: c.GetErrorRetryWindow(),
	}
}

func (c *Config) minutesOr(key, raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		logrus.Warnf("Invalid %s value: %s, using default %v", key, raw, fallback)
		return fallback
	}

	return time.Duration(minutes) * time.Minute
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		Version:            getEnv("VERSION", "dev"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		PublicDir:          getEnv("PUBLIC_DIR", "./public"),
		DataDir:            getEnv("DATA_DIR", "./public/files"),
		StoreDriver:        getEnv("STORE_DRIVER", "file"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		BackpackAPIKey:     getEnv("BPTF_API_KEY", ""),
		MarketplaceAPIKey:  getEnv("MPTF_API_KEY", ""),
		BackpackAPIURL:     getEnv("BACKPACK_API_URL", "https://api.backpack.tf"),
		MarketplaceAPIURL:  getEnv("MARKETPLACE_API_URL", "https://marketplace.tf"),
		SteamRepAPIURL:     getEnv("STEAMREP_API_URL", "https://steamrep.com"),
		UntrustedListURL:   getEnv("UNTRUSTED_LIST_URL", "https://raw.githubusercontent.com/TF2Autobot/untrusted-steam-ids/master/untrusted.min.json"),
		TrustedProxyHeader: getEnv("TRUSTED_PROXY_HEADER", ""),
		MetricsEnabled:     getEnv("METRICS_ENABLED", "true") == "true",

		CacheTTLHours:              getEnv("CACHE_TTL_HOURS", "24"),
		ErrorRetryMinutes:          getEnv("ERROR_RETRY_MINUTES", "3"),
		HTTPTimeoutSeconds:         getEnv("HTTP_TIMEOUT_SECONDS", "30"),
		RateLimitMax:               getEnv("RATE_LIMIT_MAX", "2"),
		RateLimitWindowMs:          getEnv("RATE_LIMIT_WINDOW_MS", "1000"),
		UntrustedRefreshIntervalMn: getEnv("UNTRUSTED_REFRESH_INTERVAL_MINUTES", "60"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
