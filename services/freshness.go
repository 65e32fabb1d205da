package services

import (
	"time"

	"github.com/autobot-tf/reputation-backend/config"
	"github.com/autobot-tf/reputation-backend/models"
)

// FreshnessPolicy decides whether a cached record can be served without refreshing
type FreshnessPolicy struct {
	MaxAge           time.Duration
	ErrorRetryWindow time.Duration
}

// NewFreshnessPolicy builds a policy from configuration, falling back to the defaults for unset windows
func NewFreshnessPolicy(cfg *config.FreshnessConfig) FreshnessPolicy {
	defaults := config.DefaultFreshnessConfig()
	if cfg == nil {
		cfg = defaults
	}

	policy := FreshnessPolicy{MaxAge: cfg.MaxAge, ErrorRetryWindow: cfg.ErrorRetryWindow}
	if policy.MaxAge <= 0 {
		policy.MaxAge = defaults.MaxAge
	}
	if policy.ErrorRetryWindow <= 0 {
		policy.ErrorRetryWindow = defaults.ErrorRetryWindow
	}
	return policy
}

// IsFresh reports whether record is usable as-is at now.
// Every record goes stale after MaxAge; records written with errors only stay fresh for ErrorRetryWindow.
func (p FreshnessPolicy) IsFresh(record *models.ReputationRecord, now time.Time) bool {
	if record == nil {
		return false
	}

	age := now.Sub(record.LastUpdatedAt())
	if age >= p.MaxAge {
		return false
	}
	if record.WithError {
		return age < p.ErrorRetryWindow
	}
	return true
}
