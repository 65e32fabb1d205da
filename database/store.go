package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/autobot-tf/reputation-backend/models"
)

// ErrNotFound is returned when nothing has been persisted under a key yet
var ErrNotFound = errors.New("not found in store")

// ErrCorrupt is returned when a persisted entry exists but cannot be decoded
var ErrCorrupt = errors.New("corrupt store entry")

// ReputationStore persists one ReputationRecord per SteamID and the shared untrusted list snapshot
type ReputationStore interface {
	GetReputation(ctx context.Context, steamID string) (*models.ReputationRecord, error)
	SaveReputation(ctx context.Context, steamID string, record *models.ReputationRecord) error
	// GetUntrustedList returns the snapshot exactly as it was saved
	GetUntrustedList(ctx context.Context) ([]byte, error)
	SaveUntrustedList(ctx context.Context, raw []byte) error
	// HealthCheck reports whether the backend can currently serve reads and writes
	HealthCheck(ctx context.Context) error
	Close() error
}

// Options selects and configures a store backend
type Options struct {
	Driver      string
	DataDir     string
	DatabaseURL string
}

// Open builds the store backend named by opts.Driver ("file" or "postgres")
func Open(ctx context.Context, opts Options) (ReputationStore, error) {
	switch opts.Driver {
	case "", "file":
		return NewFileStore(opts.DataDir)
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres store requires DATABASE_URL")
		}
		return NewPostgresStore(ctx, opts.DatabaseURL, DefaultPoolConfig())
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
