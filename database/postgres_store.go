package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/autobot-tf/reputation-backend/models"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PoolConfig holds database connection pool configuration
type PoolConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// DefaultPoolConfig returns production-ready pool defaults
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS reputation_cache (
	steam_id   TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS untrusted_snapshot (
	id         SMALLINT PRIMARY KEY CHECK (id = 1),
	payload    JSON NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PostgresStore keeps reputation records and the untrusted snapshot in Postgres
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore connects with the given pool configuration and applies the schema
func NewPostgresStore(ctx context.Context, dbURL string, config *PoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, config.PingTimeout)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{DB: db}
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"component":          "PostgresStore",
		"max_open_conns":     config.MaxOpenConns,
		"max_idle_conns":     config.MaxIdleConns,
		"conn_max_lifetime":  config.ConnMaxLifetime,
		"conn_max_idle_time": config.ConnMaxIdleTime,
	}).Info("Connected to database successfully")

	return store, nil
}

// Migrate creates the cache tables if they do not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReputation(ctx context.Context, steamID string) (*models.ReputationRecord, error) {
	var raw []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT record FROM reputation_cache WHERE steam_id = $1`, steamID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reputation record: %w", err)
	}

	var record models.ReputationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("%w: reputation_cache[%s]: %v", ErrCorrupt, steamID, err)
	}

	return &record, nil
}

func (s *PostgresStore) SaveReputation(ctx context.Context, steamID string, record *models.ReputationRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode reputation record: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO reputation_cache (steam_id, record, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (steam_id) DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`,
		steamID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reputation record: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetUntrustedList(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := s.DB.QueryRowContext(ctx, `SELECT payload FROM untrusted_snapshot WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query untrusted snapshot: %w", err)
	}

	return raw, nil
}

func (s *PostgresStore) SaveUntrustedList(ctx context.Context, raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("refusing to persist invalid untrusted list JSON")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO untrusted_snapshot (id, payload, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert untrusted snapshot: %w", err)
	}

	return nil
}

// HealthCheck pings the database and logs the connection pool statistics
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	stats := s.DB.Stats()
	logrus.WithFields(logrus.Fields{
		"component":            "PostgresStore",
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration,
	}).Debug("Database connection pool health check")

	return nil
}

func (s *PostgresStore) Close() error {
	if s.DB == nil {
		return nil
	}
	logrus.Info("Database connection closed")
	return s.DB.Close()
}
