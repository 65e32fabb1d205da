package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/autobot-tf/reputation-backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	reputationDirName = "reputation"
	untrustedFileName = "untrusted.json"
)

// FileStore keeps one JSON file per SteamID under <dir>/reputation and the untrusted list at <dir>/untrusted.json.
// Writes go through a temp file and a rename, so readers never observe a partial record.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory layout under dir if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store requires a data directory")
	}

	if err := os.MkdirAll(filepath.Join(dir, reputationDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reputation directory: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "FileStore",
		"dir":       dir,
	}).Info("File store ready")

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) reputationPath(steamID string) (string, error) {
	if steamID == "" || strings.ContainsAny(steamID, `/\.`) {
		return "", fmt.Errorf("invalid store key %q", steamID)
	}
	return filepath.Join(s.dir, reputationDirName, steamID+".json"), nil
}

func (s *FileStore) untrustedPath() string {
	return filepath.Join(s.dir, untrustedFileName)
}

func (s *FileStore) GetReputation(ctx context.Context, steamID string) (*models.ReputationRecord, error) {
	path, err := s.reputationPath(steamID)
	if err != nil {
		return nil, err
	}

	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}

	var record models.ReputationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	return &record, nil
}

func (s *FileStore) SaveReputation(ctx context.Context, steamID string, record *models.ReputationRecord) error {
	path, err := s.reputationPath(steamID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode reputation record: %w", err)
	}

	return writeFileAtomic(ctx, path, data)
}

func (s *FileStore) GetUntrustedList(ctx context.Context) ([]byte, error) {
	data, err := readFile(ctx, s.untrustedPath())
	if err != nil {
		return nil, err
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, s.untrustedPath())
	}

	return data, nil
}

func (s *FileStore) SaveUntrustedList(ctx context.Context, raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("refusing to persist invalid untrusted list JSON")
	}
	return writeFileAtomic(ctx, s.untrustedPath(), raw)
}

// HealthCheck verifies the data directory still accepts writes
func (s *FileStore) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	probe, err := os.CreateTemp(filepath.Join(s.dir, reputationDirName), ".health-*")
	if err != nil {
		return fmt.Errorf("data directory not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

func (s *FileStore) Close() error {
	return nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

func writeFileAtomic(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
