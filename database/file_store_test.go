package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/autobot-tf/reputation-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *models.ReputationRecord {
	return &models.ReputationRecord{
		IsBanned:                   true,
		IsBannedExcludeMarketplace: false,
		Contents: models.SourceContents{
			models.SourceCommunityRegistry: models.Outcome(models.SiteResult{IsBanned: false}),
			models.SourceMarketplace:       models.Outcome(models.SiteResult{IsBanned: true, Content: "SCAMMER"}),
			models.SourcePrimaryRegistry:   models.ErrorOutcome(),
			models.SourceReputationSite:    models.Outcome(models.SiteResult{IsBanned: false}),
		},
		ObtainedTime: 1700000000,
		LastUpdate:   1700000100,
		WithError:    true,
	}
}

func TestFileStoreReputationRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GetReputation(ctx, "76561198000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveReputation(ctx, "76561198000000000", sampleRecord()))

	got, err := store.GetReputation(ctx, "76561198000000000")
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), got)

	updated := sampleRecord()
	updated.LastUpdate = 1700000200
	require.NoError(t, store.SaveReputation(ctx, "76561198000000000", updated))

	got, err = store.GetReputation(ctx, "76561198000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000200), got.LastUpdate)

	entries, err := os.ReadDir(filepath.Join(dir, reputationDirName))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "overwrites in place and leaves no temp files")
}

func TestFileStoreCorruptRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, reputationDirName, "76561198000000000.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"isBanned": tr`), 0o644))

	_, err = store.GetReputation(ctx, "76561198000000000")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		err := store.SaveReputation(context.Background(), key, sampleRecord())
		assert.Error(t, err, key)
	}
}

func TestFileStoreUntrustedList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.GetUntrustedList(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.SaveUntrustedList(ctx, []byte("not json")))

	raw := []byte(`{"last_update":1700000000,"steamids":{"76561198000000001":{"reason":"r","source":"s","time":1}}}`)
	require.NoError(t, store.SaveUntrustedList(ctx, raw))

	got, err := store.GetUntrustedList(ctx)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, untrustedFileName), []byte("{"), 0o644))
	_, err = store.GetUntrustedList(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = Open(ctx, Options{Driver: "postgres"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: "redis", DataDir: t.TempDir()})
	assert.Error(t, err)
}

func TestFileStoreHealthCheck(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.HealthCheck(context.Background()))

	entries, err := os.ReadDir(filepath.Join(dir, reputationDirName))
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, store.HealthCheck(context.Background()))
}
