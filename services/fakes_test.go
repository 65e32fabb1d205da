package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autobot-tf/reputation-backend/database"
	"github.com/autobot-tf/reputation-backend/models"
)

type fakeSource struct {
	result  models.SiteResult
	err     error
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func succeeding(banned bool, content string) *fakeSource {
	return &fakeSource{result: models.SiteResult{IsBanned: banned, Content: content}}
}

func failing(err error) *fakeSource {
	return &fakeSource{err: err}
}

func (f *fakeSource) Check(ctx context.Context, steamID string) (models.SiteResult, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.release != nil {
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return models.SiteResult{}, err
	}
	return f.result, f.err
}

type fakePrimary struct {
	verdict *BackpackVerdict
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (f *fakePrimary) Check(ctx context.Context, steamID string) (*BackpackVerdict, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

func primaryBan(banned, steamRepScammer bool, reason string) *fakePrimary {
	return &fakePrimary{verdict: &BackpackVerdict{
		Ban:            models.SiteResult{IsBanned: banned, Content: reason},
		SteamRepSignal: models.SiteResult{IsBanned: steamRepScammer, Content: reason},
	}}
}

// memoryStore round-trips records through JSON like the real backends
type memoryStore struct {
	mu        sync.Mutex
	records   map[string][]byte
	untrusted []byte
	getErr    error
	saveErr   error
	saves     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string][]byte)}
}

func (m *memoryStore) GetReputation(ctx context.Context, steamID string) (*models.ReputationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	raw, ok := m.records[steamID]
	if !ok {
		return nil, database.ErrNotFound
	}

	var record models.ReputationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (m *memoryStore) SaveReputation(ctx context.Context, steamID string, record *models.ReputationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	m.records[steamID] = raw
	m.saves++
	return nil
}

func (m *memoryStore) put(steamID string, record *models.ReputationRecord) {
	raw, err := json.Marshal(record)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	m.records[steamID] = raw
	m.mu.Unlock()
}

func (m *memoryStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memoryStore) GetUntrustedList(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.untrusted == nil {
		return nil, database.ErrNotFound
	}
	return append([]byte(nil), m.untrusted...), nil
}

func (m *memoryStore) SaveUntrustedList(ctx context.Context, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.untrusted = append([]byte(nil), raw...)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
