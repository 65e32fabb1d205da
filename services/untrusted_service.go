package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/autobot-tf/reputation-backend/models"
	"github.com/autobot-tf/reputation-backend/shared"
	"github.com/sirupsen/logrus"
)

const snapshotWriteTimeout = 30 * time.Second

// UntrustedSnapshotStore persists the last fetched untrusted list
type UntrustedSnapshotStore interface {
	GetUntrustedList(ctx context.Context) ([]byte, error)
	SaveUntrustedList(ctx context.Context, raw []byte) error
}

// UntrustedListConfig holds the settings of the community untrusted list source
type UntrustedListConfig struct {
	URL     string             `json:"url"`
	Version string             `json:"version"`
	Retry   shared.RetryPolicy `json:"retry"`
}

// DefaultUntrustedListConfig fetches from listURL with one retry after a timeout, 60 seconds per attempt
func DefaultUntrustedListConfig(listURL string) *UntrustedListConfig {
	return &UntrustedListConfig{
		URL:     listURL,
		Version: "dev",
		Retry:   shared.DefaultRetryPolicy(),
	}
}

// UntrustedListService looks SteamIDs up in the community untrusted list.
// Every successful fetch refreshes the persisted snapshot, which serves as fallback when the list is unreachable.
type UntrustedListService struct {
	client  sourceClient
	url     string
	retry   shared.RetryPolicy
	store   UntrustedSnapshotStore
	metrics *shared.ServiceMetrics
	pending sync.WaitGroup
}

func NewUntrustedListService(cfg *UntrustedListConfig, store UntrustedSnapshotStore, factory *shared.HTTPClientFactory, metrics *shared.ServiceMetrics) *UntrustedListService {
	if cfg == nil {
		cfg = DefaultUntrustedListConfig("")
	}

	clientConfig := &SourceClientConfig{
		BaseURL: cfg.URL,
		Version: cfg.Version,
		Timeout: cfg.Retry.Timeout,
	}

	return &UntrustedListService{
		client:  newSourceClient(string(models.SourceCommunityRegistry), clientConfig, factory),
		url:     cfg.URL,
		retry:   cfg.Retry,
		store:   store,
		metrics: metrics,
	}
}

// Check looks steamID up in the live list, retrying once after a timeout.
// If the list cannot be fetched the persisted snapshot answers instead; Check fails only when both are unavailable.
func (s *UntrustedListService) Check(ctx context.Context, steamID string) (models.SiteResult, error) {
	var raw []byte
	err := s.retry.Execute(ctx, "FetchUntrustedList", func(attemptCtx context.Context) error {
		body, fetchErr := s.fetchList(attemptCtx)
		if fetchErr != nil {
			return fetchErr
		}
		raw = body
		return nil
	})

	if err == nil {
		list, decodeErr := s.decode(raw)
		if decodeErr == nil {
			s.persistAsync(raw)
			return list.Lookup(steamID), nil
		}
		err = decodeErr
	}

	s.client.warn(err, steamID, "Failed to get data from Github")
	s.client.logger.Warn("Getting cached data...")

	list, fallbackErr := s.loadSnapshot(ctx)
	if fallbackErr != nil {
		s.client.logger.WithError(fallbackErr).Error("Error reading untrusted file")
		return models.SiteResult{}, err
	}

	s.metrics.RecordSourceFallback(s.client.name)
	return list.Lookup(steamID), nil
}

// Refresh fetches the list once and persists it before returning the raw JSON.
// A payload that is not a well-formed list is rejected and leaves the stored snapshot untouched.
func (s *UntrustedListService) Refresh(ctx context.Context) ([]byte, error) {
	attemptCtx := ctx
	if s.retry.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, s.retry.Timeout)
		defer cancel()
	}

	raw, err := s.fetchList(attemptCtx)
	if err != nil {
		return nil, err
	}
	if _, err := s.decode(raw); err != nil {
		return nil, err
	}

	s.persist(ctx, raw)
	return raw, nil
}

// Snapshot returns the live list, or the persisted copy when the live list cannot be fetched
func (s *UntrustedListService) Snapshot(ctx context.Context) ([]byte, error) {
	raw, err := s.Refresh(ctx)
	if err == nil {
		return raw, nil
	}

	s.client.logger.WithError(err).Warn("Failed to get data from Github, returning cached untrusted list")

	cached, readErr := s.store.GetUntrustedList(ctx)
	if readErr != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryStorage, "SNAPSHOT_UNAVAILABLE",
			"untrusted list is unreachable and no snapshot is stored", s.client.name, "Snapshot", false, readErr)
	}

	s.metrics.RecordSourceFallback(s.client.name)
	return cached, nil
}

// Wait blocks until background snapshot writes have finished
func (s *UntrustedListService) Wait() {
	s.pending.Wait()
}

func (s *UntrustedListService) fetchList(ctx context.Context) ([]byte, error) {
	return s.client.fetch(ctx, http.MethodGet, s.url, nil, "FetchUntrustedList")
}

func (s *UntrustedListService) decode(raw []byte) (*models.UntrustedList, error) {
	var list models.UntrustedList
	if err := shared.DecodeJSON(raw, &list, s.client.name, "DecodeUntrustedList"); err != nil {
		return nil, err
	}
	if list.SteamIDs == nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryBadData, "STEAMIDS_MISSING",
			"untrusted list has no steamids object", s.client.name, "DecodeUntrustedList", false, nil).
			WithDetails(map[string]int{"bytes": len(raw)})
	}
	return &list, nil
}

func (s *UntrustedListService) loadSnapshot(ctx context.Context) (*models.UntrustedList, error) {
	raw, err := s.store.GetUntrustedList(ctx)
	if err != nil {
		return nil, err
	}
	return s.decode(raw)
}

func (s *UntrustedListService) persistAsync(raw []byte) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
		defer cancel()
		s.persist(ctx, raw)
	}()
}

func (s *UntrustedListService) persist(ctx context.Context, raw []byte) {
	err := s.store.SaveUntrustedList(ctx, raw)
	s.metrics.RecordStoreWrite("untrusted_list", err == nil)
	if err != nil {
		s.client.logger.WithFields(logrus.Fields{
			"bytes": len(raw),
		}).WithError(err).Error("Error saving untrusted file")
	}
}
