package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/autobot-tf/reputation-backend/database"
	"github.com/autobot-tf/reputation-backend/models"
	"github.com/autobot-tf/reputation-backend/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrAggregationUnavailable is returned when no source answered, nothing was cached and the new record could not be stored
var ErrAggregationUnavailable = errors.New("reputation aggregation unavailable")

// SourceChecker is a reputation source answering with one verdict per SteamID
type SourceChecker interface {
	Check(ctx context.Context, steamID string) (models.SiteResult, error)
}

// PrimaryChecker is the primary ban registry, which also reports the steamrep signal
type PrimaryChecker interface {
	Check(ctx context.Context, steamID string) (*BackpackVerdict, error)
}

// RecordStore persists one ReputationRecord per SteamID
type RecordStore interface {
	GetReputation(ctx context.Context, steamID string) (*models.ReputationRecord, error)
	SaveReputation(ctx context.Context, steamID string, record *models.ReputationRecord) error
}

// ReputationSources groups the four upstream sources queried on every refresh
type ReputationSources struct {
	Community      SourceChecker
	Marketplace    SourceChecker
	Primary        PrimaryChecker
	ReputationSite SourceChecker
}

// ReputationServiceOptions tunes a ReputationService; zero values select the defaults
type ReputationServiceOptions struct {
	Freshness FreshnessPolicy
	Metrics   *shared.ServiceMetrics
	Now       func() time.Time
}

// ReputationService aggregates the four sources into one cached ReputationRecord per SteamID
type ReputationService struct {
	sources   ReputationSources
	store     RecordStore
	freshness FreshnessPolicy
	metrics   *shared.ServiceMetrics
	now       func() time.Time
	inflight  singleflight.Group
	logger    *logrus.Entry
}

func NewReputationService(sources ReputationSources, store RecordStore, opts ReputationServiceOptions) *ReputationService {
	freshness := opts.Freshness
	if freshness.MaxAge <= 0 || freshness.ErrorRetryWindow <= 0 {
		freshness = NewFreshnessPolicy(nil)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &ReputationService{
		sources:   sources,
		store:     store,
		freshness: freshness,
		metrics:   opts.Metrics,
		now:       now,
		logger:    logrus.WithField("component", "ReputationService"),
	}
}

// settledQuery is the outcome of one source query
type settledQuery struct {
	result models.SiteResult
	err    error
}

// Evaluate returns the ReputationRecord of steamID, serving the cached record while it is fresh.
// Concurrent calls for the same SteamID share one refresh. The returned record must not be modified.
func (s *ReputationService) Evaluate(ctx context.Context, steamID string) (*models.ReputationRecord, error) {
	// sources run to completion even if the caller goes away
	detached := context.WithoutCancel(ctx)

	value, err, _ := s.inflight.Do(steamID, func() (interface{}, error) {
		return s.evaluate(detached, steamID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*models.ReputationRecord), nil
}

func (s *ReputationService) evaluate(ctx context.Context, steamID string) (*models.ReputationRecord, error) {
	logger := s.logger.WithField("steam_id", steamID)

	prior := s.loadCached(ctx, steamID, logger)
	if prior != nil && s.freshness.IsFresh(prior, s.now()) {
		s.metrics.RecordCacheLookup(shared.CacheHit)
		logger.Debug("Serving cached reputation record")
		return prior, nil
	}
	if prior != nil {
		s.metrics.RecordCacheLookup(shared.CacheStale)
	}

	startTime := time.Now()
	settled := s.querySources(ctx, steamID, logger)
	record := mergeRecord(prior, settled, s.now())

	failed := 0
	for _, query := range settled {
		if query.err != nil {
			failed++
		}
	}

	if err := s.store.SaveReputation(ctx, steamID, record); err != nil {
		s.metrics.RecordStoreWrite("reputation", false)
		if prior == nil && failed == len(models.AllSources) {
			logger.WithError(err).Error("All sources failed and the record could not be stored")
			return nil, fmt.Errorf("%w: %w", ErrAggregationUnavailable, err)
		}
		logger.WithError(err).Error("Failed to persist reputation record")
	} else {
		s.metrics.RecordStoreWrite("reputation", true)
	}

	duration := time.Since(startTime)
	s.metrics.RecordEvaluation(duration, record.WithError)
	logger.WithFields(logrus.Fields{
		"is_banned":      record.IsBanned,
		"failed_sources": failed,
		"with_error":     record.WithError,
		"error_entries":  record.ErrorCount(),
		"first_seen":     record.ObtainedAt(),
		"duration":       duration,
	}).Info("Refreshed reputation record")

	return record, nil
}

// loadCached returns the stored record, or nil when there is none or it cannot be read
func (s *ReputationService) loadCached(ctx context.Context, steamID string, logger *logrus.Entry) *models.ReputationRecord {
	record, err := s.store.GetReputation(ctx, steamID)
	switch {
	case err == nil:
		return record
	case errors.Is(err, database.ErrNotFound):
		s.metrics.RecordCacheLookup(shared.CacheMiss)
	default:
		s.metrics.RecordCacheLookup(shared.CacheUnreadable)
		logger.WithError(err).Warn("Cached reputation record unreadable, refreshing")
	}
	return nil
}

// querySources runs every source concurrently and waits for all of them to settle.
// A failed steamrep query is answered by backpack.tf's steamrep signal when the primary query succeeded.
func (s *ReputationService) querySources(ctx context.Context, steamID string, logger *logrus.Entry) map[models.SourceName]settledQuery {
	var (
		wg          sync.WaitGroup
		community   settledQuery
		marketplace settledQuery
		primary     settledQuery
		site        settledQuery
		secondary   *models.SiteResult
	)
	primaryDone := make(chan struct{})

	wg.Add(len(models.AllSources))

	go func() {
		defer wg.Done()
		community = s.observe(models.SourceCommunityRegistry, func() (models.SiteResult, error) {
			return s.sources.Community.Check(ctx, steamID)
		})
	}()

	go func() {
		defer wg.Done()
		marketplace = s.observe(models.SourceMarketplace, func() (models.SiteResult, error) {
			return s.sources.Marketplace.Check(ctx, steamID)
		})
	}()

	go func() {
		defer wg.Done()
		defer close(primaryDone)
		primary = s.observe(models.SourcePrimaryRegistry, func() (models.SiteResult, error) {
			verdict, err := s.sources.Primary.Check(ctx, steamID)
			if err != nil {
				return models.SiteResult{}, err
			}
			signal := verdict.SteamRepSignal
			secondary = &signal
			return verdict.Ban, nil
		})
	}()

	go func() {
		defer wg.Done()
		site = s.observe(models.SourceReputationSite, func() (models.SiteResult, error) {
			return s.sources.ReputationSite.Check(ctx, steamID)
		})
		if site.err == nil {
			return
		}

		<-primaryDone
		if secondary != nil {
			logger.Warn("SteamRep unavailable, using backpack.tf steamrep signal")
			s.metrics.RecordSourceFallback(string(models.SourceReputationSite))
			site = settledQuery{result: *secondary}
		}
	}()

	wg.Wait()

	return map[models.SourceName]settledQuery{
		models.SourceCommunityRegistry: community,
		models.SourceMarketplace:       marketplace,
		models.SourcePrimaryRegistry:   primary,
		models.SourceReputationSite:    site,
	}
}

func (s *ReputationService) observe(source models.SourceName, query func() (models.SiteResult, error)) settledQuery {
	startTime := time.Now()
	result, err := query()
	s.metrics.RecordSourceQuery(string(source), err == nil, time.Since(startTime))
	return settledQuery{result: result, err: err}
}

// mergeRecord builds the refreshed record from the settled queries.
// A failed source keeps its prior entry only when the prior record was complete; otherwise it is marked as an error.
// Ban flags are computed from the merged entries.
func mergeRecord(prior *models.ReputationRecord, settled map[models.SourceName]settledQuery, now time.Time) *models.ReputationRecord {
	record := &models.ReputationRecord{
		Contents:     make(models.SourceContents, len(models.AllSources)),
		ObtainedTime: now.Unix(),
		LastUpdate:   now.Unix(),
	}
	if prior != nil && prior.ObtainedTime != 0 {
		record.ObtainedTime = prior.ObtainedTime
	}

	for _, source := range models.AllSources {
		query, ok := settled[source]
		if ok && query.err == nil {
			record.Contents[source] = models.Outcome(query.result)
			continue
		}

		record.WithError = true
		if previous := prior.Entry(source); prior != nil && !prior.WithError && !previous.IsError() {
			record.Contents[source] = models.Outcome(*previous.Result)
		} else {
			record.Contents[source] = models.ErrorOutcome()
		}
	}

	for _, source := range models.AllSources {
		if !record.Contents[source].Banned() {
			continue
		}
		record.IsBanned = true
		if source != models.SourceMarketplace {
			record.IsBannedExcludeMarketplace = true
		}
	}

	return record
}
