package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// UntrustedListRefresher fetches and persists the untrusted list
type UntrustedListRefresher interface {
	Refresh(ctx context.Context) ([]byte, error)
}

// UntrustedRefreshJob keeps the persisted untrusted list snapshot warm
type UntrustedRefreshJob struct {
	Refresher UntrustedListRefresher
	Interval  time.Duration
	logger    *logrus.Entry
	isRunning atomic.Bool
	stop      chan struct{}
}

func NewUntrustedRefreshJob(refresher UntrustedListRefresher, interval time.Duration) *UntrustedRefreshJob {
	return &UntrustedRefreshJob{
		Refresher: refresher,
		Interval:  interval,
		logger:    logrus.WithField("component", "UntrustedRefreshJob"),
		stop:      make(chan struct{}),
	}
}

// Start runs the job immediately and then every Interval until Stop is called
func (j *UntrustedRefreshJob) Start() {
	j.logger.WithField("interval", j.Interval).Info("Starting untrusted list refresh job")
	ticker := time.NewTicker(j.Interval)

	go func() {
		defer ticker.Stop()

		j.Run(context.Background())

		for {
			select {
			case <-ticker.C:
				j.Run(context.Background())
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the periodic refresh
func (j *UntrustedRefreshJob) Stop() {
	select {
	case <-j.stop:
	default:
		close(j.stop)
	}
}

// Run refreshes the snapshot once; overlapping runs are skipped
func (j *UntrustedRefreshJob) Run(ctx context.Context) error {
	if !j.isRunning.CompareAndSwap(false, true) {
		j.logger.Warn("Untrusted list refresh already running, skipping")
		return nil
	}
	defer j.isRunning.Store(false)

	startTime := time.Now()
	raw, err := j.Refresher.Refresh(ctx)
	if err != nil {
		j.logger.WithError(err).Error("Untrusted list refresh failed")
		return err
	}

	j.logger.WithFields(logrus.Fields{
		"bytes":           len(raw),
		"processing_time": time.Since(startTime),
	}).Info("Untrusted list refresh completed")

	return nil
}

// IsRunning returns whether a refresh is in progress
func (j *UntrustedRefreshJob) IsRunning() bool {
	return j.isRunning.Load()
}
