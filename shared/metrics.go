package shared

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Cache lookup results recorded by RecordCacheLookup
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheStale      = "stale"
	CacheUnreadable = "unreadable"
)

// ServiceMetrics tracks upstream, cache and aggregation metrics on a private Prometheus registry.
// A nil *ServiceMetrics is valid and records nothing.
type ServiceMetrics struct {
	ServiceName string

	registry           *prometheus.Registry
	sourceQueries      *prometheus.CounterVec
	sourceDuration     *prometheus.HistogramVec
	cacheLookups       *prometheus.CounterVec
	storeWrites        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
}

// NewServiceMetrics creates a new metrics tracker for a service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	m := &ServiceMetrics{
		ServiceName: serviceName,
		registry:    prometheus.NewRegistry(),
		sourceQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reputation",
			Name:      "source_queries_total",
			Help:      "Upstream reputation source queries by source and outcome.",
		}, []string{"source", "outcome"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reputation",
			Name:      "source_query_duration_seconds",
			Help:      "Latency of upstream reputation source queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reputation",
			Name:      "cache_lookups_total",
			Help:      "Cached reputation record lookups by result.",
		}, []string{"result"}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reputation",
			Name:      "store_writes_total",
			Help:      "Persisted cache writes by outcome.",
		}, []string{"kind", "outcome"}),
		evaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reputation",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of reputation evaluations that refreshed the cache.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"with_error"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sourceQueries,
		m.sourceDuration,
		m.cacheLookups,
		m.storeWrites,
		m.evaluationDuration,
	)

	logrus.WithField("service_name", serviceName).Debug("Service metrics registered")

	return m
}

// RecordSourceQuery records one upstream query and its latency
func (m *ServiceMetrics) RecordSourceQuery(source string, success bool, duration time.Duration) {
	if m == nil {
		return
	}

	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.sourceQueries.WithLabelValues(source, outcome).Inc()
	m.sourceDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordSourceFallback records a source answered from a fallback instead of its live upstream
func (m *ServiceMetrics) RecordSourceFallback(source string) {
	if m == nil {
		return
	}
	m.sourceQueries.WithLabelValues(source, "fallback").Inc()
}

// RecordCacheLookup records the result of a cached record lookup
func (m *ServiceMetrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordStoreWrite records a persisted cache write
func (m *ServiceMetrics) RecordStoreWrite(kind string, success bool) {
	if m == nil {
		return
	}

	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.storeWrites.WithLabelValues(kind, outcome).Inc()
}

// RecordEvaluation records a refreshing evaluation
func (m *ServiceMetrics) RecordEvaluation(duration time.Duration, withError bool) {
	if m == nil {
		return
	}

	label := "false"
	if withError {
		label = "true"
	}
	m.evaluationDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *ServiceMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
