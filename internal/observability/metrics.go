package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creaza_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreOperationLatency records document store latency by operation and collection.
	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "creaza_store_operation_latency_seconds",
		Help:    "Document store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// StoreErrors counts document store failures by operation and collection.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creaza_store_errors_total",
		Help: "Total number of document store errors",
	}, []string{"operation", "collection"})

	// DegradedReads counts reads that were replaced by an empty result.
	DegradedReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creaza_degraded_reads_total",
		Help: "Reads that failed and degraded to an empty result",
	}, []string{"collection", "operation"})

	// IndexFallbacks counts ordered queries served by the in-memory sort path.
	IndexFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creaza_index_fallbacks_total",
		Help: "Ordered queries that fell back to an in-memory sort",
	}, []string{"collection", "operation"})

	// NotificationDrift counts notifications lost after a successful primary write.
	NotificationDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creaza_notification_drift_total",
		Help: "Notification writes that failed after the primary write succeeded",
	}, []string{"operation"})

	// FeedPolls counts notification feed polls by panel state and outcome.
	FeedPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creaza_feed_polls_total",
		Help: "Notification feed polls",
	}, []string{"panel", "outcome"})

	// CacheLookups counts cache-aside lookups by key prefix and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creaza_cache_lookups_total",
		Help: "Cache-aside lookups by result",
	}, []string{"prefix", "result"})

	// VersionConflicts counts optimistic concurrency retries.
	VersionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creaza_version_conflicts_total",
		Help: "Optimistic concurrency conflicts by collection",
	}, []string{"collection"})

	// RateLimited counts requests rejected by a named limit.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creaza_rate_limited_total",
		Help: "Requests rejected by a rate limit",
	}, []string{"limit", "keyed_by"})
)

// StoreMetrics records document store latency.
type StoreMetrics struct{}

// NewStoreMetrics returns a new StoreMetrics instance.
func NewStoreMetrics() *StoreMetrics {
	return &StoreMetrics{}
}

// ObserveQuery records the latency of a store operation.
func (m *StoreMetrics) ObserveQuery(operation, collection string, start time.Time) {
	StoreOperationLatency.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records latency when called (e.g. defer).
func (m *StoreMetrics) TrackQuery(operation, collection string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, collection, start)
	}
}

// RecordError counts a failed store operation.
func (m *StoreMetrics) RecordError(operation, collection string) {
	StoreErrors.WithLabelValues(operation, collection).Inc()
}
