// internal/monitoring/metrics.go

// Package monitoring exposes the crawl's Prometheus instruments and a
// small HTTP server for metrics and liveness probes.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the crawl instruments. A nil *Metrics records nothing,
// so the crawl can run with monitoring disabled.
type Metrics struct {
	registry *prometheus.Registry

	pagesFetched  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchErrors   prometheus.Counter
	softBlocks    prometheus.Counter
	tierRecords   *prometheus.CounterVec
	tierWins      *prometheus.CounterVec
	recordsSaved  prometheus.Counter
	duplicates    prometheus.Counter
	sinkErrors    prometheus.Counter
}

// NewMetrics registers the crawl instruments on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{registry: registry}

	m.pagesFetched = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentharvest",
			Subsystem: "crawl",
			Name:      "pages_fetched_total",
			Help:      "Pages fetched, by fetch path.",
		},
		[]string{"mode"},
	)

	m.fetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agentharvest",
			Subsystem: "crawl",
			Name:      "fetch_duration_seconds",
			Help:      "Page fetch duration in seconds, by fetch path.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	m.fetchErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agentharvest",
			Subsystem: "crawl",
			Name:      "fetch_errors_total",
			Help:      "Pages abandoned after the fetch retry budget.",
		},
	)

	m.softBlocks = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agentharvest",
			Subsystem: "crawl",
			Name:      "soft_blocks_total",
			Help:      "Challenge pages that triggered the escalated fetch path.",
		},
	)

	m.tierRecords = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentharvest",
			Subsystem: "extract",
			Name:      "records_total",
			Help:      "Records produced, by extraction source.",
		},
		[]string{"source"},
	)

	m.tierWins = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentharvest",
			Subsystem: "extract",
			Name:      "tier_wins_total",
			Help:      "Pages won, by extraction tier.",
		},
		[]string{"tier"},
	)

	m.recordsSaved = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agentharvest",
			Subsystem: "crawl",
			Name:      "records_saved_total",
			Help:      "Records handed to the sink.",
		},
	)

	m.duplicates = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agentharvest",
			Subsystem: "crawl",
			Name:      "duplicates_skipped_total",
			Help:      "Records dropped by cross-run deduplication.",
		},
	)

	m.sinkErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agentharvest",
			Subsystem: "output",
			Name:      "sink_errors_total",
			Help:      "Failed sink write batches.",
		},
	)

	return m
}

// Registry returns the registry backing the instruments, for the
// metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// PageFetched records one fetched page on the given path.
func (m *Metrics) PageFetched(mode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.pagesFetched.WithLabelValues(mode).Inc()
	m.fetchDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// FetchError records a page abandoned after all fetch attempts.
func (m *Metrics) FetchError() {
	if m == nil {
		return
	}
	m.fetchErrors.Inc()
}

// SoftBlock records a challenge page.
func (m *Metrics) SoftBlock() {
	if m == nil {
		return
	}
	m.softBlocks.Inc()
}

// TierWin records which tier produced a page's records and how many.
func (m *Metrics) TierWin(source string, records int) {
	if m == nil {
		return
	}
	m.tierWins.WithLabelValues(source).Inc()
	m.tierRecords.WithLabelValues(source).Add(float64(records))
}

// RecordsSaved counts records handed to the sink.
func (m *Metrics) RecordsSaved(count int) {
	if m == nil {
		return
	}
	m.recordsSaved.Add(float64(count))
}

// DuplicatesSkipped counts records dropped by cross-run dedup.
func (m *Metrics) DuplicatesSkipped(count int) {
	if m == nil {
		return
	}
	m.duplicates.Add(float64(count))
}

// SinkError records a failed sink write.
func (m *Metrics) SinkError() {
	if m == nil {
		return
	}
	m.sinkErrors.Inc()
}
