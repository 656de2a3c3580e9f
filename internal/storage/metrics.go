package storage

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the storage layer's performance report (spec §4.4: cache
// hit rate, average query time, concurrent operations, compression ratio)
// both as a plain Go struct for programmatic callers and as Prometheus
// collectors for the HTTP metrics endpoint. Grounded on
// internal/metrics/collector.go's aggregate-then-snapshot shape, adapted
// from in-process agent metrics to storage-layer query metrics and wired
// to github.com/prometheus/client_golang (present in the example pack's
// jordigilh/kubernaut and R3E-Network/service_layer go.mods).
type Metrics struct {
	mu             sync.Mutex
	queryCount     int64
	queryTotalTime time.Duration
	concurrentOps  int64
	peakConcurrent int64

	QueryDuration prometheus.Histogram
	QueriesTotal  prometheus.Counter
	ConcurrentOps prometheus.Gauge
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "vibe_ensemble_storage_query_duration_seconds",
			Help: "Duration of storage queries.",
		}),
		QueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vibe_ensemble_storage_queries_total",
			Help: "Total number of storage queries executed.",
		}),
		ConcurrentOps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vibe_ensemble_storage_concurrent_operations",
			Help: "Number of storage operations currently in flight.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.QueryDuration, m.QueriesTotal, m.ConcurrentOps)
	}
	return m
}

// ObserveQuery records a completed query's duration.
func (m *Metrics) ObserveQuery(d time.Duration) {
	m.mu.Lock()
	m.queryCount++
	m.queryTotalTime += d
	m.mu.Unlock()
	m.QueryDuration.Observe(d.Seconds())
	m.QueriesTotal.Inc()
}

// BeginOp marks the start of a concurrent storage operation and returns a
// func that marks its end.
func (m *Metrics) BeginOp() func() {
	m.mu.Lock()
	m.concurrentOps++
	if m.concurrentOps > m.peakConcurrent {
		m.peakConcurrent = m.concurrentOps
	}
	m.mu.Unlock()
	m.ConcurrentOps.Inc()
	return func() {
		m.mu.Lock()
		m.concurrentOps--
		m.mu.Unlock()
		m.ConcurrentOps.Dec()
	}
}

// Report is the point-in-time performance snapshot spec §4.4 names.
type Report struct {
	CacheHitRate       float64
	AverageQueryTime   time.Duration
	ConcurrentOps      int64
	PeakConcurrentOps  int64
	CompressionRatio   float64
	TotalQueries       int64
}

// Snapshot builds a Report from the metrics collected so far and the
// cache's own hit-rate counters. compressionRatio is supplied by the
// caller (internal/network owns the compressed-transport path spec §4.7
// describes); storage itself never compresses rows.
func (m *Metrics) Snapshot(cache *Cache, compressionRatio float64) Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	var avg time.Duration
	if m.queryCount > 0 {
		avg = m.queryTotalTime / time.Duration(m.queryCount)
	}
	var hitRate float64
	if cache != nil {
		hitRate = cache.HitRate()
	}
	return Report{
		CacheHitRate:      hitRate,
		AverageQueryTime:  avg,
		ConcurrentOps:     m.concurrentOps,
		PeakConcurrentOps: m.peakConcurrent,
		CompressionRatio:  compressionRatio,
		TotalQueries:      m.queryCount,
	}
}
