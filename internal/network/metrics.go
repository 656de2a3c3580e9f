package network

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the network layer's pooling/compression/heartbeat
// figures as Prometheus collectors, mirroring internal/storage/
// metrics.go's registerer-driven construction.
type Metrics struct {
	PoolReclaimed    prometheus.Counter
	CompressionRatio prometheus.Histogram
	WSConnections    prometheus.Gauge
	WSReclaimed      prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		PoolReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vibe_ensemble_network_pool_reclaimed_total",
			Help: "Total number of pooled outbound connections reclaimed by the sweeper.",
		}),
		CompressionRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "vibe_ensemble_network_compression_ratio",
			Help: "Ratio of compressed size to original size for payloads above the compression threshold.",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vibe_ensemble_network_ws_connections",
			Help: "Number of WebSocket connections currently registered with the heartbeater.",
		}),
		WSReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vibe_ensemble_network_ws_reclaimed_total",
			Help: "Total number of WebSocket connections reclaimed for exceeding the idle bound.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.PoolReclaimed, m.CompressionRatio, m.WSConnections, m.WSReclaimed)
	}
	return m
}
