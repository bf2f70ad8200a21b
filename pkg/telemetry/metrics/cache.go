package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gapo-hq/keygate/pkg/config"
)

// CacheMetrics tracks the API key cache.
type CacheMetrics struct {
	lookups         *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	entries         prometheus.Gauge
}

// NewCacheMetrics creates and registers key cache metrics.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "key_lookups_total",
				Help:      "Key cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "key_refreshes_total",
				Help:      "Key cache refreshes by outcome (success, failure)",
			},
			[]string{"outcome"},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "key_refresh_duration_seconds",
				Help:      "Duration of key cache refreshes",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "key_cache_entries",
				Help:      "Number of API keys in the cache",
			},
		),
	}
	registry.MustRegister(cm.lookups, cm.refreshes, cm.refreshDuration, cm.entries)
	return cm
}
