package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gapo-hq/keygate/pkg/config"
)

// IAMMetrics tracks calls to the IAM authority.
type IAMMetrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	keysReceived  prometheus.Gauge
}

// NewIAMMetrics creates and registers IAM client metrics.
func NewIAMMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *IAMMetrics {
	im := &IAMMetrics{
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "iam_fetches_total",
				Help:      "IAM key fetches by outcome (success, status, decode, transport, timeout)",
			},
			[]string{"outcome"},
		),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "iam_fetch_duration_seconds",
				Help:      "Duration of IAM key fetches",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		keysReceived: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "iam_keys_received",
				Help:      "Number of keys in the last successful IAM response",
			},
		),
	}
	registry.MustRegister(im.fetches, im.fetchDuration, im.keysReceived)
	return im
}
