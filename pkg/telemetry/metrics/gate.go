package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gapo-hq/keygate/pkg/config"
)

// GateMetrics tracks authorization decisions.
type GateMetrics struct {
	decisions *prometheus.CounterVec
}

// NewGateMetrics creates and registers gate metrics.
func NewGateMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *GateMetrics {
	gm := &GateMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Authorization decisions by caller role, decision, and reason",
			},
			[]string{"role", "decision", "reason"},
		),
	}
	registry.MustRegister(gm.decisions)
	return gm
}
