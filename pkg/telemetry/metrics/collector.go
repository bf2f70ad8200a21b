package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gapo-hq/keygate/pkg/config"
)

// Collector records every keygate metric.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	gate    *GateMetrics
	cache   *CacheMetrics
	iam     *IAMMetrics
	request *RequestMetrics
}

// NewCollector creates a collector and registers its metrics. A nil
// registry gets a fresh one with the Go and process collectors attached.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		gate:     NewGateMetrics(cfg, registry),
		cache:    NewCacheMetrics(cfg, registry),
		iam:      NewIAMMetrics(cfg, registry),
		request:  NewRequestMetrics(cfg, registry),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordDecision counts one authorization decision.
func (c *Collector) RecordDecision(role, decision, reason string) {
	if !c.config.Enabled {
		return
	}
	c.gate.decisions.WithLabelValues(role, decision, reason).Inc()
}

// ObserveLookup implements keycache.Observer.
func (c *Collector) ObserveLookup(result string) {
	if !c.config.Enabled {
		return
	}
	c.cache.lookups.WithLabelValues(result).Inc()
}

// ObserveRefresh implements keycache.Observer.
func (c *Collector) ObserveRefresh(outcome string, size int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.cache.refreshes.WithLabelValues(outcome).Inc()
	c.cache.refreshDuration.Observe(duration.Seconds())
	c.cache.entries.Set(float64(size))
}

// ObserveFetch implements iam.Observer.
func (c *Collector) ObserveFetch(outcome string, keys int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.iam.fetches.WithLabelValues(outcome).Inc()
	c.iam.fetchDuration.Observe(duration.Seconds())
	if outcome == "success" {
		c.iam.keysReceived.Set(float64(keys))
	}
}

// RecordRequest records one served HTTP request.
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.request.total.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.request.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}
