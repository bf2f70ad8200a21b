// Package metrics exposes Prometheus metrics for the gate, the key cache,
// the IAM client, and HTTP traffic.
//
// The Collector owns its own registry, so tests can create as many as they
// like. It implements keycache.Observer and iam.Observer and is handed to
// those packages at construction:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	cache := keycache.New(client, keycache.Options{Observer: collector})
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Metrics (namespace and subsystem from configuration, "keygate_gate_" by
// default):
//
//   - decisions_total{role,decision,reason}
//   - key_lookups_total{result}
//   - key_refreshes_total{outcome}
//   - key_refresh_duration_seconds
//   - key_cache_entries
//   - iam_fetches_total{outcome}
//   - iam_fetch_duration_seconds
//   - iam_keys_received
//   - http_requests_total{method,route,status}
//   - http_request_duration_seconds{method,route}
package metrics
