// Package telemetry groups keygate's observability packages.
//
//   - logging: structured slog logging with request context and redaction
//   - metrics: Prometheus metrics for the gate, the key cache, and IAM calls
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness probes
//   - reporter: error reporting to Sentry, the log, and the journal
//   - journal: durable record of reported rejections
package telemetry
