// Package tracing sets up OpenTelemetry tracing for keygate.
//
// When tracing is enabled, spans are exported over OTLP gRPC to the configured
// collector and the W3C trace context and baggage propagators are installed
// globally. When disabled, New returns a tracer backed by a noop provider so
// callers never need to check.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	router.Use(tracing.Middleware(tracer))
//
// The gate and the IAM client accept a trace.Tracer; pass tracer.Tracer().
package tracing
