// Package logging builds the process logger on log/slog.
//
// New returns a *slog.Logger whose handler redacts credentials (API keys,
// bearer tokens, cookies) from attributes and adds request-scoped fields
// (request_id, role, source, trace_id) taken from the context of each
// *Context logging call.
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", Redact: true})
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, id)
//	slog.InfoContext(ctx, "request rejected", "api_key", key) // api_key is masked
package logging
