// Package reporter delivers rejection and failure events to telemetry
// sinks.
//
// A Reporter receives one Event per reportable API error. Sinks exist for
// Sentry, the structured log, and the local rejection journal; Multi fans
// an event out to several of them. Only errors whose HTTP status is above
// 400 become events.
//
// A Scope carries per-request diagnostic tags (request headers and URI).
// The Sentry implementation is a hub cloned for each request, so tags set
// while handling one request never leak into another.
package reporter
