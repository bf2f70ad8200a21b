// Package server is keygate's HTTP server.
//
// Probe and metrics routes are served without authorization. Every other
// route sits behind the Sentry hub middleware, which gives each request its
// own telemetry scope, and the authorization gate.
package server
