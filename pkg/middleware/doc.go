// Package middleware holds the HTTP middleware shared by every keygate
// route: request IDs, panic recovery, and access logging.
//
// Order matters. The server installs them outermost first:
//
//	r.Use(middleware.RequestID, middleware.Recovery(rep), middleware.AccessLog(logger, collector))
package middleware
