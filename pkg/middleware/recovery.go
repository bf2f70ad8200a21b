package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"gapo-hq/keygate/pkg/apierror"
	"gapo-hq/keygate/pkg/reqinfo"
	"gapo-hq/keygate/pkg/telemetry/reporter"
)

// Recovery turns a handler panic into the standard 500 error body and
// reports it. http.ErrAbortHandler is re-raised untouched.
func Recovery(rep reporter.Reporter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				info := reqinfo.FromRequest(r)
				apiErr := apierror.SystemGeneral(fmt.Sprint(rec))
				apiErr.Info = &info
				reporter.ReportError(r.Context(), rep, apiErr)
				apiErr.WriteJSON(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
