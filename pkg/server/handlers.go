package server

import (
	"net/http"

	"gapo-hq/keygate/pkg/apierror"
)

// Index answers "Hello world" when the request declares a Content-Type and
// "bye the world" otherwise.
func Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.Header.Get("Content-Type") != "" {
		_, _ = w.Write([]byte("Hello world"))
		return
	}
	_, _ = w.Write([]byte("bye the world"))
}

// notFound answers unknown routes with the standard error body.
func notFound(w http.ResponseWriter, _ *http.Request) {
	apierror.New(http.StatusNotFound, "not found", apierror.CodeUnknown, "").WriteJSON(w)
}
