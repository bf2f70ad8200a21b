// Package apierror defines the single error shape returned to API callers.
//
// Every error that crosses the HTTP boundary is an *Error. Its wire form is
// always {"message", "http_code", "code"}; the cause, call frames, and
// request diagnostics stay inside the process and are only handed to
// telemetry.
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gapo-hq/keygate/pkg/reqinfo"
)

// Error is a structured API error.
type Error struct {
	// HTTPCode is the response status.
	HTTPCode int

	// Message is the fixed user-facing message.
	Message string

	// Code is the machine error code.
	Code int

	// Cause is an internal explanation. Never written to the response.
	Cause string

	// Info is the diagnostic context of the failing request, if any.
	Info *reqinfo.Info

	// Frames holds the call frames captured when the error was built.
	Frames []Frame
}

// Response is the JSON body written for an Error.
type Response struct {
	Message  string `json:"message"`
	HTTPCode int    `json:"http_code"`
	Code     int    `json:"code"`
}

// New creates an Error and captures the caller's frames.
func New(httpCode int, message string, code int, cause string) *Error {
	return &Error{
		HTTPCode: httpCode,
		Message:  message,
		Code:     code,
		Cause:    cause,
		Frames:   Capture(1),
	}
}

// InvalidRequest is the 403 returned when the gate rejects a request.
func InvalidRequest(cause string, info *reqinfo.Info) *Error {
	err := New(http.StatusForbidden, MessageInvalidRequest, CodeInvalidRequest, cause)
	err.Info = info
	err.Frames = Capture(1)
	return err
}

// SystemGeneral is the 500 used for unexpected internal failures.
func SystemGeneral(cause string) *Error {
	err := New(http.StatusInternalServerError, MessageSystemGeneralError, CodeSystemGeneralError, cause)
	err.Frames = Capture(1)
	return err
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("api error %d (http %d): %s: %s", e.Code, e.HTTPCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("api error %d (http %d): %s", e.Code, e.HTTPCode, e.Message)
}

// StatusCode returns the status written on the wire. Codes outside the
// valid HTTP range fall back to 200.
func (e *Error) StatusCode() int {
	if e.HTTPCode < 100 || e.HTTPCode > 599 {
		return http.StatusOK
	}
	return e.HTTPCode
}

// Reportable reports whether the error should be sent to telemetry.
// Only errors above 400 are reported.
func (e *Error) Reportable() bool {
	return e.HTTPCode > http.StatusBadRequest
}

// Response returns the wire body.
func (e *Error) Response() Response {
	return Response{
		Message:  e.Message,
		HTTPCode: e.HTTPCode,
		Code:     e.Code,
	}
}

// WriteJSON writes the error response to w.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	_ = json.NewEncoder(w).Encode(e.Response())
}
