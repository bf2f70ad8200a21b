package iam

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a FetchError.
type ErrorKind string

const (
	// KindStatus means the authority answered with a non-2xx status.
	KindStatus ErrorKind = "status"

	// KindDecode means the body was not the expected JSON shape.
	KindDecode ErrorKind = "decode"

	// KindTransport means the request could not be completed.
	KindTransport ErrorKind = "transport"

	// KindTimeout means the fetch deadline expired.
	KindTimeout ErrorKind = "timeout"
)

// FetchError is returned for every failed key fetch.
type FetchError struct {
	Kind ErrorKind

	// StatusCode is set for KindStatus.
	StatusCode int

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("iam fetch failed: unexpected status %d", e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("iam fetch failed (%s): %v", e.Kind, e.Cause)
	default:
		return fmt.Sprintf("iam fetch failed (%s)", e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsFetchError reports whether err is or wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
