package journal

import (
	"context"
	"fmt"
	"time"
)

// Record is one rejected request.
type Record struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	HTTPCode  int               `json:"http_code"`
	Code      int               `json:"code"`
	Cause     string            `json:"cause,omitempty"`
	URI       string            `json:"uri,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	Since time.Time
	Until time.Time
	Code  int

	// Limit caps the result size of List. Zero means no limit.
	Limit int
}

func (f Filter) matches(r *Record) bool {
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !r.Timestamp.Before(f.Until) {
		return false
	}
	if f.Code != 0 && r.Code != f.Code {
		return false
	}
	return true
}

// Store persists rejection records.
type Store interface {
	// Append adds a record. Records with an existing ID are ignored.
	Append(ctx context.Context, r Record) error

	// List returns matching records, newest first.
	List(ctx context.Context, f Filter) ([]Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, f Filter) (int64, error)

	// Prune deletes records older than before and returns how many.
	Prune(ctx context.Context, before time.Time) (int64, error)

	Close() error
}

// StorageError wraps a failed store operation.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("journal storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}
