package reporter

import (
	"context"
	"errors"
	"log/slog"

	"gapo-hq/keygate/pkg/telemetry/journal"
)

// Nop discards every event.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(context.Context, Event) error { return nil }

// Multi sends each event to every reporter in order.
type Multi []Reporter

// Report implements Reporter. All reporters run; their errors are joined.
func (m Multi) Report(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes events to a structured logger.
type Log struct {
	Logger *slog.Logger
}

// NewLog creates a log reporter. A nil logger means slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{Logger: logger.With("component", "reporter")}
}

// Report implements Reporter.
func (l *Log) Report(ctx context.Context, ev Event) error {
	l.Logger.Log(ctx, slogLevel(ev.Level), "api error reported",
		"event_id", ev.ID,
		"http_code", ev.HTTPCode,
		"code", ev.Code,
		"cause", ev.Cause,
		"uri", ev.URI,
		"frames", len(ev.Frames),
	)
	return nil
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Journal appends events to a rejection journal.
type Journal struct {
	Store journal.Store
}

// Report implements Reporter.
func (j *Journal) Report(ctx context.Context, ev Event) error {
	return j.Store.Append(ctx, journal.Record{
		ID:        ev.ID,
		Timestamp: ev.Timestamp,
		Message:   ev.Message,
		HTTPCode:  ev.HTTPCode,
		Code:      ev.Code,
		Cause:     ev.Cause,
		URI:       ev.URI,
		Tags:      ev.Tags,
	})
}
