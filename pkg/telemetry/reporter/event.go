package reporter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gapo-hq/keygate/pkg/apierror"
)

// Level is the severity of an Event.
type Level string

// Event levels. Rejections are reported at LevelInfo.
const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one reported error.
type Event struct {
	ID        string
	Timestamp time.Time
	Level     Level
	Message   string
	Cause     string
	HTTPCode  int
	Code      int
	URI       string
	Frames    []apierror.Frame
	Tags      map[string]string
}

// Reporter delivers events to a sink.
type Reporter interface {
	Report(ctx context.Context, ev Event) error
}

// NewEvent builds the event for err. Credential headers are masked and at
// most apierror.MaxReportedFrames frames are kept.
func NewEvent(err *apierror.Error) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Level:     LevelInfo,
		Message:   err.Message,
		Cause:     err.Cause,
		HTTPCode:  err.HTTPCode,
		Code:      err.Code,
		Frames:    apierror.Tail(err.Frames, apierror.MaxReportedFrames),
		Tags:      map[string]string{},
	}
	if err.Info != nil {
		info := err.Info.Redacted()
		ev.URI = info.URI
		ev.Tags = info.TagSet()
	}
	return ev
}

// ReportError reports err if it is reportable. It returns the event and
// whether it was sent. A nil reporter is allowed.
func ReportError(ctx context.Context, r Reporter, err *apierror.Error) (Event, bool) {
	if r == nil || err == nil || !err.Reportable() {
		return Event{}, false
	}
	ev := NewEvent(err)
	if rerr := r.Report(ctx, ev); rerr != nil {
		return ev, false
	}
	return ev, true
}
