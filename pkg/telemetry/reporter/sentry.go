package reporter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig configures the Sentry client.
type SentryConfig struct {
	DSN          string
	Environment  string
	Release      string
	Debug        bool
	FlushTimeout time.Duration

	// BeforeSend, if set, sees every event before it is sent.
	BeforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event
}

// Sentry reports events to Sentry.
type Sentry struct {
	hub          *sentry.Hub
	flushTimeout time.Duration
}

// NewSentry creates a Sentry reporter with its own client. An empty DSN
// yields a client that drops events after BeforeSend.
func NewSentry(cfg SentryConfig) (*Sentry, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		Debug:       cfg.Debug,
		BeforeSend:  cfg.BeforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry client: %w", err)
	}
	timeout := cfg.FlushTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Sentry{
		hub:          sentry.NewHub(client, sentry.NewScope()),
		flushTimeout: timeout,
	}, nil
}

// Report implements Reporter. The request's hub is used when the context
// carries one, so its scope tags are attached.
func (s *Sentry) Report(ctx context.Context, ev Event) error {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = s.hub
	}
	hub.CaptureEvent(toSentryEvent(ev))
	return nil
}

// Flush waits for queued events to be delivered.
func (s *Sentry) Flush() bool {
	return s.hub.Flush(s.flushTimeout)
}

// Middleware gives each request its own hub clone and exposes it as the
// request's Scope.
func (s *Sentry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := s.hub.Clone()
		ctx := sentry.SetHubOnContext(r.Context(), hub)
		ctx = WithScope(ctx, &sentryScope{hub: hub})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type sentryScope struct {
	hub *sentry.Hub
}

func (s *sentryScope) SetTags(tags map[string]string) {
	s.hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
	})
}

func toSentryEvent(ev Event) *sentry.Event {
	out := sentry.NewEvent()
	out.EventID = sentry.EventID(strings.ReplaceAll(ev.ID, "-", ""))
	out.Timestamp = ev.Timestamp
	out.Level = sentry.Level(ev.Level)
	out.Message = ev.Message
	out.Tags = make(map[string]string, len(ev.Tags))
	for k, v := range ev.Tags {
		out.Tags[k] = v
	}
	out.Extra = map[string]interface{}{
		"http_code": ev.HTTPCode,
		"code":      ev.Code,
		"cause":     ev.Cause,
	}

	if len(ev.Frames) > 0 {
		frames := make([]sentry.Frame, 0, len(ev.Frames))
		for _, f := range ev.Frames {
			frames = append(frames, sentry.Frame{
				Function: f.Function,
				AbsPath:  f.File,
				Lineno:   f.Line,
				InApp:    true,
			})
		}
		out.Exception = []sentry.Exception{{
			Type:       fmt.Sprintf("ApiError %d", ev.Code),
			Value:      ev.Message,
			Stacktrace: &sentry.Stacktrace{Frames: frames},
		}}
	}
	return out
}
