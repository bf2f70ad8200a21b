package iam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveFetch(outcome string, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(Config{URL: url, APIKey: "bootstrap", Timeout: time.Second}, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k"})
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "http://iam"})
	assert.Error(t, err)

	c, err := NewClient(Config{URL: "http://iam", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, int64(DefaultMaxBodyBytes), c.cfg.MaxBodyBytes)
}

func TestFetchKeys_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "service", r.Header.Get("x-gapo-role"))
		assert.Equal(t, "bootstrap", r.Header.Get("x-gapo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"apiKey":"K1","source":"svcA"},{"apiKey":"K2","source":"svcB"}]}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := newTestClient(t, srv.URL, WithObserver(obs))

	records, err := c.FetchKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []APIKeyRecord{
		{APIKey: "K1", Source: "svcA"},
		{APIKey: "K2", Source: "svcB"},
	}, records)
	assert.Equal(t, []string{OutcomeSuccess}, obs.outcomes)
}

func TestFetchKeys_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv.URL).FetchKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchKeys_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   ErrorKind
		wantStatus int
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantKind: KindStatus, wantStatus: 500},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, wantKind: KindStatus, wantStatus: 401},
		{name: "invalid json", status: http.StatusOK, body: `{"data":`, wantKind: KindDecode},
		{name: "missing data", status: http.StatusOK, body: `{"items":[]}`, wantKind: KindDecode},
		{name: "wrong shape", status: http.StatusOK, body: `{"data":{"apiKey":"K1"}}`, wantKind: KindDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			obs := &recordingObserver{}
			records, err := newTestClient(t, srv.URL, WithObserver(obs)).FetchKeys(context.Background())
			require.Error(t, err)
			assert.Nil(t, records)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.wantKind, fe.Kind)
			assert.Equal(t, tt.wantStatus, fe.StatusCode)
			assert.Equal(t, []string{string(tt.wantKind)}, obs.outcomes)
		})
	}
}

func TestFetchKeys_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"apiKey":"` + strings.Repeat("x", 256) + `","source":"s"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL, APIKey: "k", MaxBodyBytes: 64})
	require.NoError(t, err)

	_, err = c.FetchKeys(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindDecode, fe.Kind)
}

func TestFetchKeys_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Config{URL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.FetchKeys(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindTimeout, fe.Kind)
}

func TestFetchKeys_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).FetchKeys(context.Background())
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
}

func TestFetchError_Error(t *testing.T) {
	assert.Contains(t, (&FetchError{Kind: KindStatus, StatusCode: 503}).Error(), "503")
	assert.Contains(t, (&FetchError{Kind: KindDecode, Cause: errors.New("bad")}).Error(), "bad")
	assert.Contains(t, (&FetchError{Kind: KindTransport}).Error(), "transport")
}

func TestSetAPIKey(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get(HeaderAPIKey))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.FetchKeys(context.Background())
	require.NoError(t, err)

	c.SetAPIKey("rotated")
	_, err = c.FetchKeys(context.Background())
	require.NoError(t, err)

	c.SetAPIKey("")
	_, err = c.FetchKeys(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"bootstrap", "rotated", "rotated"}, seen)
}

func TestFetchKeys_PropagatesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator()) })

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	_, err := newTestClient(t, srv.URL).FetchKeys(ctx)
	require.NoError(t, err)
	assert.Contains(t, traceparent, "4bf92f3577b34da6a3ce929d0e0e4736")
}
