package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapo-hq/keygate/pkg/apierror"
	"gapo-hq/keygate/pkg/config"
	"gapo-hq/keygate/pkg/gate"
	"gapo-hq/keygate/pkg/iam"
	"gapo-hq/keygate/pkg/keycache"
	"gapo-hq/keygate/pkg/telemetry/health"
	"gapo-hq/keygate/pkg/telemetry/metrics"
	"gapo-hq/keygate/pkg/telemetry/reporter"
)

type staticFetcher []iam.APIKeyRecord

func (f staticFetcher) FetchKeys(context.Context) ([]iam.APIKeyRecord, error) {
	return f, nil
}

type recordingReporter struct {
	events []reporter.Event
}

func (r *recordingReporter) Report(_ context.Context, ev reporter.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func newTestServer(t *testing.T) (*Server, *recordingReporter, *metrics.Collector) {
	t.Helper()
	cfg := config.NewDefault()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second

	cache := keycache.New(staticFetcher{{APIKey: "K1", Source: "billing"}}, keycache.Options{Coalesce: true})
	rep := &recordingReporter{}
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	checker := health.New(time.Second)
	checker.RegisterCheck("key_cache", health.KeyCacheCheck(cache, true))

	srv, err := New(&cfg.Server, &cfg.Telemetry, Deps{
		Gate:     gate.New(cache, gate.Options{Reporter: rep, Observer: collector}),
		Health:   checker,
		Metrics:  collector,
		Reporter: rep,
		Version:  health.VersionInfo{Version: "test"},
	})
	require.NoError(t, err)
	return srv, rep, collector
}

func do(h http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresGate(t *testing.T) {
	cfg := config.NewDefault()
	_, err := New(&cfg.Server, &cfg.Telemetry, Deps{})
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(h, http.MethodGet, "/", map[string]string{"x-gapo-role": "user", "Content-Type": "application/json"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello world", rec.Body.String())

	rec = do(h, http.MethodGet, "/", map[string]string{"x-gapo-role": "user"})
	assert.Equal(t, "bye the world", rec.Body.String())
}

func TestGatedRoute(t *testing.T) {
	srv, rep, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(h, http.MethodGet, "/", map[string]string{"x-gapo-role": "service", "x-gapo-api-key": "K1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(h, http.MethodGet, "/?a=1", map[string]string{"x-gapo-role": "service", "x-gapo-api-key": "bad"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body apierror.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apierror.Response{
		Message:  apierror.MessageInvalidRequest,
		HTTPCode: http.StatusForbidden,
		Code:     apierror.CodeInvalidRequest,
	}, body)

	require.Len(t, rep.events, 1)
	assert.Equal(t, "/?a=1", rep.events[0].URI)
}

func TestHealthRoutesAreNotGated(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/version", nil).Code)

	// Readiness requires keys and the cache has not been warmed.
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/ready", nil).Code)

	// A service call warms the cache through a refresh.
	do(h, http.MethodGet, "/", map[string]string{"x-gapo-role": "service", "x-gapo-api-key": "K1"})
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/ready", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	do(h, http.MethodGet, "/", map[string]string{"x-gapo-role": "service"})
	rec := do(h, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `keygate_gate_decisions_total{decision="rejected",reason="key_missing",role="service"} 1`)
	assert.Contains(t, body, "keygate_gate_http_requests_total")
}

func TestNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(srv.Handler(), http.MethodGet, "/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":900`)
}

func TestStartAndShutdown(t *testing.T) {
	srv, _, _ := newTestServer(t)
	addr, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	url := fmt.Sprintf("http://%s/health", addr.String())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && strings.Contains(string(b), `"ok"`)
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, srv.IsRunning())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, srv.IsRunning())
}
