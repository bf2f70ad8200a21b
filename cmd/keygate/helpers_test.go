package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"gapo-hq/keygate/pkg/iam"
)

// fakeIAM serves a fixed key list and records the bootstrap key of every
// call.
type fakeIAM struct {
	mu     sync.Mutex
	keys   []iam.APIKeyRecord
	status int
	seen   []string
}

func (f *fakeIAM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.seen = append(f.seen, r.Header.Get(iam.HeaderAPIKey))
	status := f.status
	keys := f.keys
	f.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": keys})
}

func (f *fakeIAM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func (f *fakeIAM) lastKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seen) == 0 {
		return ""
	}
	return f.seen[len(f.seen)-1]
}

// newFakeIAM serves keys. No keys means an empty list, not a null one.
func newFakeIAM(t *testing.T, keys ...iam.APIKeyRecord) (*fakeIAM, *httptest.Server) {
	t.Helper()
	if keys == nil {
		keys = []iam.APIKeyRecord{}
	}
	f := &fakeIAM{keys: keys}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

// writeConfig writes a config file and points --config at it.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keygate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	orig := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = orig })
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
