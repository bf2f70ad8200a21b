package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, cfg Config) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg.Writer = &buf
	logger, err := New(cfg)
	require.NoError(t, err)
	return logger, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "invalid JSON log line %q", buf.String())
	return entry
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err, "invalid level")

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err, "invalid format")
}

func TestNew_Level(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "warn", Format: "json"})

	logger.Info("hidden")
	assert.Zero(t, buf.Len(), "info should be filtered at warn level")

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_TextFormat(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Format: "text"})
	logger.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestNew_ContextFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Format: "json"})

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithRole(ctx, "service")
	ctx = WithSource(ctx, "svcA")
	logger.InfoContext(ctx, "authorized")

	entry := decodeLine(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "service", entry["role"])
	assert.Equal(t, "svcA", entry["source"])
}

func TestNew_Redaction(t *testing.T) {
	tests := []struct {
		name    string
		args    []any
		key     string
		want    string
		notWant string
	}{
		{
			name:    "sensitive key",
			args:    []any{"x-gapo-api-key", "abcdef123456"},
			key:     "x-gapo-api-key",
			want:    "abcd***",
			notWant: "abcdef123456",
		},
		{
			name:    "short sensitive value",
			args:    []any{"api_key", "abc"},
			key:     "api_key",
			want:    "***",
			notWant: "abc\"",
		},
		{
			name:    "bearer token in message field",
			args:    []any{"header", "Bearer eyJhbGciOi.payload.sig"},
			key:     "header",
			want:    "Bearer ***",
			notWant: "eyJhbGciOi",
		},
		{
			name:    "key in url",
			args:    []any{"url", "http://iam/keys?api_key=topsecret&x=1"},
			key:     "url",
			want:    "http://iam/keys?api_key=***&x=1",
			notWant: "topsecret",
		},
		{
			name:    "error value",
			args:    []any{"error", errors.New("upstream said password=hunter2")},
			key:     "error",
			want:    "upstream said password=***",
			notWant: "hunter2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newTestLogger(t, Config{Format: "json", Redact: true})
			logger.Info("test", tt.args...)

			assert.NotContains(t, buf.String(), tt.notWant)
			entry := decodeLine(t, buf)
			assert.Equal(t, tt.want, entry[tt.key])
		})
	}
}

func TestNew_RedactionWithAttrsAndGroups(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Format: "json", Redact: true})

	logger.With("authorization", "Basic dXNlcjpwYXNz").
		Info("test", slog.Group("headers", slog.String("cookie", "session=abcdefghijk")))

	out := buf.String()
	assert.NotContains(t, out, "dXNlcjpwYXNz")
	assert.NotContains(t, out, "abcdefghijk")
}

func TestNew_NoRedaction(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Format: "json", Redact: false})
	logger.Info("test", "api_key", "abcdef123456")

	assert.Contains(t, buf.String(), "abcdef123456")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"fatal", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRedactAPIKey(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"short":        "***",
		"abcdefghijkl": "abcd***",
	}
	for in, want := range tests {
		assert.Equal(t, want, RedactAPIKey(in), "RedactAPIKey(%q)", in)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, key := range []string{"api_key", "X-Gapo-Api-Key", "Authorization", "cookie", "client_secret"} {
		assert.True(t, IsSensitiveKey(key), key)
	}
	for _, key := range []string{"uri", "role", "source", "http_code"} {
		assert.False(t, IsSensitiveKey(key), key)
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetRole(ctx))
	assert.Empty(t, GetSource(ctx))
}
