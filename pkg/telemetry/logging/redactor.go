package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks credentials in log attributes.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAPIKeyPair  = "api_key_pair"
	PatternPassword    = "password"
)

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = []string{
	"api_key", "apikey", "api-key",
	"authorization", "cookie",
	"password", "passwd", "secret", "token",
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*redactPattern{
			{
				name:        PatternBearerToken,
				regex:       regexp.MustCompile(`(?i)bearer\s+[a-z0-9\-._~+/]+=*`),
				replacement: "Bearer ***",
			},
			{
				name:        PatternAPIKeyPair,
				regex:       regexp.MustCompile(`(?i)((?:x-gapo-)?api[-_]?key["']?\s*[:=]\s*["']?)[^\s"',&]+`),
				replacement: "${1}***",
			},
			{
				name:        PatternPassword,
				regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*[^\s&]+`),
				replacement: "$1=***",
			},
		},
	}
}

// RedactString masks credentials embedded in a free-form string.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr returns a copy of a with sensitive content masked. Groups are
// handled recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, RedactAPIKey(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	default:
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		if v.Kind() == slog.KindAny {
			if err, ok := v.Any().(error); ok {
				return slog.String(a.Key, r.RedactString(err.Error()))
			}
		}
		return slog.Attr{Key: a.Key, Value: v}
	}
}

// IsSensitiveKey reports whether an attribute key names a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactAPIKey masks an API key, keeping a four character prefix for
// identification when the key is long enough.
func RedactAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + "***"
}
