package config

import "time"

// Config is the root configuration structure for keygate.
type Config struct {
	// Server contains the HTTP listener configuration.
	Server ServerConfig `yaml:"server"`

	// IAM contains the IAM authority endpoint and bootstrap credential.
	IAM IAMConfig `yaml:"iam"`

	// Gate contains the request authorization settings.
	Gate GateConfig `yaml:"gate"`

	// KeyCache contains API key cache refresh settings.
	KeyCache KeyCacheConfig `yaml:"key_cache"`

	// Telemetry contains logging, metrics, tracing, error reporting, and
	// the rejection journal.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets contains secret resolution settings for ${secret:name}
	// references.
	Secrets SecretsConfig `yaml:"secrets"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:5000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// TLS terminates TLS on the listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains listener TLS settings.
type TLSConfig struct {
	// Enabled serves HTTPS instead of HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM certificate chain. Required when enabled.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key. Required when enabled.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the lowest accepted protocol version.
	// Options: "1.2", "1.3"
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts TLS 1.2 cipher suites. Empty uses Go's defaults.
	CipherSuites []string `yaml:"cipher_suites"`

	// ReloadInterval is how often the certificate files are checked for
	// changes. Zero disables reloading.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// ClientCAFile enables client certificate verification against the
	// given PEM bundle.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuth decides how client certificates are treated when
	// ClientCAFile is set.
	// Options: "request", "require", "verify_if_given"
	// Default: "require"
	ClientAuth string `yaml:"client_auth"`
}

// IAMConfig contains the IAM authority client configuration.
type IAMConfig struct {
	// URL is the key-list endpoint. Required.
	URL string `yaml:"url"`

	// APIKey is the gate's bootstrap credential. Required.
	// May be a ${secret:name} reference.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single key fetch.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// MaxBodyBytes caps the authority's response body.
	// Default: 4194304 (4MiB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// GateConfig contains request authorization settings.
type GateConfig struct {
	// RoleHeader carries the caller role.
	// Default: "x-gapo-role"
	RoleHeader string `yaml:"role_header"`

	// KeyHeader carries the service API key.
	// Default: "x-gapo-api-key"
	KeyHeader string `yaml:"key_header"`

	// UnclassifiedRole decides requests whose role is neither "service"
	// nor "user", including a missing role header.
	// Options: "allow", "reject"
	// Default: "allow"
	UnclassifiedRole string `yaml:"unclassified_role"`
}

// KeyCacheConfig contains API key cache settings.
type KeyCacheConfig struct {
	// CoalesceRefresh makes concurrent cache misses share one IAM fetch.
	// Default: true
	CoalesceRefresh bool `yaml:"coalesce_refresh"`

	// RefreshSchedule is a cron expression for background refreshes.
	// Empty disables background refresh.
	// Default: ""
	RefreshSchedule string `yaml:"refresh_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Sentry  SentryConfig  `yaml:"sentry"`
	Journal JournalConfig `yaml:"journal"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact masks API keys and bearer tokens in log attributes.
	// Default: true
	Redact bool `yaml:"redact"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "keygate"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "gate"
	Subsystem string `yaml:"subsystem"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "keygate"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// SentryConfig contains error reporting configuration.
type SentryConfig struct {
	// DSN is the Sentry project DSN. Empty disables delivery.
	DSN string `yaml:"dsn"`

	// Environment tags every event.
	// Default: "development"
	Environment string `yaml:"environment"`

	// Release tags every event. Defaults to the build version.
	Release string `yaml:"release"`

	// Debug enables the Sentry SDK's own logging.
	Debug bool `yaml:"debug"`

	// FlushTimeout bounds event delivery at shutdown.
	// Default: 2s
	FlushTimeout time.Duration `yaml:"flush_timeout"`
}

// JournalConfig contains rejection journal configuration.
type JournalConfig struct {
	// Enabled controls whether rejections are journaled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Driver selects the SQLite driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo), "memory"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// RetentionDays is how long records are kept. A negative value keeps
	// them forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// RequireKeys makes readiness fail while the key cache is empty.
	// Default: false
	RequireKeys bool `yaml:"require_keys"`
}

// SecretsConfig contains secret resolution configuration.
type SecretsConfig struct {
	// EnvPrefix is the prefix for environment-backed secrets.
	// Default: "KEYGATE_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// FileDir is a directory of files, one secret per file. Empty disables
	// the file provider.
	FileDir string `yaml:"file_dir"`

	// Watch reloads secrets when files in FileDir change.
	// Default: true
	Watch bool `yaml:"watch"`

	// CacheTTL is how long resolved secrets are cached.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}
