package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:5000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute
	DefaultTLSClientAuth   = "require"

	// IAM defaults
	DefaultIAMTimeout      = 5 * time.Second
	DefaultIAMMaxBodyBytes = int64(4 << 20)

	// Gate defaults
	DefaultRoleHeader       = "x-gapo-role"
	DefaultKeyHeader        = "x-gapo-api-key"
	DefaultUnclassifiedRole = UnclassifiedAllow

	// Key cache defaults
	DefaultCoalesceRefresh = true

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedact      = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "keygate"
	DefaultMetricsSubsystem   = "gate"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "keygate"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultSentryEnvironment  = "development"
	DefaultSentryFlushTimeout = 2 * time.Second
	DefaultJournalDriver      = "sqlite"
	DefaultJournalPath        = "data/journal.db"
	DefaultJournalWALMode     = true
	DefaultJournalBusyTimeout = 5 * time.Second
	DefaultJournalRetention   = 30
	DefaultJournalSchedule    = "0 3 * * *"
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "KEYGATE_SECRET_"
	DefaultSecretsWatch     = true
	DefaultSecretsCacheTTL  = 5 * time.Minute
)

// Unclassified role policies.
const (
	UnclassifiedAllow  = "allow"
	UnclassifiedReject = "reject"
)

// NewDefault returns a Config with every default applied, including the
// boolean defaults that ApplyDefaults cannot tell apart from an explicit
// false. YAML is decoded on top of it.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Server.TLS.ReloadInterval = DefaultTLSReload
	cfg.KeyCache.CoalesceRefresh = DefaultCoalesceRefresh
	cfg.Telemetry.Logging.Redact = DefaultLoggingRedact
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Journal.WALMode = DefaultJournalWALMode
	cfg.Secrets.Watch = DefaultSecretsWatch
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ClientCAFile != "" && cfg.Server.TLS.ClientAuth == "" {
		cfg.Server.TLS.ClientAuth = DefaultTLSClientAuth
	}

	// IAM defaults
	if cfg.IAM.Timeout == 0 {
		cfg.IAM.Timeout = DefaultIAMTimeout
	}
	if cfg.IAM.MaxBodyBytes == 0 {
		cfg.IAM.MaxBodyBytes = DefaultIAMMaxBodyBytes
	}

	// Gate defaults
	if cfg.Gate.RoleHeader == "" {
		cfg.Gate.RoleHeader = DefaultRoleHeader
	}
	if cfg.Gate.KeyHeader == "" {
		cfg.Gate.KeyHeader = DefaultKeyHeader
	}
	if cfg.Gate.UnclassifiedRole == "" {
		cfg.Gate.UnclassifiedRole = DefaultUnclassifiedRole
	}

	applyTelemetryDefaults(&cfg.Telemetry)

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 && t.Tracing.Sampler == DefaultTracingSampler {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}

	if t.Sentry.Environment == "" {
		t.Sentry.Environment = DefaultSentryEnvironment
	}
	if t.Sentry.FlushTimeout == 0 {
		t.Sentry.FlushTimeout = DefaultSentryFlushTimeout
	}

	if t.Journal.Driver == "" {
		t.Journal.Driver = DefaultJournalDriver
	}
	if t.Journal.Path == "" {
		t.Journal.Path = DefaultJournalPath
	}
	if t.Journal.BusyTimeout == 0 {
		t.Journal.BusyTimeout = DefaultJournalBusyTimeout
	}
	if t.Journal.RetentionDays == 0 {
		t.Journal.RetentionDays = DefaultJournalRetention
	}
	if t.Journal.PruneSchedule == "" {
		t.Journal.PruneSchedule = DefaultJournalSchedule
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
}
