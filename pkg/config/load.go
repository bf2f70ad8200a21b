package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. An empty path skips the file and
// builds the configuration from defaults and environment only.
//
// The loading sequence is:
// 1. Load YAML from file (if any) on top of defaults
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := NewDefault()
	if path != "" {
		var err error
		if cfg, err = parseFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("configuration file %q not found: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Deployment
// variables are applied first so KEYGATE_ names win.
func applyEnvOverrides(cfg *Config) {
	// Deployment variables
	setString(&cfg.Server.ListenAddress, "SERVER")
	setString(&cfg.IAM.URL, "IAM_API")
	setString(&cfg.IAM.APIKey, "IAM_KEY")
	setString(&cfg.Telemetry.Sentry.DSN, "SENTRY_URI")
	setString(&cfg.Telemetry.Sentry.Environment, "ENV")

	// Server overrides
	setString(&cfg.Server.ListenAddress, "KEYGATE_SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "KEYGATE_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "KEYGATE_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "KEYGATE_SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "KEYGATE_SERVER_SHUTDOWN_TIMEOUT")
	setInt(&cfg.Server.MaxHeaderBytes, "KEYGATE_SERVER_MAX_HEADER_BYTES")
	setBool(&cfg.Server.TLS.Enabled, "KEYGATE_SERVER_TLS_ENABLED")
	setString(&cfg.Server.TLS.CertFile, "KEYGATE_SERVER_TLS_CERT_FILE")
	setString(&cfg.Server.TLS.KeyFile, "KEYGATE_SERVER_TLS_KEY_FILE")

	// IAM overrides
	setString(&cfg.IAM.URL, "KEYGATE_IAM_URL")
	setString(&cfg.IAM.APIKey, "KEYGATE_IAM_API_KEY")
	setDuration(&cfg.IAM.Timeout, "KEYGATE_IAM_TIMEOUT")
	if val := os.Getenv("KEYGATE_IAM_MAX_BODY_BYTES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.IAM.MaxBodyBytes = i
		}
	}

	// Gate overrides
	setString(&cfg.Gate.RoleHeader, "KEYGATE_GATE_ROLE_HEADER")
	setString(&cfg.Gate.KeyHeader, "KEYGATE_GATE_KEY_HEADER")
	setString(&cfg.Gate.UnclassifiedRole, "KEYGATE_GATE_UNCLASSIFIED_ROLE")

	// Key cache overrides
	setBool(&cfg.KeyCache.CoalesceRefresh, "KEYGATE_KEY_CACHE_COALESCE_REFRESH")
	setString(&cfg.KeyCache.RefreshSchedule, "KEYGATE_KEY_CACHE_REFRESH_SCHEDULE")

	// Telemetry overrides
	setString(&cfg.Telemetry.Logging.Level, "KEYGATE_TELEMETRY_LOGGING_LEVEL")
	setString(&cfg.Telemetry.Logging.Format, "KEYGATE_TELEMETRY_LOGGING_FORMAT")
	setBool(&cfg.Telemetry.Metrics.Enabled, "KEYGATE_TELEMETRY_METRICS_ENABLED")
	setString(&cfg.Telemetry.Metrics.Path, "KEYGATE_TELEMETRY_METRICS_PATH")
	setBool(&cfg.Telemetry.Tracing.Enabled, "KEYGATE_TELEMETRY_TRACING_ENABLED")
	setString(&cfg.Telemetry.Tracing.Endpoint, "KEYGATE_TELEMETRY_TRACING_ENDPOINT")
	setString(&cfg.Telemetry.Sentry.DSN, "KEYGATE_TELEMETRY_SENTRY_DSN")
	setString(&cfg.Telemetry.Sentry.Environment, "KEYGATE_TELEMETRY_SENTRY_ENVIRONMENT")
	setString(&cfg.Telemetry.Sentry.Release, "KEYGATE_TELEMETRY_SENTRY_RELEASE")
	setBool(&cfg.Telemetry.Journal.Enabled, "KEYGATE_TELEMETRY_JOURNAL_ENABLED")
	setString(&cfg.Telemetry.Journal.Driver, "KEYGATE_TELEMETRY_JOURNAL_DRIVER")
	setString(&cfg.Telemetry.Journal.Path, "KEYGATE_TELEMETRY_JOURNAL_PATH")
	setInt(&cfg.Telemetry.Journal.RetentionDays, "KEYGATE_TELEMETRY_JOURNAL_RETENTION_DAYS")

	// Secrets overrides
	setString(&cfg.Secrets.FileDir, "KEYGATE_SECRETS_FILE_DIR")
	setBool(&cfg.Secrets.Watch, "KEYGATE_SECRETS_WATCH")
}

func setString(dst *string, name string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func setDuration(dst *time.Duration, name string) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func setInt(dst *int, name string) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setBool(dst *bool, name string) {
	if val := os.Getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}
