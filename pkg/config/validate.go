package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "iam.url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All validation errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateIAM(&cfg.IAM)...)
	errs = append(errs, validateGate(&cfg.Gate)...)
	errs = append(errs, validateKeyCache(&cfg.KeyCache)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecrets(&cfg.Secrets)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if !strings.Contains(cfg.ListenAddress, ":") {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: must be host:port", cfg.ListenAddress),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be non-negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be non-negative"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be non-negative"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be non-negative"})
	}

	errs = append(errs, validateTLS(&cfg.TLS)...)
	return errs
}

func validateTLS(cfg *TLSConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError

	if cfg.CertFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "certificate file is required when TLS is enabled"})
	}
	if cfg.KeyFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "key file is required when TLS is enabled"})
	}
	if cfg.MinVersion != "1.2" && cfg.MinVersion != "1.3" {
		errs = append(errs, FieldError{
			Field:   "server.tls.min_version",
			Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.MinVersion),
		})
	}
	if cfg.ReloadInterval < 0 {
		errs = append(errs, FieldError{Field: "server.tls.reload_interval", Message: "reload interval must be non-negative"})
	}
	if cfg.ClientCAFile != "" {
		switch cfg.ClientAuth {
		case "request", "require", "verify_if_given":
		default:
			errs = append(errs, FieldError{
				Field:   "server.tls.client_auth",
				Message: fmt.Sprintf("invalid client auth %q: must be 'request', 'require', or 'verify_if_given'", cfg.ClientAuth),
			})
		}
	}

	return errs
}

func validateIAM(cfg *IAMConfig) []FieldError {
	var errs []FieldError

	if cfg.URL == "" {
		errs = append(errs, FieldError{
			Field:   "iam.url",
			Message: "IAM authority URL is required (set iam.url or IAM_API)",
		})
	} else if u, err := url.Parse(cfg.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "iam.url",
			Message: fmt.Sprintf("invalid IAM URL %q: must be an absolute http(s) URL", cfg.URL),
		})
	}

	if cfg.APIKey == "" {
		errs = append(errs, FieldError{
			Field:   "iam.api_key",
			Message: "IAM bootstrap key is required (set iam.api_key or IAM_KEY)",
		})
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "iam.timeout", Message: "timeout must be positive"})
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, FieldError{Field: "iam.max_body_bytes", Message: "max body bytes must be positive"})
	}

	return errs
}

func validateGate(cfg *GateConfig) []FieldError {
	var errs []FieldError

	if cfg.RoleHeader == "" {
		errs = append(errs, FieldError{Field: "gate.role_header", Message: "role header is required"})
	}
	if cfg.KeyHeader == "" {
		errs = append(errs, FieldError{Field: "gate.key_header", Message: "key header is required"})
	}
	if cfg.UnclassifiedRole != UnclassifiedAllow && cfg.UnclassifiedRole != UnclassifiedReject {
		errs = append(errs, FieldError{
			Field:   "gate.unclassified_role",
			Message: fmt.Sprintf("invalid policy %q: must be 'allow' or 'reject'", cfg.UnclassifiedRole),
		})
	}

	return errs
}

func validateKeyCache(cfg *KeyCacheConfig) []FieldError {
	var errs []FieldError

	if cfg.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "key_cache.refresh_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.RefreshSchedule, err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Sentry.FlushTimeout < 0 {
		errs = append(errs, FieldError{Field: "telemetry.sentry.flush_timeout", Message: "flush timeout must be non-negative"})
	}

	if cfg.Journal.Enabled {
		validDrivers := map[string]bool{"sqlite": true, "sqlite3": true, "memory": true}
		if !validDrivers[cfg.Journal.Driver] {
			errs = append(errs, FieldError{
				Field:   "telemetry.journal.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite', 'sqlite3', or 'memory'", cfg.Journal.Driver),
			})
		}
		if cfg.Journal.Driver != "memory" && cfg.Journal.Path == "" {
			errs = append(errs, FieldError{Field: "telemetry.journal.path", Message: "path is required"})
		}
		if _, err := cron.ParseStandard(cfg.Journal.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.journal.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Journal.PruneSchedule, err),
			})
		}
	}

	if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
		errs = append(errs, FieldError{Field: "telemetry.health.liveness_path", Message: "liveness path must start with /"})
	}
	if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
		errs = append(errs, FieldError{Field: "telemetry.health.readiness_path", Message: "readiness path must start with /"})
	}

	return errs
}

func validateSecrets(cfg *SecretsConfig) []FieldError {
	var errs []FieldError

	if cfg.CacheTTL < 0 {
		errs = append(errs, FieldError{Field: "secrets.cache_ttl", Message: "cache TTL must be non-negative"})
	}

	return errs
}
