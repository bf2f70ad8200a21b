package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gapo-hq/keygate/pkg/config"
	"gapo-hq/keygate/pkg/iam"
	"gapo-hq/keygate/pkg/security/secrets"
	servertls "gapo-hq/keygate/pkg/security/tls"
	"gapo-hq/keygate/pkg/telemetry/journal"
	"gapo-hq/keygate/pkg/telemetry/logging"
)

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(cfg *config.LoggingConfig) (*slog.Logger, error) {
	level := cfg.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		Redact:    cfg.Redact,
		Writer:    os.Stderr,
	})
}

// secretSource resolves ${secret:name} references in configuration.
type secretSource struct {
	manager *secrets.Manager
	files   *secrets.FileProvider
}

// newSecretSource builds the environment provider and, when a directory is
// configured, the file provider. changes receives the name of every file
// that changes under a watched directory; sends never block.
func newSecretSource(cfg *config.SecretsConfig, logger *slog.Logger, changes chan<- string) (*secretSource, error) {
	providers := []secrets.SecretProvider{secrets.NewEnvProvider(cfg.EnvPrefix)}

	src := &secretSource{}
	if cfg.FileDir != "" {
		opts := []secrets.FileOption{secrets.WithLogger(logger)}
		if changes != nil {
			opts = append(opts, secrets.WithOnChange(func(name string) {
				select {
				case changes <- name:
				default:
				}
			}))
		}
		files, err := secrets.NewFileProvider(cfg.FileDir, cfg.Watch && changes != nil, opts...)
		if err != nil {
			return nil, fmt.Errorf("secrets file provider: %w", err)
		}
		src.files = files
		// Files take precedence over the environment.
		providers = append([]secrets.SecretProvider{files}, providers...)
	}

	src.manager = secrets.NewManager(providers, secrets.CacheConfig{
		Enabled: cfg.CacheTTL > 0,
		TTL:     cfg.CacheTTL,
		MaxSize: 64,
	})
	src.manager.SetLogger(logger)
	return src, nil
}

// Resolve expands references in value. Strings without references are returned
// as is.
func (s *secretSource) Resolve(ctx context.Context, value string) (string, error) {
	if !secrets.HasReferences(value) {
		return value, nil
	}
	return s.manager.ResolveReferences(ctx, value)
}

// Close stops the file watcher, if any.
func (s *secretSource) Close() error {
	if s.files == nil {
		return nil
	}
	return s.files.Close()
}

// newIAMClient resolves the bootstrap key and builds the IAM client.
func newIAMClient(ctx context.Context, cfg *config.IAMConfig, src *secretSource, opts ...iam.Option) (*iam.Client, error) {
	key, err := src.Resolve(ctx, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolve iam.api_key: %w", err)
	}
	return iam.NewClient(iam.Config{
		URL:          cfg.URL,
		APIKey:       key,
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, opts...)
}

// openJournal opens the configured rejection journal.
func openJournal(cfg *config.JournalConfig) (journal.Store, error) {
	if cfg.Driver == "memory" {
		return journal.NewMemoryStore(), nil
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && cfg.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	sc := journal.DefaultSQLiteConfig()
	sc.Driver = cfg.Driver
	sc.Path = cfg.Path
	sc.WALMode = cfg.WALMode
	sc.BusyTimeout = cfg.BusyTimeout
	store, err := journal.NewSQLiteStore(sc)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// newListenerTLS loads the server certificate and builds the listener TLS
// configuration. Both results are nil when TLS is disabled.
func newListenerTLS(cfg *config.TLSConfig, logger *slog.Logger) (*servertls.Reloader, *tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	reloader, err := servertls.NewReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
	if err != nil {
		return nil, nil, err
	}
	tlsConfig, err := servertls.NewServerConfig(cfg, reloader)
	if err != nil {
		return nil, nil, err
	}
	return reloader, tlsConfig, nil
}
