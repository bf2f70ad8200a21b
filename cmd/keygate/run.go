package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"gapo-hq/keygate/pkg/cli"
	"gapo-hq/keygate/pkg/config"
	"gapo-hq/keygate/pkg/gate"
	"gapo-hq/keygate/pkg/iam"
	"gapo-hq/keygate/pkg/keycache"
	"gapo-hq/keygate/pkg/scheduler"
	servertls "gapo-hq/keygate/pkg/security/tls"
	"gapo-hq/keygate/pkg/server"
	"gapo-hq/keygate/pkg/telemetry/health"
	"gapo-hq/keygate/pkg/telemetry/journal"
	"gapo-hq/keygate/pkg/telemetry/metrics"
	"gapo-hq/keygate/pkg/telemetry/reporter"
	"gapo-hq/keygate/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the keygate server",
	Long: `Start the keygate server with the specified configuration.

The key cache is warmed from the IAM authority before the listener opens. If
the authority is unreachable the server still starts with an empty cache and
service calls are rejected until a refresh succeeds.

Examples:
  # Start with keygate.yaml (if present) and environment overrides
  keygate run

  # Start with a custom config
  keygate run --config /etc/keygate/keygate.yaml

  # Override listen address
  keygate run --listen 0.0.0.0:5000

  # Validate config without starting the server
  keygate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(&cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
		return nil
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	return app.serve(ctx)
}

// app holds every long-lived component of a running gate.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	secrets   *secretSource
	changes   chan string
	tracer    *tracing.Tracer
	collector *metrics.Collector
	sentry    *reporter.Sentry
	store     journal.Store
	client    *iam.Client
	cache     *keycache.Cache
	gate      *gate.Gate
	health    *health.Checker
	certs     *servertls.Reloader
	scheduler *scheduler.Scheduler
	server    *server.Server
}

// newApp wires the components in dependency order. On error, everything
// built so far is closed.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, changes: make(chan string, 1)}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.secrets, err = newSecretSource(&cfg.Secrets, logger, a.changes); err != nil {
		return nil, cli.NewConfigError("secrets.file_dir", err.Error())
	}

	a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	if a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version); err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	reporters := reporter.Multi{reporter.NewLog(logger)}
	if cfg.Telemetry.Sentry.DSN != "" {
		dsn, rerr := a.secrets.Resolve(ctx, cfg.Telemetry.Sentry.DSN)
		if rerr != nil {
			return nil, cli.NewConfigError("telemetry.sentry.dsn", rerr.Error())
		}
		release := cfg.Telemetry.Sentry.Release
		if release == "" {
			release = Version
		}
		if a.sentry, err = reporter.NewSentry(reporter.SentryConfig{
			DSN:          dsn,
			Environment:  cfg.Telemetry.Sentry.Environment,
			Release:      release,
			Debug:        cfg.Telemetry.Sentry.Debug,
			FlushTimeout: cfg.Telemetry.Sentry.FlushTimeout,
		}); err != nil {
			return nil, cli.NewConfigError("telemetry.sentry", err.Error())
		}
		reporters = append(reporters, a.sentry)
	}
	if cfg.Telemetry.Journal.Enabled {
		if a.store, err = openJournal(&cfg.Telemetry.Journal); err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		reporters = append(reporters, &reporter.Journal{Store: a.store})
	}

	if a.client, err = newIAMClient(ctx, &cfg.IAM, a.secrets,
		iam.WithTracer(a.tracer.Tracer()),
		iam.WithObserver(a.collector),
	); err != nil {
		return nil, cli.NewConfigError("iam", err.Error())
	}

	a.cache = keycache.New(a.client, keycache.Options{
		Coalesce: cfg.KeyCache.CoalesceRefresh,
		Logger:   logger,
		Observer: a.collector,
	})

	a.gate = gate.New(a.cache, gate.Options{
		RoleHeader:         cfg.Gate.RoleHeader,
		KeyHeader:          cfg.Gate.KeyHeader,
		RejectUnclassified: cfg.Gate.UnclassifiedRole == config.UnclassifiedReject,
		Reporter:           reporters,
		Observer:           a.collector,
		Tracer:             a.tracer.Tracer(),
		Logger:             logger,
	})

	a.health = health.New(health.DefaultCheckTimeout)
	a.health.RegisterCheck("key_cache", health.KeyCacheCheck(a.cache, cfg.Telemetry.Health.RequireKeys))
	if a.store != nil {
		a.health.RegisterCheck("journal", health.JournalCheck(a.store))
	}

	certs, tlsConfig, err := newListenerTLS(&cfg.Server.TLS, logger)
	if err != nil {
		return nil, cli.NewConfigError("server.tls", err.Error())
	}
	if certs != nil {
		a.certs = certs
		a.health.RegisterCheck("tls_certificate", health.CertificateCheck(certs))
	}

	a.scheduler = scheduler.New(logger)
	if err = a.scheduler.Add(scheduler.KeyRefreshJob(cfg.KeyCache.RefreshSchedule, a.cache, logger)); err != nil {
		return nil, cli.NewConfigError("key_cache.refresh_schedule", err.Error())
	}
	if a.store != nil {
		job := scheduler.JournalPruneJob(cfg.Telemetry.Journal.PruneSchedule, a.store, cfg.Telemetry.Journal.RetentionDays, logger)
		if err = a.scheduler.Add(job); err != nil {
			return nil, cli.NewConfigError("telemetry.journal.prune_schedule", err.Error())
		}
	}

	if a.server, err = server.New(&cfg.Server, &cfg.Telemetry, server.Deps{
		Gate:     a.gate,
		Health:   a.health,
		Metrics:  a.collector,
		Tracer:   a.tracer,
		Sentry:   a.sentry,
		Reporter: reporters,
		Logger:   logger,
		Version:  versionInfo(),
		TLS:      tlsConfig,
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// serve warms the cache, starts background work and blocks until ctx is
// cancelled.
func (a *app) serve(ctx context.Context) error {
	// A failed warm-up leaves the cache empty; the gate keeps serving.
	_ = a.cache.Warm(ctx)

	go a.watchSecrets(ctx)
	a.scheduler.Start(ctx)
	for _, name := range []string{scheduler.JobKeyRefresh, scheduler.JobJournalPrune} {
		if next, ok := a.scheduler.NextRun(name); ok {
			a.logger.Info("job scheduled", "job", name, "next_run", next)
		}
	}
	if a.certs != nil {
		a.certs.Start(ctx)
	}

	a.logger.Info("keygate starting",
		"version", Version,
		"address", a.cfg.Server.ListenAddress,
		"keys", a.cache.Len(),
		"tls", a.certs != nil,
		"unclassified_role", a.cfg.Gate.UnclassifiedRole,
	)
	return a.server.Start(ctx)
}

// watchSecrets re-resolves the bootstrap key whenever a secret file
// changes and refreshes the key cache with it.
func (a *app) watchSecrets(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case name := <-a.changes:
			if err := a.rotateAPIKey(ctx); err != nil {
				a.logger.Error("failed to apply rotated iam api key", "file", name, "error", err)
				continue
			}
			a.logger.Info("iam api key reloaded", "file", name)
		}
	}
}

func (a *app) rotateAPIKey(ctx context.Context) error {
	if err := a.secrets.manager.Refresh(ctx); err != nil {
		return err
	}
	key, err := a.secrets.Resolve(ctx, a.cfg.IAM.APIKey)
	if err != nil {
		return err
	}
	a.client.SetAPIKey(key)

	if err := a.scheduler.RunNow(ctx, scheduler.JobKeyRefresh); err != nil {
		return fmt.Errorf("refresh with rotated key: %w", err)
	}
	return nil
}

// close releases components in reverse order of construction. It is safe on
// a partially built app.
func (a *app) close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.certs != nil {
		a.certs.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close journal", "error", err)
		}
	}
	if a.sentry != nil {
		a.sentry.Flush()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shut down tracer", "error", err)
		}
		cancel()
	}
	if a.secrets != nil {
		if err := a.secrets.Close(); err != nil {
			a.logger.Error("failed to close secret watcher", "error", err)
		}
	}
}
