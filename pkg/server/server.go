package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"gapo-hq/keygate/pkg/config"
	"gapo-hq/keygate/pkg/gate"
	"gapo-hq/keygate/pkg/middleware"
	"gapo-hq/keygate/pkg/telemetry/health"
	"gapo-hq/keygate/pkg/telemetry/metrics"
	"gapo-hq/keygate/pkg/telemetry/reporter"
	"gapo-hq/keygate/pkg/telemetry/tracing"
)

// Deps are the components the server routes to. Only Gate is required.
type Deps struct {
	Gate     *gate.Gate
	Health   *health.Checker
	Metrics  *metrics.Collector
	Tracer   *tracing.Tracer
	Sentry   *reporter.Sentry
	Reporter reporter.Reporter
	Logger   *slog.Logger
	Version  health.VersionInfo

	// TLS, when set, makes the listener serve HTTPS.
	TLS *tls.Config
}

// Server is the keygate HTTP server.
type Server struct {
	config    *config.ServerConfig
	telemetry *config.TelemetryConfig
	deps      Deps
	logger    *slog.Logger

	httpServer *http.Server
	listener   net.Listener

	mu           sync.RWMutex
	isRunning    bool
	shutdownOnce sync.Once
}

// New creates a server.
func New(cfg *config.ServerConfig, telemetry *config.TelemetryConfig, deps Deps) (*Server, error) {
	if deps.Gate == nil {
		return nil, errors.New("server requires a gate")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	return &Server{
		config:    cfg,
		telemetry: telemetry,
		deps:      deps,
		logger:    logger.With("component", "server"),
	}, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(s.deps.Reporter))
	if s.deps.Tracer != nil && s.deps.Tracer.Enabled() {
		r.Use(tracing.Middleware(s.deps.Tracer))
	}
	var recorder middleware.RequestRecorder
	if s.deps.Metrics != nil {
		recorder = s.deps.Metrics
	}
	r.Use(middleware.AccessLog(s.logger, recorder))
	r.NotFound(notFound)

	r.Get(s.telemetry.Health.LivenessPath, s.deps.Health.LivenessHandler())
	r.Head(s.telemetry.Health.LivenessPath, s.deps.Health.LivenessHandler())
	r.Get(s.telemetry.Health.ReadinessPath, s.deps.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.deps.Version.Version, s.deps.Version.Commit, s.deps.Version.BuildTime))
	if s.deps.Metrics != nil && s.telemetry.Metrics.Enabled {
		r.Handle(s.telemetry.Metrics.Path, s.deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.deps.Sentry != nil {
			r.Use(s.deps.Sentry.Middleware)
		}
		r.Use(s.deps.Gate.Middleware)
		r.Get("/", Index)
	})

	return r
}

// Listen binds the configured address. Start calls it when needed; calling
// it first lets callers learn the bound address of ":0".
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	if s.deps.TLS != nil {
		ln = tls.NewListener(ln, s.deps.TLS)
	}
	s.listener = ln
	return ln.Addr(), nil
}

// Start serves until ctx is cancelled or the server fails, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	ln := s.listener
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String(), "tls", s.deps.TLS != nil)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown stops accepting requests and waits for in-flight ones, up to
// the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.mu.Unlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
