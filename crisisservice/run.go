package crisisservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/api"
	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/config"
	"github.com/mycelian/mycelian-crisis/internal/crisis"
	"github.com/mycelian/mycelian-crisis/internal/factory"
	"github.com/mycelian/mycelian-crisis/internal/feed"
	"github.com/mycelian/mycelian-crisis/internal/health"
	"github.com/mycelian/mycelian-crisis/internal/kv"
	"github.com/mycelian/mycelian-crisis/internal/logger"
	"github.com/mycelian/mycelian-crisis/internal/monitor"
	"github.com/mycelian/mycelian-crisis/internal/realtime"
	"github.com/mycelian/mycelian-crisis/internal/session"
)

// Run starts the crisis service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("crisis-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log = logger.Configure("crisis-service", cfg.LogFormat, cfg.LogLevel)

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("kv_driver", cfg.KVDriver).
		Str("realtime_driver", cfg.RealtimeDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Crisis service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	svc, err := build(ctx, cfg, clock.Real(), log)
	if err != nil {
		return err
	}
	defer svc.close()

	svc.start(ctx)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svc.health); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, svc.router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// service holds the wired components of one process.
type service struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   kv.Store
	gw      factory.Realtime
	engine  *crisis.Engine
	monitor *monitor.Monitor
	health  *health.Service
	router  http.Handler
}

// build constructs every dependency; nothing runs until start.
func build(ctx context.Context, cfg *config.Config, clk clock.Clock, log zerolog.Logger) (*service, error) {
	store, err := factory.NewKV(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Persistence gateway unavailable")
		return nil, err
	}
	gw, err := factory.NewRealtime(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Realtime gateway unavailable")
		_ = store.Close()
		return nil, err
	}

	engine := crisis.New(feed.New(clk), store, gw, clk, log, crisis.Options{
		InstanceID:             uuid.NewString(),
		AssessmentHistoryLimit: cfg.AssessmentHistoryLimit,
		SessionHistoryLimit:    cfg.SessionHistoryLimit,
		FollowUpDelay:          cfg.FollowUpDelay(),
	})
	engine.OnSessionEvent(logSessionEvent(log))

	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	svcHealth := health.NewService(log, kv.NewHealthChecker(store, log, probeTimeout), gw)

	hub := realtime.NewHub(gw, cfg.WSMessagesPerMinute, log)
	handler := api.NewHandler(engine, hub, clk, log)
	router := api.NewRouter(handler, api.NewHealthHandler(svcHealth), log)

	return &service{
		cfg:     cfg,
		log:     log,
		store:   store,
		gw:      gw,
		engine:  engine,
		monitor: engine.Monitor(monitor.Config{Interval: cfg.MonitorInterval()}),
		health:  svcHealth,
		router:  router,
	}, nil
}

// start launches the background loops; they stop when ctx is canceled.
func (s *service) start(ctx context.Context) {
	interval := time.Duration(s.cfg.HealthIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go s.health.Run(ctx, interval)

	go func() {
		if err := s.monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Stack().Err(err).Msg("periodic monitor stopped")
		}
	}()
	go func() {
		if err := s.engine.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Stack().Err(err).Msg("realtime listener stopped")
		}
	}()
}

func (s *service) close() {
	if err := s.gw.Close(); err != nil {
		s.log.Warn().Err(err).Msg("realtime gateway close failed")
	}
	if err := s.store.Close(); err != nil {
		s.log.Warn().Err(err).Msg("persistence gateway close failed")
	}
}

// logSessionEvent records every local session transition.
func logSessionEvent(log zerolog.Logger) session.Listener {
	return func(evt session.Event) {
		e := log.Info().Str("event", string(evt.Type)).Str("user_id", evt.UserID)
		if evt.Session != nil {
			e = e.Str("session_id", evt.Session.ID).Str("status", string(evt.Session.Status))
		}
		e.Msg("session event")
	}
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.Service) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.Evaluate() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
