// Package main runs the platform API server:
// - HTTP API: auth, asset mutations and queries, documents, exchange rates
// - Exchange-rate updater (hourly)
// - Housekeeping: expired sessions, idle rate-limiter keys
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"asset-tokenization-kit/internal/api"
	"asset-tokenization-kit/internal/app"
	"asset-tokenization-kit/internal/config"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	housekeepingInterval = 10 * time.Minute
	shutdownTimeout      = 30 * time.Second
)

func main() {
	// Load .env file if exists; real env vars win.
	_ = godotenv.Load()

	cfg := config.FromEnv(os.Getenv)

	// Parse flags (env vars as defaults)
	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	flag.StringVar(&cfg.ClickHouseDSN, "clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string (optional, rate history)")
	flag.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for the shared read cache (optional)")
	flag.BoolVar(&cfg.UseMemory, "use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL")
	flag.BoolVar(&cfg.StubServices, "stub-services", cfg.StubServices, "Use in-process Portal, TheGraph and Hasura")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, text)")
	migrate := flag.Bool("migrate", true, "Apply embedded migrations on startup")
	flag.Parse()

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logger.WithField("component", "server")

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	trusted, err := config.ParsePrefixes(cfg.TrustedProxies)
	if err != nil {
		log.WithError(err).Fatal("invalid trusted proxies")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, version)
	if err != nil {
		log.WithError(err).Fatal("failed to set up tracing")
	}

	deps, err := app.Build(ctx, cfg, logger, app.Options{Migrate: *migrate})
	if err != nil {
		log.WithError(err).Fatal("failed to build application")
	}
	defer deps.Close()

	srv := api.New(api.Options{
		Auth:           deps.Auth,
		Assets:         deps.Assets,
		Documents:      deps.Documents,
		ExchangeRates:  deps.ExchangeRates,
		Limiter:        deps.Limiter,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: trusted,
		Logger:         logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Warn("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			log.Error("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	errCh := make(chan error, 2)

	go func() {
		if err := deps.ExchangeRates.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go housekeeping(ctx, deps, log)

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.WithError(err).Error("server error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracer shutdown")
	}
	close(done)

	log.Info("shutdown complete")
}

// housekeeping purges expired sessions and idle limiter keys.
func housekeeping(ctx context.Context, deps *app.App, log *logrus.Entry) {
	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := deps.Auth.PurgeExpiredSessions(ctx)
			if err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("purge expired sessions")
			} else if n > 0 {
				log.WithField("sessions", n).Debug("purged expired sessions")
			}
			deps.Limiter.Cleanup(housekeepingInterval)
		}
	}
}
