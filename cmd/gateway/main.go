// Command gateway serves the upstream integration gateway over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gateway "github.com/goliatone/go-upstream-gateway"
	"github.com/goliatone/go-upstream-gateway/adapters/gologger"
	"github.com/goliatone/go-upstream-gateway/adapters/prommetrics"
	sqlstore "github.com/goliatone/go-upstream-gateway/store/sql"
	"github.com/goliatone/go-upstream-gateway/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := gateway.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := gologger.NewZap(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = zapLogger.Sync() }()
	provider := gologger.NewZapProvider(zapLogger)
	logger := provider.GetLogger(cfg.ServiceName)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []gateway.Option{
		gateway.WithLoggerProvider(provider),
		gateway.WithMetrics(prommetrics.NewRecorder(registry)),
	}
	if cfg.Store.Enabled() {
		client, err := sqlstore.Open(ctx, cfg.Store, cfg.ServiceName)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		store, err := sqlstore.NewStateStore(client, cfg.Store.CacheTTL)
		if err != nil {
			return err
		}
		opts = append(opts, gateway.WithRateLimitStore(store))
		logger.Info("throttle state persisted", "driver", cfg.Store.Driver)
	}

	gw, err := gateway.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newRouter(gw, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.HTTP.Addr, "routes", gw.Routes())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("gateway shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newRouter mounts the operational endpoints next to the gateway routes. Every
// other path is answered by the gateway dispatcher.
func newRouter(gw *gateway.Gateway, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Handle("/*", gw.Handler())
	return r
}
