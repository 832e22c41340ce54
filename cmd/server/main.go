// Package main runs the Monte Carlo HTTP service:
// - /health, /metrics, /status
// - /v1/simulate, /v1/sweep, /v1/breakeven
// - /v1/stream (websocket)
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

	"go.uber.org/zap"

	"trade-montecarlo-lab/internal/api"
	"trade-montecarlo-lab/internal/config"
	"trade-montecarlo-lab/internal/logging"
	"trade-montecarlo-lab/internal/orchestrator"
)

func main() {
	// Parse flags (config and env vars as defaults)
	configPath := flag.String("config", "", "YAML config file (default $MC_CONFIG)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	workers := flag.Int("workers", -1, "Parallel workers, 0 uses every CPU (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString("[server] load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *workers >= 0 {
		cfg.Engine.Workers = *workers
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	// Setup logger
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		os.Stderr.WriteString("[server] " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.Named("server")

	srv := api.New(api.Options{
		Orchestrator: orchestrator.New(orchestrator.Options{Workers: cfg.Engine.Workers, Logger: logger}),
		Defaults:     cfg.Simulation,
		SweepGrid:    cfg.Sweep,
		Limits: api.Limits{
			MaxSimulations:   cfg.Server.MaxSimulations,
			MaxTrades:        cfg.Server.MaxTrades,
			MaxSweepCells:    cfg.Server.MaxSweepCells,
			MaxStreamPaths:   cfg.Server.MaxStreamPaths,
			MaxResponsePaths: cfg.Server.MaxResponsePaths,
		},
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Create context with cancellation on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
