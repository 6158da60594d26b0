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

	"github.com/riskibarqy/sports-trading/internal/app"
	"github.com/riskibarqy/sports-trading/internal/config"
	"github.com/riskibarqy/sports-trading/internal/interfaces/cron"
	"github.com/riskibarqy/sports-trading/internal/observability"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewJSON(cfg.LogLevel).With("service", cfg.ServiceName, "process", "scheduler")
	logging.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("scheduler exited", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg config.Config, logger *logging.Logger) error {
	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Warn("uptrace init failed", "error", err)
		shutdownTracing = nil
	}
	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Warn("pyroscope init failed", "error", err)
		stopProfiling = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build application context: %w", err)
	}

	scheduler := cron.New(a.Jobs, cron.Config{Location: cfg.Location, JobTimeout: cfg.JobTimeout}, logger)
	if err := scheduler.RegisterJobs(); err != nil {
		_ = a.Close()
		return fmt.Errorf("register jobs: %w", err)
	}

	catchUpCtx, cancelCatchUp := context.WithTimeout(ctx, cfg.JobTimeout)
	outcomes, err := scheduler.CatchUp(catchUpCtx)
	cancelCatchUp()
	if err != nil {
		logger.Error("startup catch-up finished with errors", "runs", len(outcomes), "error", err)
	} else {
		logger.Info("startup catch-up finished", "runs", len(outcomes))
	}

	scheduler.Start()
	for _, entry := range scheduler.Entries() {
		logger.Info("next fire", "job", entry.Name, "spec", entry.Spec, "next", entry.Next)
	}

	var srv *http.Server
	serverErr := make(chan error, 1)
	if cfg.HTTPAddr != "" {
		srv, err = a.NewHTTPServer()
		if err != nil {
			return fmt.Errorf("build http server: %w", err)
		}
		go func() {
			logger.Info("http server starting", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful http shutdown failed", "error", err)
		}
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler stop timed out", "error", err)
	}
	if err := a.Close(); err != nil {
		logger.Warn("close application context", "error", err)
	}
	if stopProfiling != nil {
		if err := stopProfiling(); err != nil {
			logger.Warn("stop pyroscope", "error", err)
		}
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}

	logger.Info("scheduler stopped")
	return runErr
}
