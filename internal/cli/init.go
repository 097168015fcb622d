// Package cli provides common initialization for cmd/ocorrencias and
// cmd/ocorrencias-import.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ocorrencias/internal/backend"
	"ocorrencias/internal/config"
	"ocorrencias/internal/core"
	applog "ocorrencias/internal/log"
)

// LoadAndValidateConfig loads the environment (and .env) into a Config and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default.
func SetupLogger(cfg *config.Config) (*applog.Logger, error) {
	level, err := applog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	lc := applog.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.LogFormat
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger, nil
}

// Fatal logs err and exits with status 1.
func Fatal(logger *applog.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{applog.FieldError, err}, args...)...)
	os.Exit(1)
}

// LoadDataset opens the configured backend and loads the dataset once.
// The backend is released before returning.
func LoadDataset(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*core.Dataset, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, err
	}
	if res.Cleanup != nil {
		defer func() {
			if cerr := res.Cleanup(); cerr != nil {
				logger.Warn("Backend cleanup failed", applog.FieldError, cerr)
			}
		}()
	}

	start := time.Now()
	ds, err := res.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset from %s backend: %w", bc.Type, err)
	}
	applog.NewStructuredLogger(logger).LogDatasetLoaded(ctx, string(bc.Type), ds.Len(), len(ds.Columns))
	logger.Debug("Dataset load timing", applog.FieldDuration, time.Since(start).Milliseconds())
	return ds, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout; done is
// closed when cleanup returns.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			"signal", sig.String(),
			applog.FieldOperation, applog.OpShutdown)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}
