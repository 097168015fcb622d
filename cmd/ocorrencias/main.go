package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ocorrencias/internal/cache"
	"ocorrencias/internal/cli"
	"ocorrencias/internal/core"
	apphttp "ocorrencias/internal/http"
	applog "ocorrencias/internal/log"
	"ocorrencias/internal/metrics"
	"ocorrencias/internal/middleware/ratelimit"
	"ocorrencias/internal/services"
)

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger, err := cli.SetupLogger(cfg)
	if err != nil {
		slog.Error("Invalid logger configuration", "error", err)
		os.Exit(1)
	}

	// The dataset is loaded exactly once; a failure here is fatal.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*time.Minute)
	ds, err := cli.LoadDataset(loadCtx, logger, cfg)
	cancelLoad()
	if err != nil {
		cli.Fatal(logger, "Failed to load dataset", err, applog.FieldBackend, cfg.DataBackend)
	}

	m := metrics.New()
	m.SetDatasetRows(ds.Len())

	views := cache.NewLRUCache[*core.View](cfg.CacheSize, cfg.CacheTTL, cache.WithObserver(m.ObserveCache))
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register(views)
	cacheManager.StartCleanup(cfg.CacheTTL)

	svc, err := services.NewDashboardService(ds, views, m)
	if err != nil {
		cli.Fatal(logger, "Failed to create dashboard service", err)
	}
	if issues := svc.Inconsistencies(); len(issues) > 0 {
		logger.WithComponent(applog.ComponentDataset).Warn("Rows whose total_vitimas differs from feminino + masculino",
			"count", len(issues), "first_row", issues[0].Row)
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		TrustedProxies: cfg.TrustedProxies,
	}, apphttp.Dependencies{
		Service: svc,
		Logger:  logger,
		Metrics: m,
		Backend: cfg.DataBackend,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to create HTTP server", err)
	}
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
	})

	logger.Info("Starting ocorrencias server",
		"addr", cfg.Addr(),
		applog.FieldBackend, cfg.DataBackend,
		applog.FieldRows, ds.Len(),
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "addr", cfg.Addr())
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
