package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)

	// Other processes (tracker-cli import) write to the same store.
	hub := services.NewSnapshotHub(res.Repository, services.WithMaxAge(cfg.SnapshotMaxAge))
	txService := services.NewTransactionService(res.Repository, res.ChangePublisher(), hub)

	insightCache := cache.NewLRUCache[services.InsightView](cfg.InsightCacheSize, cfg.InsightCacheTTL)
	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	caches.Register(insightCache)
	caches.StartCleanup(10 * time.Minute)

	insightService := services.NewInsightService(hub,
		services.WithWeekStart(cfg.WeekStartDay()),
		services.WithCache(insightCache))

	checks := map[string]apphttp.ReadinessCheck{"store": res.Ping}
	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Transactions:       txService,
		Insights:           insightService,
		Categories:         services.NewCategoryService(res.Seeder),
		Checks:             checks,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		// Closes the repository and the AMQP publisher.
		if err := txService.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting tracker server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
