package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/insights"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/sheets"
	gsheet "expensetracker/internal/sheets/google"
	sheetmem "expensetracker/internal/sheets/memory"
	"expensetracker/internal/worker"
)

// exportSheet is the spreadsheet the worker writes rows and digests to.
type exportSheet interface {
	sheets.TransactionExporter
	sheets.DigestWriter
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting tracker-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != "sqlite" {
		logger.Warn("Worker is running against a non-persistent backend; only records written by this process are exported",
			"backend", cfg.DataBackend)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	}()

	sheet := openSheet(logger, cfg)
	syncer := worker.NewSyncWorker(res.Repository, sheet, cfg.SyncBatchSize)

	hub := services.NewSnapshotHub(res.Repository)
	insightService := services.NewInsightService(hub, services.WithWeekStart(cfg.WeekStartDay()))
	digest := worker.NewDigestJob(res.Repository, insightService, sheet, insights.InsightThisWeek, nil,
		worker.WithRefresh(hub))

	scheduler := worker.NewScheduler(logger.WithComponent(applog.ComponentWorker).Slog())
	if err := scheduler.Every(cfg.SyncInterval, "pending-sync", syncer.ProcessPending); err != nil {
		logger.Error("Failed to schedule pending sync", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.DigestSchedule != "" {
		if err := scheduler.Add(cfg.DigestSchedule, "insight-digest", digest.Run); err != nil {
			logger.Error("Failed to schedule insight digest", applog.FieldError, err)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduled jobs did not finish in time", applog.FieldError, err)
		}
	})

	logger.Info("Performing startup sync check...")
	if err := syncer.StartupSyncCheck(ctx); err != nil {
		// Pending records are retried by the periodic sweep.
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer consumer.Close()
		g.Go(func() error {
			err := consumer.ConsumeChanges(gctx, syncer.HandleChange)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on the periodic sweep", "interval", cfg.SyncInterval)
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err)
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = scheduler.Stop(stopCtx)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

// openSheet connects to Google Sheets, or falls back to an in-memory
// sheet when no spreadsheet is configured.
func openSheet(logger *applog.Logger, cfg *config.Config) exportSheet {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
		return sheetmem.New()
	}
	client, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:     cfg.GoogleSpreadsheetID,
		TransactionsSheet: cfg.GoogleSheetName,
		InsightsSheet:     cfg.GoogleInsightsSheetName,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client
}
