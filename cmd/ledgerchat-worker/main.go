package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ledgerchat/internal/ai"
	"ledgerchat/internal/amqp"
	"ledgerchat/internal/config"
	"ledgerchat/internal/export"
	gsheet "ledgerchat/internal/export/google"
	mem "ledgerchat/internal/export/memory"
	"ledgerchat/internal/log"
	"ledgerchat/internal/services"
	"ledgerchat/internal/storage"
	"ledgerchat/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	logger.Info("Starting ledgerchat-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	provider, err := ai.NewProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize AI provider", "error", err, "provider", cfg.AIProvider)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.ReceiptQueue, cfg.ExportQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Spreadsheet export backend: Google Sheets when configured,
	// otherwise an in-memory store that only marks rows exported.
	var appender export.ExpenseAppender
	if cfg.GoogleSpreadsheetID != "" {
		sheets, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = sheets
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		appender = mem.New()
		logger.Info("Google Sheets disabled, using in-memory export backend")
	}

	expenses := services.NewExpenseService(repo, provider, nil, logger)
	budgets := services.NewBudgetService(repo, logger)
	insights := services.NewInsightsService(repo, provider, logger)
	expenses.OnChange(budgets.Invalidate)

	receiptWorker := worker.NewReceiptWorker(repo, expenses, budgets, insights, amqpClient, logger)
	exportWorker := worker.NewExportWorker(repo, appender, amqpClient, logger, cfg.ExportBatchSize, cfg.ExportInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return receiptWorker.Run(ctx) })
	g.Go(func() error { return exportWorker.RunConsumer(ctx) })
	g.Go(func() error { return exportWorker.RunDrain(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
