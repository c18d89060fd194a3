package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledgerchat/internal/ai"
	"ledgerchat/internal/amqp"
	"ledgerchat/internal/auth"
	"ledgerchat/internal/chat"
	"ledgerchat/internal/config"
	apphttp "ledgerchat/internal/http"
	"ledgerchat/internal/log"
	"ledgerchat/internal/middleware/ratelimit"
	"ledgerchat/internal/nlu"
	"ledgerchat/internal/services"
	"ledgerchat/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

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
	logger.Info("AI provider initialized", "provider", provider.Name())

	// The broker is optional. Without it expenses stay export_state=pending
	// and receipts are stored but not processed until the worker drains them.
	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.ReceiptQueue, cfg.ExportQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without async processing", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	expenses := services.NewExpenseService(repo, provider, nilablePublisher(publisher), logger)
	budgets := services.NewBudgetService(repo, logger)
	trends := services.NewTrendsService(repo)
	insights := services.NewInsightsService(repo, provider, logger)
	receipts, err := services.NewReceiptService(repo, cfg.ReceiptDir, nilableReceiptPublisher(publisher), logger)
	if err != nil {
		logger.Error("Failed to initialize receipt storage", "error", err, "dir", cfg.ReceiptDir)
		os.Exit(1)
	}

	// Expense writes invalidate the derived-read caches.
	expenses.OnChange(trends.Invalidate)
	expenses.OnChange(budgets.Invalidate)

	parser := nlu.NewParser(provider, logger)
	janitorStop := make(chan struct{})
	defer close(janitorStop)
	parser.StartJanitor(time.Minute, janitorStop)

	chatRouter := chat.NewRouter(parser, expenses, budgets, insights, repo, logger)

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		CleanupInterval:   5 * time.Minute,
	})
	defer limiter.Stop()

	srv := apphttp.NewServer(apphttp.Deps{
		Config:   cfg,
		Logger:   logger,
		Repo:     repo,
		Issuer:   auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Limiter:  limiter,
		Expenses: expenses,
		Budgets:  budgets,
		Trends:   trends,
		Receipts: receipts,
		Insights: insights,
		Chat:     chatRouter,
	})

	// Graceful shutdown handling
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// A nil *amqp.Client stored in a non-nil interface would defeat the
// services' nil checks, so convert explicitly.
func nilablePublisher(c *amqp.Client) services.ExportPublisher {
	if c == nil {
		return nil
	}
	return c
}

func nilableReceiptPublisher(c *amqp.Client) services.ReceiptPublisher {
	if c == nil {
		return nil
	}
	return c
}
