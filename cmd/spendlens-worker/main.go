package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendlens/internal/amqp"
	"spendlens/internal/config"
	"spendlens/internal/core"
	applog "spendlens/internal/log"
	"spendlens/internal/services"
	"spendlens/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.FromEnv(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting spendlens-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	reports, err := services.NewReportService(repo, cfg.Analysis())
	if err != nil {
		logger.Error("Failed to initialize report service", "error", err)
		os.Exit(1)
	}

	// The AMQP connection is optional; without it the worker still
	// refreshes reports and only the summary broadcast is skipped.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if cfg.WorkerMode == "consume" {
		runConsumer(ctx, logger, amqpClient)
		return
	}

	// Run once at startup, then on every tick.
	runAnalysis(ctx, logger, reports, amqpClient, cfg.ReportMonths)

	ticker := time.NewTicker(cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runAnalysis(ctx, logger, reports, amqpClient, cfg.ReportMonths)
		case <-ctx.Done():
			logger.Info("Worker stopped gracefully")
			return
		}
	}
}

// runConsumer drains report notifications from the queue until the
// context is cancelled, restarting the subscription when the broker
// drops it.
func runConsumer(ctx context.Context, logger *applog.Logger, amqpClient *amqp.Client) {
	for {
		err := amqpClient.ConsumeReportReady(ctx, func(msg *amqp.ReportReadyMessage) error {
			logger.InfoContext(ctx, "Report summary received",
				"window", msg.WindowStart+".."+msg.WindowEnd,
				"health_score", msg.HealthScore,
				"anomalies", msg.AnomalyCount,
				"recurring", msg.RecurringCount,
				"generated_at", msg.GeneratedAt)
			return nil
		})
		if ctx.Err() != nil {
			logger.Info("Consumer stopped gracefully")
			return
		}
		logger.Error("Consumer interrupted, restarting", "error", err)
		select {
		case <-ctx.Done():
			logger.Info("Consumer stopped gracefully")
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// runAnalysis builds the trailing-window report and publishes a compact
// summary when AMQP is configured. Failures are logged, never fatal.
func runAnalysis(ctx context.Context, logger *applog.Logger, reports *services.ReportService, amqpClient *amqp.Client, months int) {
	reports.InvalidateCache()

	today := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
	report, err := reports.ReportEndingAt(ctx, today, months)
	if err != nil {
		logger.ErrorContext(ctx, "Scheduled report failed", "error", err, "months", months)
		return
	}

	logger.InfoContext(ctx, "Scheduled report complete",
		"window", report.Window.Start.String()+".."+report.Window.End.String(),
		"health_score", report.Assessment.Health.Score,
		"anomalies", len(report.Anomalies),
		"recurring", len(report.Recurring))

	if amqpClient == nil {
		return
	}

	msg := amqp.NewReportReadyMessage(
		report.Window.Start.String(), report.Window.End.String(),
		report.Assessment.Health.Score, len(report.Anomalies), len(report.Recurring))
	if err := amqpClient.PublishReportReady(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to publish report summary", "error", err)
	}
}
