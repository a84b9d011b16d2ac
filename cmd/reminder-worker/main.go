package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"kopilka/internal/amqp"
	"kopilka/internal/config"
	applog "kopilka/internal/log"
	"kopilka/internal/notify"
	"kopilka/internal/storage"
	"kopilka/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     cfg.LogLevel,
		Component: applog.ComponentWorker,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}),
	})
	applog.SetDefault(logger)

	logger.Info("Starting reminder-worker")

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

	// Notifications go through AMQP when configured, the log otherwise.
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, falling back to log notifications", "error", err)
		} else {
			defer amqpClient.Close()
			notifier = notify.NewAMQPNotifier(amqpClient)
			logger.Info("AMQP notifier initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - reminders will be logged only")
	}

	reminder := worker.NewReminderWorker(repo, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the first check immediately so a restart never skips today.
	logger.Info("Running initial due check...")
	if due, overdue, err := reminder.RunOnce(ctx, time.Now()); err != nil {
		logger.Error("Initial due check failed", "error", err)
	} else {
		logger.Info("Initial due check complete", "due", due, "overdue", overdue)
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	_, err = c.AddFunc(cfg.ReminderCron, func() {
		if _, _, err := reminder.RunOnce(ctx, time.Now()); err != nil {
			logger.Error("Scheduled due check failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("Invalid reminder cron expression", "error", err, "cron", cfg.ReminderCron)
		os.Exit(1)
	}

	c.Start()
	logger.Info("Reminder schedule active", "cron", cfg.ReminderCron)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Wait for an in-flight check to finish before exiting.
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for running job")
	}
	logger.Info("Reminder worker stopped gracefully")
}
