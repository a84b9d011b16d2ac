package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"kopilka/internal/amqp"
	"kopilka/internal/config"
	applog "kopilka/internal/log"
)

// The notifier daemon drains the reminder queue and delivers each message.
// Delivery here is a structured log line; a desktop integration can replace
// the handler without touching the queue contract.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     cfg.LogLevel,
		Component: applog.ComponentAMQP,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}),
	})
	applog.SetDefault(logger)

	logger.Info("Starting notifier")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = amqpClient.ConsumeReminders(ctx, func(msg *amqp.ReminderMessage) error {
		level := slog.LevelInfo
		if msg.Priority == amqp.PriorityHigh {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "Reminder",
			"title", msg.Title,
			"body", msg.Body,
			"priority", msg.Priority,
			"sent_at", msg.Timestamp)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Notifier stopped gracefully")
}
