package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/events"
	applog "bilancio/internal/log"
	"bilancio/internal/store"
)

// event-worker consumes ledger change events and writes an audit log.
// Deleted transactions no longer resolve in the store; the event itself
// is the only remaining trace, which is exactly what gets logged.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentEvents,
	})
	applog.SetDefault(logger)

	logger.Info("Starting event-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the event worker")
		os.Exit(1)
	}

	sqliteStore, err := store.NewSQLite(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteStore.Close()

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	err = client.ConsumeTransactionEvents(ctx, func(event *events.TransactionEvent) error {
		loadCtx, loadCancel := context.WithTimeout(ctx, 5*time.Second)
		defer loadCancel()

		doc, err := sqliteStore.Get(loadCtx, store.CollectionTransactions, event.TransactionID)
		if errors.Is(err, store.ErrNotFound) {
			logger.InfoContext(ctx, "Transaction changed",
				"op", event.Op, "transaction_id", event.TransactionID, "at", event.Timestamp)
			return nil
		}
		if err != nil {
			return err
		}

		tx := core.TransactionFromDoc(event.TransactionID, doc.Fields)
		logger.InfoContext(ctx, "Transaction changed",
			"op", event.Op,
			"transaction_id", event.TransactionID,
			"type", tx.Type,
			"amount", tx.Amount,
			"user", tx.User,
			"at", event.Timestamp)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("Event-worker shutdown complete")
}
