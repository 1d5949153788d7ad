package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/reconcile"
	"bilancio/internal/store"
)

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
		Component: applog.ComponentReconcile,
	})
	applog.SetDefault(logger)

	logger.Info("Starting reconcile-worker")

	sqliteStore, err := store.NewSQLite(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteStore.Close()

	reconciler := reconcile.New(sqliteStore)
	reconciler.Workers = cfg.ReconcileWorkers

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Balance reconciler configured",
		"interval", cfg.ReconcileInterval,
		"workers", cfg.ReconcileWorkers,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	// Run initial reconciliation on startup
	logger.Info("Running initial balance reconciliation...")
	if count, err := reconciler.Run(ctx); err != nil {
		logger.Error("Initial reconciliation failed", "error", err)
	} else {
		logger.Info("Initial reconciliation complete", "balances_corrected", count)
	}

	// Start periodic reconciliation
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Reconciling balances...")
				count, err := reconciler.Run(ctx)
				if err != nil {
					logger.Error("Periodic reconciliation failed", "error", err)
				} else {
					logger.Info("Periodic reconciliation complete",
						"balances_corrected", count,
						"next_check", now.Add(cfg.ReconcileInterval).Format("15:04:05"))
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down reconcile-worker...")
	cancel()
	logger.Info("Reconcile-worker shutdown complete")
}
