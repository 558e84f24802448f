package main

import (
	"context"
	"creditline/infrastructure/search"
	"creditline/infrastructure/storage"
	"creditline/internal"
	"creditline/runtime"
	"creditline/runtime/workers"
	"creditline/services"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the lifecycle, and centralizes
// error reporting, so every defer (database close, index close, registry
// drain) executes before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Search index (Bluge)
	index, err := search.OpenUserIndex(config.BlugeFilepath, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing user index...")
		_ = index.Close()
	}()

	// 4. Core wiring: store -> registry -> service
	repository := storage.NewLedgerRepository(db, logger)
	registry := runtime.NewRegistry(repository, config.MailboxSize, logger)
	defer registry.Shutdown()

	service := services.NewLedgerService(logger, registry, repository, index)
	_ = service // consumed by the transport layer, wired separately

	// 5. Background workers
	healthWorker := workers.NewHealthMonitoringWorker(logger, config.MetricInterval)
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(healthWorker)

	if config.ProcessorIdleTimeout != nil {
		supervisor.Add(workers.NewEvictionWorker(logger, registry, config.EvictionInterval, *config.ProcessorIdleTimeout))
		logger.Info("Idle processor eviction enabled", "timeout", config.ProcessorIdleTimeout.String())
	} else {
		logger.Info("Idle processor eviction disabled, processors live for the process lifetime")
	}

	// 6. Debug inspector
	internal.StartDebugServer(db, config.DebugPort, "/inspect", LedgerMapper, func() map[string]any {
		stats := healthWorker.GetLatest()
		return map[string]any{
			"Processors": registry.Len(),
			"CPU":        fmt.Sprintf("%.1f%%", stats.CPUPercent),
			"RSS":        stats.RSSBytes,
			"Time":       time.Now().Format(time.RFC822),
		}
	})
	logger.Info("Debug ledger inspector available", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))

	// 7. Run until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Credit ledger core started")
	supervisor.Run(ctx)
	logger.Info("Shutting down...")

	return exitOK, nil
}

// LedgerMapper renders user and transaction rows for the debug inspector.
func LedgerMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)

	switch {
	case strings.HasPrefix(key, "user:"):
		var user struct {
			ID          string `json:"id"`
			FullName    string `json:"full_name"`
			CreditLimit string `json:"credit_limit"`
		}
		if err := json.Unmarshal(val, &user); err != nil {
			return row
		}
		row.Type = "USER"
		row.Namespace = "ledger"
		row.EntityID = shortID(user.ID)
		row.Detail = fmt.Sprintf("%s (limit %s)", user.FullName, user.CreditLimit)

	case strings.HasPrefix(key, "tx:"):
		var tx struct {
			ID     string `json:"id"`
			UserID string `json:"user_id"`
			Amount string `json:"amount"`
		}
		if err := json.Unmarshal(val, &tx); err != nil {
			return row
		}
		row.Type = "TX"
		row.Namespace = "ledger"
		row.EntityID = shortID(tx.ID)
		row.Detail = fmt.Sprintf("user %s charged %s", shortID(tx.UserID), tx.Amount)
	}
	return row
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
