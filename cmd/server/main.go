/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the milk-delivery billing server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (config.yaml + BILLING_* env), apply flag overrides
  2. Build the zap logger
  3. Initialize SQLite store
  4. Build engine, collection service, handler, router
  5. Start the overdue monitor
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Directory holding config.yaml (default: ".")
  -port    HTTP server port (overrides server.port)
  -db      SQLite database path (overrides database.path)
           Use ":memory:" for in-memory database
  -demo    Enable /api/scenarios routes (resets data on load)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the overdue monitor
  2. Stop accepting new connections
  3. Wait for active requests to complete (server.shutdown_timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/billing.db"
  BILLING_BILLING_OVERDUE_AFTER_DAYS=45 ./server -port=3000
  ./server -db=":memory:" -demo

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/krishprajapat/billing-sub000/api"
	"github.com/krishprajapat/billing-sub000/billing"
	"github.com/krishprajapat/billing-sub000/collection"
	"github.com/krishprajapat/billing-sub000/config"
	"github.com/krishprajapat/billing-sub000/logging"
	"github.com/krishprajapat/billing-sub000/store/sqlite"
)

func main() {
	// Flags
	configDir := flag.String("config", ".", "Directory holding config.yaml")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	demo := flag.Bool("demo", false, "Enable demo scenario routes")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	os.Exit(exitCode(logger, run(cfg, logger, *demo)))
}

// exitCode logs a failed run and flushes the logger before the process
// exits, since os.Exit skips deferred calls.
func exitCode(logger *zap.Logger, err error) int {
	if err == nil {
		_ = logger.Sync()
		return 0
	}
	logger.Error("server exited", zap.Error(err))
	_ = logger.Sync()
	return 1
}

func run(cfg *config.Config, logger *zap.Logger, demo bool) error {
	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	engine := billing.NewEngine(billing.SystemClock())
	engine.OverdueAfterDays = cfg.Billing.OverdueAfterDays
	engine.DueDay = cfg.Billing.DueDay

	service := collection.NewService(store, engine, logger, collection.WithCurrency(cfg.Billing.CurrencySymbol))

	handler := api.NewHandler(service, logger)
	handler.Ping = store.Ping
	if demo {
		handler.Store = store
		logger.Warn("demo scenario routes enabled; loading a scenario resets the database")
	}

	monitor := api.NewOverdueMonitor(service, logger)
	monitor.CheckInterval = cfg.Monitor.Interval
	monitor.Start()
	defer monitor.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, logger, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("database", cfg.Database.Path),
			zap.Int("overdue_after_days", engine.OverdueAfterDays),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
