/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Store Performance Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Configure the logrus logger
  3. Initialize SQLite store
  4. Create API handler; load SEED_SCENARIO into an empty database
  5. Start the results-lock scheduler
  6. Configure HTTP router
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the lock scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/performance.db"

  # Run with in-memory database and the demo network
  SEED_SCENARIO=demo-network ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/store-performance/api"
	"github.com/warp/store-performance/config"
	"github.com/warp/store-performance/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	log := cfg.NewLogger()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, log)

	if cfg.SeedScenario != "" {
		if err := seed(context.Background(), handler, store, cfg.SeedScenario); err != nil {
			log.WithError(err).Warn("Failed to load seed scenario")
		}
	}

	// Results-lock scheduler
	scheduler := api.NewResultsLockScheduler(store, log)
	scheduler.Enabled = cfg.LockSchedulerEnabled
	scheduler.CheckInterval = cfg.LockSchedulerInterval
	scheduler.GraceDays = cfg.LockGraceDays
	handler.LockScheduler = scheduler
	scheduler.Start()

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Server starting on http://localhost:%d", cfg.Port)
		log.Infof("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped")
}

// seed loads a demo scenario, but only into an empty database.
func seed(ctx context.Context, h *api.Handler, store *sqlite.Store, scenario string) error {
	stores, err := store.ListStores(ctx)
	if err != nil {
		return err
	}
	if len(stores) > 0 {
		h.Log.WithField("scenario", scenario).Info("Database not empty, skipping seed")
		return nil
	}
	return h.LoadScenarioByID(ctx, scenario, time.Now())
}
