/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server. Handles configuration,
  dependency injection, background jobs, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and parse flags (flag defaults come from the environment)
  2. Initialize structured logging
  3. Open the SQLite store
  4. Seed the demo portfolio when asked (no-op on a populated database)
  5. Start the balance scheduler (month rollover + nightly audit)
  6. Serve HTTP with graceful shutdown

CONFIGURATION (flag / environment variable):
  -port         / PORT          HTTP server port (default: 8080)
  -db           / DB_PATH       SQLite database path (default: billing.db)
  -origins      / CORS_ORIGINS  Comma-separated allowed CORS origins
  -seed         / SEED          Load the demo portfolio on first run
  -repair-drift / REPAIR_DRIFT  Nightly audit rewrites drifted caches
                  LOG_LEVEL     Log verbosity (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler and wait for running jobs
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the database connection
  5. Exit

EXAMPLES:
  # Run against a file database with the demo portfolio
  ./server -db="./data/billing.db" -seed

  # Run on a different port with a dashboard origin
  PORT=3000 CORS_ORIGINS=https://dashboard.example.com ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background jobs
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/logging"
	"github.com/warp/billing-engine/store/sqlite"
)

func main() {
	// A missing .env is fine; the environment may be set by the runtime.
	_ = godotenv.Load()

	port := flag.String("port", envOr("PORT", "8080"), "HTTP server port")
	dbPath := flag.String("db", envOr("DB_PATH", "billing.db"), "SQLite database path")
	origins := flag.String("origins", os.Getenv("CORS_ORIGINS"), "comma-separated allowed CORS origins")
	seed := flag.Bool("seed", envBool("SEED"), "seed the demo portfolio into an empty database")
	repair := flag.Bool("repair-drift", envBool("REPAIR_DRIFT"), "let the nightly audit rewrite drifted balances")
	flag.Parse()

	logging.Init("billing-engine")
	log := logging.Logger

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)

	if *seed {
		if err := api.Seed(context.Background(), handler.Books, store); err != nil {
			log.WithError(err).Fatal("Failed to seed demo portfolio")
		}
	}

	// Background jobs: month rollover and nightly balance audit
	sched := api.NewScheduler(handler.Books, *repair)
	if err := sched.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start scheduler")
	}

	// Create server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      api.NewRouter(handler, splitOrigins(*origins)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("Billing engine listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
