/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the lending calculation engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Configure structured logging
  3. Initialize SQLite store
  4. Optionally seed the standard individual loan product
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: lending.db)
              Use ":memory:" for an in-memory database
  -log-level  zerolog level: debug, info, warn, error (default: info)
  -seed       Seed the standard individual loan product on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/lending.db"

  # Run with in-memory database and seed data
  ./server -db=":memory:" -seed

  # Run on different port with debug logging
  ./server -port=3000 -log-level=debug

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/lending-engine/api"
	"github.com/warp/lending-engine/products"
	"github.com/warp/lending-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "lending.db", "SQLite database path")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	seed := flag.Bool("seed", false, "seed the standard individual loan product")
	flag.Parse()

	// Logging
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	if *seed {
		if err := seedStandardProduct(context.Background(), store); err != nil {
			log.Fatal().Err(err).Msg("failed to seed standard product")
		}
		log.Info().Msg("seeded standard individual loan product")
	}

	// Handler and router
	handler := api.NewHandler(store, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", *port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// seedStandardProduct stores the default individual loan product so the
// API is usable out of the box.
func seedStandardProduct(ctx context.Context, store *sqlite.Store) error {
	const productID = "individual-loan"
	if err := store.SaveProduct(ctx, productID, "Individual Loan"); err != nil {
		return err
	}
	return store.PutChargeDefinitions(ctx, productID,
		products.IndividualLoanCharges(products.DefaultChargeConfig()))
}
