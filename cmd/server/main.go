/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the loyalty engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize structured logging
  3. Initialize SQLite store
  4. Load the program configuration (tiers, benefits, rewards)
  5. Create service, API handler, and router
  6. Start the background ledger verifier
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080, env PORT)
  -db       SQLite database path (default: loyalty.db, env DATABASE_PATH)
            Use ":memory:" for in-memory database
  -program  Program config file, .json or .yaml (env PROGRAM_CONFIG)
            Empty means the built-in default program
  -verify   Interval between background ledger verification passes
            (default: 1h, 0 disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the verifier and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/loyalty.db"

  # Run with a custom program definition
  ./server -program="./config/program.yaml"

  # Run on different port with in-memory database
  ./server -port=3000 -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - factory/program.go: Program configuration format
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
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/loyalty-engine/api"
	"github.com/warp/loyalty-engine/factory"
	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/store/sqlite"
)

func main() {
	// .env is optional; flags and real env vars win regardless.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "loyalty.db"), "SQLite database path")
	programPath := flag.String("program", envStr("PROGRAM_CONFIG", ""), "program config file (.json or .yaml)")
	verifyEvery := flag.Duration("verify", time.Hour, "ledger verification interval (0 disables)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Program configuration
	var program *factory.Program
	if *programPath != "" {
		program, err = factory.NewProgramFactory().LoadFile(*programPath)
		if err != nil {
			logger.Fatal("failed to load program config",
				zap.String("path", *programPath), zap.Error(err))
		}
		logger.Info("loaded program config",
			zap.String("path", *programPath), zap.String("program", program.Name))
	} else {
		program = factory.DefaultProgram()
	}

	// Service and API
	svc := loyalty.NewService(store, program.Tiers, program.Benefits)
	handler := api.NewHandler(svc, program, logger)
	router := api.NewRouter(handler)

	// Background reconciliation
	verifier := api.NewLedgerVerifier(store, svc, logger)
	if *verifyEvery <= 0 {
		verifier.Enabled = false
	} else {
		verifier.CheckInterval = *verifyEvery
	}
	verifier.Start()
	defer verifier.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
