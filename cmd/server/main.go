/*
main.go - Application entry point

PURPOSE:
  Starts the surf prediction debug server. Handles configuration, backend
  selection, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (.env file, environment, flags)
  2. Build the logger
  3. Open the backend (SQLite or Supabase), optionally rate limited
  4. Create loader, API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -backend    sqlite | supabase (default: sqlite)
  -db         SQLite database path (default: surf.db)
              Use ":memory:" for in-memory database
  -rps        Backend requests per second, 0 = unlimited
  -debug      Development logging
  -scenarios  Enable /api/scenarios (SQLite only)
  -env        .env file to load (default: .env)

ENVIRONMENT:
  PORT, BACKEND, DB_PATH, SUPABASE_URL, SUPABASE_ANON_KEY,
  BACKEND_RPS, BACKEND_BURST, DEBUG. Flags override environment.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Local demo with scenarios
  ./server -db=":memory:" -scenarios

  # Against a hosted project
  SUPABASE_URL=https://xyz.supabase.co SUPABASE_ANON_KEY=... ./server -backend=supabase

SEE ALSO:
  - config/config.go: Configuration
  - api/server.go: Router configuration
  - surf/loader.go: Report loading
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/surf-debug/api"
	"github.com/warp/surf-debug/config"
	"github.com/warp/surf-debug/store/sqlite"
	"github.com/warp/surf-debug/store/supabase"
	"github.com/warp/surf-debug/surf"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := os.Args[1:]
	cfg, err := config.Load(args, config.EnvFileFromArgs(args, ".env"))
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	// Backend
	var (
		backend surf.Backend
		store   *sqlite.Store
	)
	switch cfg.Backend {
	case config.BackendSupabase:
		backend = supabase.New(cfg.SupabaseURL, cfg.SupabaseKey, nil)
		logger.Info("using supabase backend", zap.String("url", cfg.SupabaseURL))
	default:
		store, err = sqlite.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer store.Close()
		backend = store
		logger.Info("using sqlite backend", zap.String("path", cfg.DBPath))
	}

	if cfg.BackendRPS > 0 {
		backend = surf.NewRateLimited(backend, cfg.BackendRPS, cfg.BackendBurst)
	}

	// Handler and router
	handler := api.NewHandler(surf.NewLoader(backend, logger), store, logger)
	router := api.NewRouter(handler, api.RouterOptions{Scenarios: cfg.Scenarios})

	// Reads are not bounded by a deadline; a slow backend keeps the page in
	// its loading state rather than failing it.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", fmt.Sprintf("http://localhost:%d", cfg.Port)),
			zap.String("page", fmt.Sprintf("http://localhost:%d/debug-predictions", cfg.Port)),
			zap.Bool("scenarios", cfg.Scenarios && store != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
