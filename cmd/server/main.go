/*
main.go - Application entry point

PURPOSE:
  Starts the work-time engine server and provides maintenance commands.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve     Run the HTTP API (default when no command is given)
  reset     Delete every stored record, configuration included
  inspect   List stored keys with their size and last update

STARTUP SEQUENCE (serve):
  1. Load config from environment / .env, apply flags
  2. Open SQLite store and wrap it in the repository gateway
  3. Build notifiers (log + websocket hub) and the engine
  4. Load config, history and any in-flight session (resumes ticking)
  5. Start the shift-end scheduler and the HTTP server

FLAGS:
  --port   HTTP server port (overrides WORKTIME_PORT)
  --db     SQLite database path (overrides WORKTIME_DB)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and the tick loop
  4. Close database connection
  The active session stays persisted and resumes on the next start.

ENVIRONMENT:
  WORKTIME_PORT, WORKTIME_DB, WORKTIME_TICK, WORKTIME_CORS_ORIGINS,
  LOG_LEVEL, LOG_PRETTY (see config/config.go)

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"fmt"
	"os"

	"github.com/warp/worktime-engine/config"
	"github.com/warp/worktime-engine/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	return NewRootCmd(cfg, log).Execute()
}
