// Package bootstrap handles application initialization and lifecycle for
// jobscout.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/jobscout/internal/config"
	"github.com/jonesrussell/jobscout/internal/logger"
)

const version = "dev"

// Start initializes and runs the jobscout service.
func Start() error {
	// Phase 1: Load config and create logger
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting jobscout", logger.String("version", version))

	// Phase 2: Setup database
	db, err := SetupDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Phase 3: Wire the pipeline and its dispatcher. The dispatcher is
	// queue-backed when Redis is reachable, inline otherwise.
	deps := SetupPipeline(ctx, cfg, db, log)
	defer deps.Close()

	// Phase 4: Setup and run HTTP server
	server := SetupHTTPServer(cfg, deps, log)

	log.Info("Starting HTTP server",
		logger.String("host", cfg.Server.Host),
		logger.Int("port", cfg.Server.Port),
	)

	if runErr := server.Run(ctx); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yml"
}
