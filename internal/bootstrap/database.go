package bootstrap

import (
	"database/sql"
	"fmt"

	"github.com/jonesrussell/jobscout/internal/config"
	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/repository"
)

// SetupDatabase connects to PostgreSQL and applies pending migrations.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*sql.DB, error) {
	db, err := repository.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := repository.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.String("dbname", cfg.Database.DBName),
	)

	return db, nil
}
