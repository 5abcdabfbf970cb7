package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/credentials/internal/config"
)

// migrationsPath returns the migration directory for a SQL storage driver.
func migrationsPath(driver string) (string, error) {
	switch driver {
	case config.StoragePostgres:
		return "file://migrations/postgresql", nil
	case config.StorageMySQL:
		return "file://migrations/mysql", nil
	default:
		return "", fmt.Errorf("storage driver %q does not use migrations", driver)
	}
}

// RunMigrations applies all pending migrations for the postgres or mysql storage
// driver. Returns nil when there is nothing to apply.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	path, err := migrationsPath(driver)
	if err != nil {
		return err
	}

	logger.Info("running database migrations", slog.String("driver", driver))

	m, err := migrate.New(path, connectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
