package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationFiles embed.FS

// oracleObjectExists is raised when a table or index name is already used
const oracleObjectExists = "ORA-00955"

// RunMigrations applies every pending migration for driver
func RunMigrations(ctx context.Context, db *sql.DB, driver string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch driver {
	case DriverPostgres:
		return runPostgresMigrations(db, logger)
	case DriverOracle:
		sub, err := fs.Sub(migrationFiles, "migrations/oracle")
		if err != nil {
			return fmt.Errorf("could not open oracle migrations: %w", err)
		}
		return runSequentialMigrations(ctx, db, sub, logger)
	}
	return fmt.Errorf("unsupported database driver %q", driver)
}

func runPostgresMigrations(db *sql.DB, logger *zap.Logger) error {
	src, err := iofs.New(migrationFiles, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("could not open postgres migrations: %w", err)
	}
	target, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, DriverPostgres, target)
	if err != nil {
		return fmt.Errorf("could not create migrator: %w", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database schema is up to date")
			return nil
		}
		return fmt.Errorf("could not apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Migrations completed successfully", zap.Uint("version", version))
	return nil
}

// runSequentialMigrations executes each .up.sql file of fsys in name order.
// Every file holds one statement. Objects that already exist are skipped, so
// the runner can be re-applied to a migrated schema.
func runSequentialMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, logger *zap.Logger) error {
	files, err := upMigrations(fsys)
	if err != nil {
		return err
	}

	for _, name := range files {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", name, err)
		}
		stmt := strings.TrimSuffix(strings.TrimSpace(string(content)), ";")
		if stmt == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(err.Error(), oracleObjectExists) {
				logger.Info("Skipping applied migration", zap.String("file", name))
				continue
			}
			return fmt.Errorf("could not execute migration %s: %w", name, err)
		}
		logger.Info("Executed migration", zap.String("file", name))
	}

	logger.Info("Migrations completed successfully", zap.Int("files", len(files)))
	return nil
}

func upMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("could not read migrations directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}
