package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	_ "github.com/lib/pq"          // PostgreSQL driver
	_ "github.com/sijms/go-ora/v2" // Oracle driver

	"quiz-pipeline/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverOracle   = "oracle"
)

func init() {
	// go-ora registers as "oracle", which sqlx does not know as a NAMED driver
	sqlx.BindDriver(DriverOracle, sqlx.NAMED)
}

// Open connects to the database configured in cfg.DB and verifies the
// connection.
func Open(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	driver := cfg.DB.Driver
	switch driver {
	case DriverPostgres, DriverOracle:
	case "":
		return nil, fmt.Errorf("database driver is not configured")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	Configure(db)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return db, nil
}

// Configure applies driver specific settings to db. Oracle reports column
// names in upper case, so struct tags are matched case-insensitively there.
func Configure(db *sqlx.DB) {
	if db.DriverName() == DriverOracle {
		db.Mapper = reflectx.NewMapperTagFunc("db", strings.ToUpper, strings.ToUpper)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
}
