package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Connect opens the deals database and makes sure the schema exists. Postgres
// is tuned for serverless hosts like Neon, which suspend idle compute.
func Connect(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	switch driver {
	case DriverPostgres:
		// Don't hold idle connections against suspended compute.
		db.SetMaxIdleConns(0)
		db.SetMaxOpenConns(10)
	case DriverSQLite:
		// Every new connection to ":memory:" is a fresh database.
		db.SetMaxOpenConns(1)
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		slog.Warn("Database ping failed, proceeding carefully", "driver", driver, "error", err)
	}

	if err := InitSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("Connected to database", "driver", driver)
	return db, nil
}
