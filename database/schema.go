package database

import (
	"context"
	"database/sql"
	"fmt"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS deals (
	id SERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	location TEXT NOT NULL,
	latitude NUMERIC NOT NULL,
	longitude NUMERIC NOT NULL,
	category TEXT,
	price TEXT,
	original_price TEXT,
	day TEXT NOT NULL,
	is_recurring BOOLEAN NOT NULL DEFAULT TRUE,
	time_window TEXT,
	start_time TEXT,
	end_time TEXT,
	images TEXT[],
	operating_hours JSONB,
	start_date TIMESTAMP,
	end_date TIMESTAMP,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP
);
`

// images holds a postgres array literal and operating_hours a JSON document.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS deals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT,
	location TEXT NOT NULL,
	latitude NUMERIC NOT NULL,
	longitude NUMERIC NOT NULL,
	category TEXT,
	price TEXT,
	original_price TEXT,
	day TEXT NOT NULL,
	is_recurring BOOLEAN NOT NULL DEFAULT 1,
	time_window TEXT,
	start_time TEXT,
	end_time TEXT,
	images TEXT,
	operating_hours TEXT,
	start_date TIMESTAMP,
	end_date TIMESTAMP,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP
);
`

const indexes = `
CREATE INDEX IF NOT EXISTS day_idx ON deals(day);
CREATE INDEX IF NOT EXISTS location_idx ON deals(location);
CREATE INDEX IF NOT EXISTS category_idx ON deals(category);
CREATE INDEX IF NOT EXISTS active_idx ON deals(is_active);
CREATE INDEX IF NOT EXISTS geo_idx ON deals(latitude, longitude);
`

// InitSchema creates the deals table and its lookup indexes if they are missing.
func InitSchema(ctx context.Context, db *sql.DB, driver string) error {
	var table string
	switch driver {
	case DriverPostgres:
		table = postgresSchema
	case DriverSQLite:
		table = sqliteSchema
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	if _, err := db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("create deals table: %w", err)
	}
	if _, err := db.ExecContext(ctx, indexes); err != nil {
		return fmt.Errorf("create deals indexes: %w", err)
	}
	return nil
}
