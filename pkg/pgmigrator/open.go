package pgmigrator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// DriverForURL picks the client dialect from the URL scheme.
//
//	postgres://, postgresql://  → pg (pgx)
//	sqlite://<path>, file:<path> → sqlite3
func DriverForURL(databaseURL string) (Driver, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(databaseURL, "sqlite://"), strings.HasPrefix(databaseURL, "file:"):
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database url scheme: %q", redact(databaseURL))
	}
}

// Open opens and pings a connection for databaseURL and reports which driver it uses.
func Open(ctx context.Context, databaseURL string) (*sql.DB, Driver, error) {
	driver, err := DriverForURL(databaseURL)
	if err != nil {
		return nil, "", err
	}

	var db *sql.DB
	switch driver {
	case DriverSQLite:
		db, err = sql.Open("sqlite3", strings.TrimPrefix(databaseURL, "sqlite://"))
		if err == nil {
			// SQLite allows a single writer.
			db.SetMaxOpenConns(1)
		}
	default:
		db, err = sql.Open("pgx", databaseURL)
	}
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("pinging database: %w", err)
	}
	return db, driver, nil
}

// redact trims a URL to its scheme so credentials never reach error output.
func redact(databaseURL string) string {
	if i := strings.Index(databaseURL, "://"); i >= 0 {
		return databaseURL[:i+3] + "..."
	}
	if len(databaseURL) > 12 {
		return databaseURL[:12] + "..."
	}
	return databaseURL
}
