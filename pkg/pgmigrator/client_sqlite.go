package pgmigrator

import (
	"context"
	"database/sql"
)

// Sqlite3Client implements Client for SQLite and embeds baseClient.
// SQLite has no schemas, so Schema and MigrationsSchema are ignored.
type Sqlite3Client struct {
	baseClient
}

// NewSqlite3Client creates a new Sqlite3Client.
func NewSqlite3Client(cfg Config, db *sql.DB) *Sqlite3Client {
	c := &Sqlite3Client{
		baseClient: baseClient{
			cfg: cfg.withDefaults(),
			db:  db,
		},
	}
	c.quotedTableFn = quoteIdent
	c.placeholderFn = func(int) string { return "?" }
	c.ensureSchemaFn = func(context.Context) error { return nil }
	c.prepareTxFn = func(context.Context, *sql.Tx) error { return nil }
	return c
}
