package pgmigrator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresClient implements Client for PostgreSQL and embeds baseClient.
type PostgresClient struct {
	baseClient
}

// NewPostgresClient creates a new PostgresClient.
func NewPostgresClient(cfg Config, db *sql.DB) *PostgresClient {
	c := &PostgresClient{
		baseClient: baseClient{
			cfg: cfg.withDefaults(),
			db:  db,
		},
	}
	c.quotedTableFn = c.quotedTable
	c.placeholderFn = c.placeholder
	c.ensureSchemaFn = c.ensureSchema
	c.prepareTxFn = c.prepareTx
	return c
}

// quotedTable returns name qualified with the migrations schema, each part quoted.
// A name that already carries a schema keeps it.
func (c *PostgresClient) quotedTable(name string) string {
	parts := []string{c.cfg.MigrationsSchema, name}
	if hasSchema(name) {
		parts = strings.SplitN(name, ".", 2)
	}
	for i, part := range parts {
		parts[i] = quoteIdent(part)
	}
	return strings.Join(parts, ".")
}

func (c *PostgresClient) placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

const schemaExistsSql = `SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1);`

// ensureSchema creates the migrations schema only when pg_namespace lacks it.
// CREATE SCHEMA IF NOT EXISTS still needs the CREATE privilege on the
// database, which roles limited to an existing schema do not have.
func (c *PostgresClient) ensureSchema(ctx context.Context) error {
	var exists bool
	if err := c.db.QueryRowContext(ctx, schemaExistsSql, c.cfg.MigrationsSchema).Scan(&exists); err != nil {
		return fmt.Errorf("checking schema %s: %w", c.cfg.MigrationsSchema, err)
	}
	if exists {
		return nil
	}
	if _, err := c.db.ExecContext(ctx, c.createSchemaSql()); err != nil {
		return fmt.Errorf("creating schema %s: %w", c.cfg.MigrationsSchema, err)
	}
	return nil
}

func (c *PostgresClient) createSchemaSql() string {
	return fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, quoteIdent(c.cfg.MigrationsSchema))
}

// prepareTx points the transaction's search_path at the target schema.
func (c *PostgresClient) prepareTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, c.searchPathSql())
	return err
}

func (c *PostgresClient) searchPathSql() string {
	return fmt.Sprintf(`SET LOCAL search_path TO %s;`, quoteIdent(c.cfg.Schema))
}
