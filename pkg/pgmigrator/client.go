package pgmigrator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// NewClient creates a new Client based on the provided configuration and database connection.
func NewClient(cfg Config, db *sql.DB) (Client, error) {
	cfg = cfg.withDefaults()
	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgresClient(cfg, db), nil
	case DriverSQLite:
		return NewSqlite3Client(cfg, db), nil
	default:
		return nil, fmt.Errorf("db driver '%s' not supported. Must be one of: sqlite3 or pg", cfg.Driver)
	}
}

// Client defines the interface for migration clients.
type Client interface {
	EnsureTables(ctx context.Context) error
	AppliedMigrations(ctx context.Context) ([]string, error)
	AcquireLock(ctx context.Context) error
	ReleaseLock(ctx context.Context) error
	Apply(ctx context.Context, m Migration, d Direction, script string) error
}

// baseClient provides the common implementation. Dialect hooks are set by
// the concrete constructors.
type baseClient struct {
	cfg Config
	db  *sql.DB

	quotedTableFn  func(name string) string
	placeholderFn  func(n int) string
	ensureSchemaFn func(ctx context.Context) error
	prepareTxFn    func(ctx context.Context, tx *sql.Tx) error
}

// quoteIdent quotes a single SQL identifier.
func quoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func (c *baseClient) migrationsTable() string {
	return c.quotedTableFn(c.cfg.MigrationsTable)
}

func (c *baseClient) lockTable() string {
	return c.quotedTableFn(c.cfg.MigrationsTable + "_lock")
}

func (c *baseClient) createTablesSql() []string {
	idType := "SERIAL PRIMARY KEY"
	if c.cfg.Driver == DriverSQLite {
		idType = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id %s,
  name VARCHAR(255) NOT NULL,
  run_on TIMESTAMP NOT NULL
);`, c.migrationsTable(), idType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id INTEGER PRIMARY KEY,
  locked_at TIMESTAMP NOT NULL
);`, c.lockTable()),
	}
}

// EnsureTables creates the migrations schema and the tracking and lock
// tables if they are missing.
func (c *baseClient) EnsureTables(ctx context.Context) error {
	if err := c.ensureSchemaFn(ctx); err != nil {
		return err
	}
	for _, q := range c.createTablesSql() {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("creating migration tables: %w", err)
		}
	}
	return nil
}

// AppliedMigrations returns the IDs of applied migrations in the order they ran.
func (c *baseClient) AppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %s ORDER BY run_on, id;`, c.migrationsTable()))
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AcquireLock inserts the single lock row, failing with ErrLocked if it is already present.
func (c *baseClient) AcquireLock(ctx context.Context) error {
	var held int
	err := c.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s;`, c.lockTable())).Scan(&held)
	if err != nil {
		return fmt.Errorf("checking migration lock: %w", err)
	}
	if held > 0 {
		return ErrLocked
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, locked_at) VALUES (1, CURRENT_TIMESTAMP);`, c.lockTable())
	if _, err := c.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
	return nil
}

// ReleaseLock removes the lock row. Releasing a free lock is not an error.
func (c *baseClient) ReleaseLock(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s;`, c.lockTable())); err != nil {
		return fmt.Errorf("releasing migration lock: %w", err)
	}
	return nil
}

// persistActionSql returns the tracking-table statement for a migration run in direction d.
func (c *baseClient) persistActionSql(d Direction) string {
	if d == Down {
		return fmt.Sprintf(`DELETE FROM %s WHERE name = %s;`, c.migrationsTable(), c.placeholderFn(1))
	}
	return fmt.Sprintf(`INSERT INTO %s (name, run_on) VALUES (%s, CURRENT_TIMESTAMP);`, c.migrationsTable(), c.placeholderFn(1))
}

// Apply runs script and records the result in one transaction.
func (c *baseClient) Apply(ctx context.Context, m Migration, d Direction, script string) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = c.prepareTxFn(ctx, tx); err != nil {
		return err
	}
	if !isBlankSQL(script) {
		if _, err = tx.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("exec migration %s: %w", m.ID(), err)
		}
	}
	if _, err = tx.ExecContext(ctx, c.persistActionSql(d), m.ID()); err != nil {
		return fmt.Errorf("record migration %s: %w", m.ID(), err)
	}
	return tx.Commit()
}

// hasSchema reports whether table already carries a schema qualifier.
func hasSchema(table string) bool {
	return strings.Contains(table, ".")
}
