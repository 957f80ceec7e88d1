package pgmigrator

import (
	"errors"
	"math"
)

// Driver identifies the SQL dialect a client speaks.
type Driver string

const (
	// DriverPostgres selects the PostgreSQL client (pgx).
	DriverPostgres Driver = "pg"

	// DriverSQLite selects the SQLite client (go-sqlite3).
	DriverSQLite Driver = "sqlite3"
)

// Direction is the way migrations are run.
type Direction string

const (
	// Up applies pending migrations.
	Up Direction = "up"

	// Down reverts applied migrations.
	Down Direction = "down"
)

// Infinity as a RunOptions.Count selects every runnable migration.
const Infinity = math.MaxInt

var (
	// ErrLocked is returned when another run holds the migration lock.
	ErrLocked = errors.New("another migration is already running")

	// ErrNoMigration is returned when a named or applied migration has no file.
	ErrNoMigration = errors.New("migration not found")

	// ErrAmbiguousName is returned when a bare name matches more than one migration.
	ErrAmbiguousName = errors.New("migration name is ambiguous, use <version>_<name>")

	// ErrOrder is returned when a pending migration precedes an applied one.
	ErrOrder = errors.New("migration order check failed")
)

// Config holds the settings shared by every engine call.
type Config struct {
	// Driver is the database dialect, "pg" or "sqlite3".
	Driver Driver

	// Schema is the schema migrations run in (PostgreSQL only).
	Schema string

	// MigrationsSchema holds the tracking and lock tables. Defaults to Schema.
	MigrationsSchema string

	// MigrationsTable is the name of the tracking table.
	MigrationsTable string
}

// DefaultConfig provides default values for configuration.
var DefaultConfig = Config{
	Driver:          DriverPostgres,
	Schema:          "public",
	MigrationsTable: "pgmigrations",
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = DefaultConfig.Driver
	}
	if c.Schema == "" {
		c.Schema = DefaultConfig.Schema
	}
	if c.MigrationsSchema == "" {
		c.MigrationsSchema = c.Schema
	}
	if c.MigrationsTable == "" {
		c.MigrationsTable = DefaultConfig.MigrationsTable
	}
	return c
}

// RunOptions describes a single up or down run.
type RunOptions struct {
	Config

	// Dir is the directory holding the migration files.
	Dir string

	Direction Direction

	// Count limits the run to that many migrations. Infinity runs them all.
	// Ignored when File is set.
	Count int

	// File runs migrations up to and including the named one.
	File string

	// CheckOrder fails the run when a pending migration sorts before an applied one.
	CheckOrder bool

	// DryRun reports the selected migrations without executing them.
	DryRun bool

	// TypeShorthands expands ${name} placeholders in migration SQL.
	TypeShorthands map[string]TypeShorthand
}
