// SPDX-License-Identifier: MIT

// Package pgmigrator is the migration engine behind the pgmigrator CLI.
// It loads *.sql* migration pairs from a directory, tracks applied
// migrations in a table you choose, guards runs with a lock table, and
// moves the database up or down by count, by name, or all the way.
//
// A thin client layer (currently PostgreSQL via pgx and SQLite via
// go-sqlite3) supplies the SQL dialect differences.
//
// # Quick start
//
//	db, driver, _ := pgmigrator.Open(ctx, os.Getenv("DATABASE_URL"))
//	defer db.Close()
//
//	ran, err := pgmigrator.Run(ctx, db, pgmigrator.RunOptions{
//	    Config:    pgmigrator.Config{Driver: driver},
//	    Dir:       "migrations",
//	    Direction: pgmigrator.Up,
//	    Count:     pgmigrator.Infinity,
//	})
//
// # Migration files
//
// A migration is a pair of files sharing a version and a name:
//
//	1700000000000_create-users.up.sql    // apply
//	1700000000000_create-users.down.sql  // revert
//
// The tracking table stores "<version>_<name>". CreateMigration scaffolds
// a new pair stamped with the current time in milliseconds.
//
// # Type shorthands
//
// RunOptions.TypeShorthands lets migrations reference shared column
// definitions. With {"id": {Type: "serial", PrimaryKey: true}}:
//
//	CREATE TABLE users (id ${id}, email text);
//
// runs as
//
//	CREATE TABLE users (id serial PRIMARY KEY, email text);
//
// # Programmatic API
//
//	Open(ctx, url)              → *sql.DB, Driver, error
//	Run(ctx, db, RunOptions)    → []Migration, error
//	Unlock(ctx, db, Config)     → error
//	CreateMigration(dir, name)  → path, error
//
// Run returns ErrLocked when another run holds the lock, ErrOrder when
// CheckOrder finds a pending migration before an applied one, and
// ErrNoMigration when a named or applied migration has no file. RunOptions.File
// takes a full "<version>_<name>" or a bare name; a bare name shared by two
// versions returns ErrAmbiguousName.
package pgmigrator
