// SPDX-License-Identifier: MIT

// Package main provides pgmigrator, a command-line interface for creating,
// applying and reverting SQL migrations on PostgreSQL and SQLite.
//
// # Install
//
//	go install github.com/bcomnes/pgmigrator/cmd/pgmigrator@latest
//
// # Synopsis
//
//	pgmigrator [flags] <action> [name|count]
//
// # Actions
//
//	create <name...>   Scaffold <timestamp>_<name>.up.sql and .down.sql.
//	up     [N|name]    Apply all pending migrations, the next N, or up to name.
//	down   [N|name]    Revert all applied migrations, the last N, or down to name.
//	unlock             Clear a lock left by an interrupted run.
//
// # Flags
//
//	-d, --database-url-var string   Env var holding the database URL (default "DATABASE_URL").
//	-m, --migrations-dir string     Migration directory (default "./migrations").
//	-t, --migrations-table string   Tracking table (default "pgmigrations").
//	-s, --schema string             Schema to migrate (default "public").
//	    --migrations-schema string  Schema for the tracking table (defaults to --schema).
//	    --dry-run                   List what would run without committing.
//	    --check-order               Fail on out-of-order migrations (default true).
//	-f, --config-file string        JSON or YAML config file.
//	    --config-value string       Section of the config directory (default "db").
//	    --force-exit                Exit immediately after a successful action.
//	-i, --version                   Print the version.
//
// # Configuration
//
// Settings are merged from flag defaults, the environment, the config
// directory ($PGMIGRATOR_CONFIG_DIR, default ./config, layered as
// default, $APP_ENV and local files), the config file, and finally flags set on
// the command line. A config object may give "url" directly or host, port,
// name, user and password.
//
// # Exit status
//
// 0 on success, 1 otherwise.
package main
