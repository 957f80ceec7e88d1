package pgmigrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Run applies or reverts migrations as described by opts and returns the
// migrations it ran, in the order it ran them. With DryRun set the
// selection is returned without touching the schema.
//
// The run holds the migration lock for its whole duration; each migration
// executes in its own transaction together with its tracking-table update.
func Run(ctx context.Context, db *sql.DB, opts RunOptions) (ran []Migration, err error) {
	if opts.Direction != Up && opts.Direction != Down {
		return nil, fmt.Errorf("invalid direction %q", opts.Direction)
	}
	if opts.File == "" && opts.Count < 0 {
		return nil, fmt.Errorf("invalid migration count %d", opts.Count)
	}

	client, err := NewClient(opts.Config, db)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureTables(ctx); err != nil {
		return nil, err
	}
	if err := client.AcquireLock(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := client.ReleaseLock(ctx); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	migrations, err := getMigrations(opts.Dir)
	if err != nil {
		return nil, err
	}
	applied, err := client.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	if opts.CheckOrder {
		if err := checkOrder(migrations, applied); err != nil {
			return nil, err
		}
	}

	runnable, err := GetRunnableMigrations(migrations, applied, opts)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		return runnable, nil
	}

	for _, m := range runnable {
		script, err := m.getSQL(opts.Direction)
		if err != nil {
			return ran, err
		}
		script = expandShorthands(script, opts.TypeShorthands)
		if err := client.Apply(ctx, m, opts.Direction, script); err != nil {
			return ran, err
		}
		ran = append(ran, m)
	}
	return ran, nil
}

// Unlock force-clears the migration lock left behind by an interrupted run.
func Unlock(ctx context.Context, db *sql.DB, cfg Config) error {
	client, err := NewClient(cfg, db)
	if err != nil {
		return err
	}
	if err := client.EnsureTables(ctx); err != nil {
		return err
	}
	return client.ReleaseLock(ctx)
}

// checkOrder verifies that the applied migrations are exactly the first
// migrations on disk, in the same order.
func checkOrder(migrations []Migration, applied []string) error {
	for i, name := range applied {
		if i >= len(migrations) {
			return fmt.Errorf("%w: applied migration %s", ErrNoMigration, name)
		}
		if migrations[i].ID() != name {
			return fmt.Errorf("%w: not run migration %s is preceding already run migration %s",
				ErrOrder, migrations[i].ID(), name)
		}
	}
	return nil
}

// GetRunnableMigrations selects the migrations a run would execute.
//
// Up selects pending migrations in ascending order; Down selects applied
// migrations, most recent first. The selection stops after opts.Count
// migrations, or after the migration named by opts.File.
func GetRunnableMigrations(migrations []Migration, applied []string, opts RunOptions) ([]Migration, error) {
	var candidates []Migration
	if opts.Direction == Down {
		byID := make(map[string]Migration, len(migrations))
		for _, m := range migrations {
			byID[m.ID()] = m
		}
		for i := len(applied) - 1; i >= 0; i-- {
			m, ok := byID[applied[i]]
			if !ok {
				return nil, fmt.Errorf("%w: applied migration %s", ErrNoMigration, applied[i])
			}
			candidates = append(candidates, m)
		}
	} else {
		done := make(map[string]struct{}, len(applied))
		for _, name := range applied {
			done[name] = struct{}{}
		}
		for _, m := range migrations {
			if _, ok := done[m.ID()]; !ok {
				candidates = append(candidates, m)
			}
		}
	}

	if opts.File != "" {
		id, err := resolveRef(migrations, opts.File)
		if err != nil {
			return nil, err
		}
		for i, m := range candidates {
			if m.ID() == id {
				return candidates[:i+1], nil
			}
		}
		if opts.Direction == Up && isApplied(applied, id) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNoMigration, opts.File)
	}

	if opts.Count < len(candidates) {
		return candidates[:opts.Count], nil
	}
	return candidates, nil
}

func isApplied(applied []string, id string) bool {
	for _, name := range applied {
		if name == id {
			return true
		}
	}
	return false
}

// IsLocked reports whether err means the migration lock is held.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}
