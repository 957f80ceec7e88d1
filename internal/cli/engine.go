package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bcomnes/pgmigrator/internal/config"
	"github.com/bcomnes/pgmigrator/internal/dispatch"
	"github.com/bcomnes/pgmigrator/pkg/pgmigrator"
)

// engine adapts pkg/pgmigrator to the dispatch collaborator interfaces.
// Connections it opens stay open until Close so a forced exit can skip the
// deferred close.
type engine struct {
	open func(ctx context.Context, url string) (*sql.DB, pgmigrator.Driver, error)
	dbs  []*sql.DB
}

func newEngine() *engine {
	return &engine{open: pgmigrator.Open}
}

func (e *engine) Create(_ context.Context, req dispatch.CreateRequest, dir string) (dispatch.Created, error) {
	path, err := pgmigrator.CreateMigration(dir, req.Name)
	if err != nil {
		return dispatch.Created{}, err
	}
	return dispatch.Created{Path: path}, nil
}

func (e *engine) Run(ctx context.Context, req dispatch.RunRequest, s config.Settings) ([]string, error) {
	db, driver, err := e.connect(ctx, s.DatabaseURL)
	if err != nil {
		return nil, err
	}

	opts := pgmigrator.RunOptions{
		Config:         engineConfig(s, driver),
		Dir:            s.MigrationsDir,
		Direction:      pgmigrator.Up,
		CheckOrder:     s.CheckOrder,
		DryRun:         req.DryRun,
		TypeShorthands: shorthands(s.TypeShorthands),
	}
	if req.Direction == dispatch.Down {
		opts.Direction = pgmigrator.Down
	}
	switch req.Selector.Kind {
	case dispatch.SelectCount:
		opts.Count = req.Selector.Count
	case dispatch.SelectName:
		opts.File = req.Selector.Name
	default:
		opts.Count = pgmigrator.Infinity
	}

	ran, err := pgmigrator.Run(ctx, db, opts)
	names := make([]string, 0, len(ran))
	for _, m := range ran {
		names = append(names, m.ID())
	}
	if err != nil {
		return names, lockHint(err)
	}
	return names, nil
}

func (e *engine) Unlock(ctx context.Context, _ dispatch.UnlockRequest, s config.Settings) error {
	db, driver, err := e.connect(ctx, s.DatabaseURL)
	if err != nil {
		return err
	}
	return pgmigrator.Unlock(ctx, db, engineConfig(s, driver))
}

// Close closes every connection the engine opened.
func (e *engine) Close() error {
	var errs []error
	for _, db := range e.dbs {
		errs = append(errs, db.Close())
	}
	e.dbs = nil
	return errors.Join(errs...)
}

func (e *engine) connect(ctx context.Context, url string) (*sql.DB, pgmigrator.Driver, error) {
	db, driver, err := e.open(ctx, url)
	if err != nil {
		return nil, "", err
	}
	e.dbs = append(e.dbs, db)
	return db, driver, nil
}

func engineConfig(s config.Settings, driver pgmigrator.Driver) pgmigrator.Config {
	return pgmigrator.Config{
		Driver:           driver,
		Schema:           s.Schema,
		MigrationsSchema: s.EffectiveMigrationsSchema(),
		MigrationsTable:  s.MigrationsTable,
	}
}

func shorthands(in map[string]config.TypeShorthand) map[string]pgmigrator.TypeShorthand {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]pgmigrator.TypeShorthand, len(in))
	for name, s := range in {
		out[name] = pgmigrator.TypeShorthand(s)
	}
	return out
}

func lockHint(err error) error {
	if pgmigrator.IsLocked(err) {
		return fmt.Errorf("%w (run `pgmigrator unlock` if no other migration is running)", err)
	}
	return err
}
