package dispatch

import (
	"context"

	"github.com/bcomnes/pgmigrator/internal/config"
)

// Direction is the way a run moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// CreateRequest asks for a new migration named Name.
type CreateRequest struct {
	Name string
}

// RunRequest asks for an up or down run.
type RunRequest struct {
	Direction Direction
	DryRun    bool
	Selector  Selector
}

// UnlockRequest asks for the migration lock to be cleared. Connection and
// table details come from the Settings passed alongside it.
type UnlockRequest struct{}

// Created is what a Creator reports back.
type Created struct {
	Path string
}

// Creator scaffolds migration files.
type Creator interface {
	Create(ctx context.Context, req CreateRequest, dir string) (Created, error)
}

// Runner runs migrations and returns the names of those it ran (or, for a
// dry run, would run).
type Runner interface {
	Run(ctx context.Context, req RunRequest, s config.Settings) ([]string, error)
}

// Unlocker clears a stale migration lock.
type Unlocker interface {
	Unlock(ctx context.Context, req UnlockRequest, s config.Settings) error
}
