// Package dispatch maps a pgmigrator action and its positional arguments to
// one engine call and reports the result as an Outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/bcomnes/pgmigrator/internal/config"
	"github.com/bcomnes/pgmigrator/internal/console"
)

// Status classifies how a dispatch ended.
type Status int

const (
	// StatusOK means the action succeeded.
	StatusOK Status = iota
	// StatusUsage means the command line was wrong: no or unknown action, missing name.
	StatusUsage
	// StatusPrecondition means a required setting, the database URL, is missing.
	StatusPrecondition
	// StatusEngine means the engine rejected the call.
	StatusEngine
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUsage:
		return "usage error"
	case StatusPrecondition:
		return "precondition error"
	case StatusEngine:
		return "engine error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of Dispatch.
type Outcome struct {
	Status Status
	Err    error
}

// ExitCode maps the outcome to a process exit code.
func (o Outcome) ExitCode() int {
	if o.Status == StatusOK {
		return 0
	}
	return 1
}

// Actions lists the accepted actions.
var Actions = []string{"create", "up", "down", "unlock"}

var (
	errMissingName = errors.New("missing migration name")
	errMissingURL  = errors.New("missing database url")
)

// Dispatcher runs one action against its collaborators.
type Dispatcher struct {
	Settings config.Settings

	// URLVar names the environment variable reported when the database URL is missing.
	URLVar string

	// ForceExit makes a successful action call Exit(0) before Dispatch returns.
	ForceExit bool
	Exit      func(code int)

	Creator  Creator
	Runner   Runner
	Unlocker Unlocker
	Out      *console.Printer
}

// Dispatch runs verb with the remaining positional tokens.
func (d *Dispatcher) Dispatch(ctx context.Context, verb string, tokens []string) Outcome {
	var out Outcome
	switch verb {
	case "create":
		out = d.create(ctx, tokens)
	case "unlock":
		out = d.unlock(ctx)
	case "up":
		out = d.run(ctx, Up, tokens)
	case "down":
		out = d.run(ctx, Down, tokens)
	default:
		d.Out.Failuref("Invalid Action: Must be [create|up|down|unlock].")
		return Outcome{Status: StatusUsage, Err: fmt.Errorf("invalid action %q", verb)}
	}

	if out.Status == StatusOK && d.ForceExit && d.Exit != nil {
		d.Exit(0)
	}
	return out
}

func (d *Dispatcher) create(ctx context.Context, tokens []string) Outcome {
	if len(tokens) == 0 {
		d.Out.Failuref("'create' requires a migration name.")
		return Outcome{Status: StatusUsage, Err: errMissingName}
	}

	req := CreateRequest{Name: NormalizeName(tokens)}
	created, err := d.Creator.Create(ctx, req, d.Settings.MigrationsDir)
	if err != nil {
		d.Out.Failuref("Create failed: %v", err)
		return Outcome{Status: StatusEngine, Err: err}
	}
	d.Out.Successf("Created migration -- %s", created.Path)
	return Outcome{Status: StatusOK}
}

func (d *Dispatcher) unlock(ctx context.Context) Outcome {
	if out, ok := d.requireURL(); !ok {
		return out
	}

	if err := d.Unlocker.Unlock(ctx, UnlockRequest{}, d.Settings); err != nil {
		d.Out.Failuref("Unlock failed: %v", err)
		return Outcome{Status: StatusEngine, Err: err}
	}
	d.Out.Successf("Unlock successful.")
	return Outcome{Status: StatusOK}
}

func (d *Dispatcher) run(ctx context.Context, dir Direction, tokens []string) Outcome {
	if out, ok := d.requireURL(); !ok {
		return out
	}

	req := RunRequest{
		Direction: dir,
		DryRun:    d.Settings.DryRun,
		Selector:  ClassifySelector(tokens),
	}
	if req.DryRun {
		d.Out.Noticef("Dry run: no migrations will be committed.")
	}
	d.Out.Infof("Running %s migrations (%s)...", dir, req.Selector)

	ran, err := d.Runner.Run(ctx, req, d.Settings)
	if err != nil {
		d.Out.Failuref("Migration failed: %v", err)
		return Outcome{Status: StatusEngine, Err: err}
	}

	if len(ran) == 0 {
		d.Out.Infof("No migrations to run!")
	}
	d.Out.Table(rows(ran, dir, req.DryRun))
	d.Out.Successf("Migrations complete!")
	return Outcome{Status: StatusOK}
}

func (d *Dispatcher) requireURL() (Outcome, bool) {
	if d.Settings.HasDatabaseURL() {
		return Outcome{}, true
	}
	name := d.URLVar
	if name == "" {
		name = config.DefaultDatabaseURLVar
	}
	d.Out.Failuref("The $%s environment variable is not set.", name)
	return Outcome{Status: StatusPrecondition, Err: errMissingURL}, false
}

func rows(names []string, dir Direction, dryRun bool) []console.Row {
	status := "applied"
	if dir == Down {
		status = "reverted"
	}
	if dryRun {
		status = "would be " + status
	}
	out := make([]console.Row, 0, len(names))
	for _, n := range names {
		out = append(out, console.Row{Name: n, Status: status})
	}
	return out
}
