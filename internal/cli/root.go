// Package cli implements the pgmigrator command line: flag parsing, config
// loading, dispatch and the mapping of outcomes to exit codes.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bcomnes/pgmigrator/internal/config"
	"github.com/bcomnes/pgmigrator/internal/console"
	"github.com/bcomnes/pgmigrator/internal/dispatch"
	"github.com/bcomnes/pgmigrator/pkg/pgmigrator"
)

const usageExamples = `  pgmigrator create add users table
  pgmigrator up
  pgmigrator up 2
  pgmigrator down 1700000000000_add-users-table
  pgmigrator unlock`

// App is one invocation of the CLI. Zero fields fall back to the process
// equivalents.
type App struct {
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(string) (string, bool)
	Exit      func(code int)
}

// Execute runs the CLI against the process and returns the exit code.
func Execute() int {
	app := &App{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		LookupEnv: os.LookupEnv,
		Exit:      os.Exit,
	}
	return app.Run(os.Args[1:])
}

// options holds values bound to flags that do not feed config.Flags.
type options struct {
	flags       config.Flags
	version     bool
	forceExit   bool
	configValue string
	configFile  string
}

// Run parses args, runs the action and returns the exit code.
func (a *App) Run(args []string) (code int) {
	a.defaults()
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(a.Stdout, r)
			fmt.Fprintln(a.Stdout, string(debug.Stack()))
			code = 1
		}
	}()

	if args == nil {
		args = []string{}
	}
	cmd := a.newRootCmd(&code)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(a.Stderr, "Error: %v\n", err)
		return 1
	}
	return code
}

func (a *App) defaults() {
	if a.Stdout == nil {
		a.Stdout = os.Stdout
	}
	if a.Stderr == nil {
		a.Stderr = os.Stderr
	}
	if a.LookupEnv == nil {
		a.LookupEnv = os.LookupEnv
	}
	if a.Exit == nil {
		a.Exit = os.Exit
	}
}

func (a *App) newRootCmd(code *int) *cobra.Command {
	opts := &options{flags: config.DefaultFlags()}

	cmd := &cobra.Command{
		Use:           "pgmigrator [flags] <create|up|down|unlock> [name|count]",
		Short:         "Create and run SQL migrations",
		Example:       usageExamples,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.version {
				fmt.Fprintf(a.Stdout, "pgmigrator version: %s\n", pgmigrator.Version)
				return nil
			}
			opts.flags.Set = changedFlags(cmd.Flags())
			*code = a.run(cmd, opts, args)
			return nil
		},
	}
	cmd.SetOut(a.Stdout)
	cmd.SetErr(a.Stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.flags.DatabaseURLVar, "database-url-var", "d", config.DefaultDatabaseURLVar, "Environment variable holding the database URL")
	f.StringVarP(&opts.flags.MigrationsDir, "migrations-dir", "m", config.DefaultMigrationsDir, "Directory holding migration files")
	f.StringVarP(&opts.flags.MigrationsTable, "migrations-table", "t", config.DefaultMigrationsTable, "Table tracking applied migrations")
	f.StringVarP(&opts.flags.Schema, "schema", "s", config.DefaultSchema, "Schema migrations run in")
	f.StringVar(&opts.flags.MigrationsSchema, "migrations-schema", "", "Schema holding the migrations table (defaults to --schema)")
	f.BoolVar(&opts.flags.DryRun, "dry-run", false, "Print the migrations that would run without committing them")
	f.BoolVar(&opts.flags.CheckOrder, "check-order", true, "Fail when a pending migration sorts before an applied one")
	f.BoolVarP(&opts.version, "version", "i", false, "Print the version")
	f.StringVar(&opts.configValue, "config-value", config.DefaultConfigValue, "Section of the config directory to read")
	f.StringVarP(&opts.configFile, "config-file", "f", "", "Config file (JSON or YAML)")
	f.BoolVar(&opts.forceExit, "force-exit", false, "Exit as soon as the action succeeds")
	return cmd
}

func (a *App) run(cmd *cobra.Command, opts *options, args []string) int {
	printer := console.New(a.Stdout, a.Stderr)

	src := config.Sources{Flags: opts.flags, LookupEnv: a.LookupEnv}
	dir, env := config.SectionLocation(a.LookupEnv)
	section, err := config.LoadSection(dir, env, opts.configValue)
	if err != nil {
		printer.Failuref("Failed to load config: %v", err)
		return 1
	}
	src.Section = section
	if opts.configFile != "" {
		file, err := config.LoadFile(opts.configFile)
		if err != nil {
			printer.Failuref("Failed to load config: %v", err)
			return 1
		}
		src.File = file
	}

	eng := newEngine()
	defer eng.Close()

	d := &dispatch.Dispatcher{
		Settings:  config.Resolve(src),
		URLVar:    opts.flags.URLVar(),
		ForceExit: opts.forceExit,
		Exit:      a.Exit,
		Creator:   eng,
		Runner:    eng,
		Unlocker:  eng,
		Out:       printer,
	}

	var verb string
	var tokens []string
	if len(args) > 0 {
		verb, tokens = args[0], args[1:]
	}
	out := d.Dispatch(context.Background(), verb, tokens)
	if out.Status == dispatch.StatusUsage {
		fmt.Fprint(a.Stdout, cmd.UsageString())
	}
	return out.ExitCode()
}

func changedFlags(fs *pflag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) {
		set[f.Name] = true
	})
	return set
}
