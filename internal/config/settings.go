// Package config resolves the pgmigrator run-time settings from command-line
// flags, the environment, a layered config directory and an explicit config
// file.
//
// Precedence (highest to lowest):
//  1. Flags the user set on the command line
//  2. Explicit config file (-f/--config-file)
//  3. Config directory section (--config-value, default "db")
//  4. Environment variable named by --database-url-var (database URL only)
//  5. Flag defaults
package config

// Defaults for every flag that feeds Settings.
const (
	DefaultDatabaseURLVar  = "DATABASE_URL"
	DefaultMigrationsDir   = "./migrations"
	DefaultMigrationsTable = "pgmigrations"
	DefaultSchema          = "public"
	DefaultConfigValue     = "db"
)

// TypeShorthand is a named column definition made available to migrations.
type TypeShorthand struct {
	Type       string `json:"type" yaml:"type"`
	PrimaryKey bool   `json:"primaryKey" yaml:"primaryKey"`
	NotNull    bool   `json:"notNull" yaml:"notNull"`
	Unique     bool   `json:"unique" yaml:"unique"`
	Default    string `json:"default" yaml:"default"`
	References string `json:"references" yaml:"references"`
}

// Settings is the fully resolved configuration. It is built once by Resolve
// and passed around by value.
type Settings struct {
	// DatabaseURL is empty when no source supplied one.
	DatabaseURL      string
	MigrationsDir    string
	MigrationsTable  string
	Schema           string
	MigrationsSchema string
	CheckOrder       bool
	TypeShorthands   map[string]TypeShorthand
	DryRun           bool
}

// EffectiveMigrationsSchema returns MigrationsSchema, falling back to Schema.
func (s Settings) EffectiveMigrationsSchema() string {
	if s.MigrationsSchema != "" {
		return s.MigrationsSchema
	}
	return s.Schema
}

// HasDatabaseURL reports whether a database URL was resolved.
func (s Settings) HasDatabaseURL() bool {
	return s.DatabaseURL != ""
}

// Flags holds command-line flag values with their declared defaults applied.
// Set records the long names of flags the user passed explicitly.
type Flags struct {
	DatabaseURLVar   string
	MigrationsDir    string
	MigrationsTable  string
	Schema           string
	MigrationsSchema string
	CheckOrder       bool
	DryRun           bool
	Set              map[string]bool
}

// DefaultFlags returns Flags as if no flag had been passed.
func DefaultFlags() Flags {
	return Flags{
		DatabaseURLVar:  DefaultDatabaseURLVar,
		MigrationsDir:   DefaultMigrationsDir,
		MigrationsTable: DefaultMigrationsTable,
		Schema:          DefaultSchema,
		CheckOrder:      true,
	}
}

// URLVar returns the environment variable holding the database URL.
func (f Flags) URLVar() string {
	if f.DatabaseURLVar == "" {
		return DefaultDatabaseURLVar
	}
	return f.DatabaseURLVar
}

func (f Flags) isSet(name string) bool {
	return f.Set[name]
}
