package config

import (
	"fmt"
	"net/url"
	"strconv"
)

// Sources are the inputs Resolve merges.
type Sources struct {
	// Flags carries flag values with defaults applied.
	Flags Flags

	// LookupEnv reads the process environment (os.LookupEnv in production).
	LookupEnv func(string) (string, bool)

	// Section is the config directory section, nil when absent.
	Section any

	// File is the decoded explicit config file, nil when absent.
	File any
}

// Resolve merges src into Settings. It never fails: a missing database URL
// is left empty for the caller to validate, since not every action needs one.
//
// Merge order, later wins field by field: flag defaults, environment,
// Section, File, explicitly set flags.
func Resolve(src Sources) Settings {
	f := src.Flags
	s := Settings{
		MigrationsDir:    orDefault(f.MigrationsDir, DefaultMigrationsDir),
		MigrationsTable:  orDefault(f.MigrationsTable, DefaultMigrationsTable),
		Schema:           orDefault(f.Schema, DefaultSchema),
		MigrationsSchema: f.MigrationsSchema,
		CheckOrder:       f.CheckOrder,
		DryRun:           f.DryRun,
	}

	if src.LookupEnv != nil {
		if v, ok := src.LookupEnv(f.URLVar()); ok && v != "" {
			s.DatabaseURL = v
		}
	}

	s = applyObjectSource(s, src.Section)
	s = applyObjectSource(s, src.File)
	return applyExplicitFlags(s, f)
}

// mergeRule decides when a config object value replaces the current one.
type mergeRule int

const (
	// ifNonEmpty overwrites only when the key is present with a non-empty value.
	ifNonEmpty mergeRule = iota
	// ifPresent overwrites whenever the key is present, so false and 0 count.
	ifPresent
)

// fieldPolicy is one row of the per-field merge policy for config objects.
type fieldPolicy struct {
	keys  []string
	rule  mergeRule
	apply func(s *Settings, v any) bool
}

var objectPolicies = []fieldPolicy{
	{keys: []string{"schema"}, rule: ifNonEmpty, apply: setString(func(s *Settings) *string { return &s.Schema })},
	{keys: []string{"migrations-dir", "migrationsDir", "dir"}, rule: ifNonEmpty, apply: setString(func(s *Settings) *string { return &s.MigrationsDir })},
	{keys: []string{"migrations-schema", "migrationsSchema"}, rule: ifNonEmpty, apply: setString(func(s *Settings) *string { return &s.MigrationsSchema })},
	{keys: []string{"migrations-table", "migrationsTable"}, rule: ifNonEmpty, apply: setString(func(s *Settings) *string { return &s.MigrationsTable })},
	{keys: []string{"type-shorthands", "typeShorthands"}, rule: ifNonEmpty, apply: setShorthands},
	{keys: []string{"check-order", "checkOrder"}, rule: ifPresent, apply: setBool(func(s *Settings) *bool { return &s.CheckOrder })},
}

// applyObjectSource merges one config object into s. A bare string source
// replaces the database URL; nil and other scalars change nothing.
func applyObjectSource(s Settings, source any) Settings {
	if source == nil {
		return s
	}
	obj, ok := asObject(source)
	if !ok {
		if str, ok := source.(string); ok && str != "" {
			s.DatabaseURL = str
		}
		return s
	}

	for _, p := range objectPolicies {
		v, present := lookupKey(obj, p.keys)
		if !present {
			continue
		}
		if p.rule == ifNonEmpty && isEmpty(v) {
			continue
		}
		p.apply(&s, v)
	}

	if u, ok := databaseURL(obj); ok {
		s.DatabaseURL = u
	}
	return s
}

// databaseURL returns the object's "url", or a postgres URL assembled from
// host, port, name, user and password. Only those parts are used: query
// parameters such as sslmode have to come through "url".
func databaseURL(obj map[string]any) (string, bool) {
	if v, ok := obj["url"]; ok {
		if str, ok := stringValue(v); ok && str != "" {
			return str, true
		}
	}

	host, hasHost := nonEmptyString(obj, "host")
	port, hasPort := nonEmptyString(obj, "port")
	name, hasName := nonEmptyString(obj, "name")
	if !hasHost && !hasPort && !hasName {
		return "", false
	}
	if !hasHost {
		host = "localhost"
	}
	if !hasPort {
		port = "5432"
	}

	u := url.URL{Scheme: "postgres", Host: host + ":" + port, Path: "/" + name}
	if user, ok := nonEmptyString(obj, "user"); ok {
		if password, ok := nonEmptyString(obj, "password"); ok {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String(), true
}

// applyExplicitFlags lets flags the user typed override every other source.
func applyExplicitFlags(s Settings, f Flags) Settings {
	if f.isSet("migrations-dir") {
		s.MigrationsDir = f.MigrationsDir
	}
	if f.isSet("migrations-table") {
		s.MigrationsTable = f.MigrationsTable
	}
	if f.isSet("schema") {
		s.Schema = f.Schema
	}
	if f.isSet("migrations-schema") {
		s.MigrationsSchema = f.MigrationsSchema
	}
	if f.isSet("check-order") {
		s.CheckOrder = f.CheckOrder
	}
	if f.isSet("dry-run") {
		s.DryRun = f.DryRun
	}
	return s
}

func setString(field func(*Settings) *string) func(*Settings, any) bool {
	return func(s *Settings, v any) bool {
		str, ok := stringValue(v)
		if ok {
			*field(s) = str
		}
		return ok
	}
}

func setBool(field func(*Settings) *bool) func(*Settings, any) bool {
	return func(s *Settings, v any) bool {
		var b bool
		switch t := v.(type) {
		case bool:
			b = t
		case string:
			parsed, err := strconv.ParseBool(t)
			if err != nil {
				return false
			}
			b = parsed
		default:
			return false
		}
		*field(s) = b
		return true
	}
}

func setShorthands(s *Settings, v any) bool {
	obj, ok := asObject(v)
	if !ok {
		return false
	}
	shorthands := make(map[string]TypeShorthand, len(obj))
	for name, def := range obj {
		if sh, ok := parseShorthand(def); ok {
			shorthands[name] = sh
		}
	}
	if len(shorthands) == 0 {
		return false
	}
	s.TypeShorthands = shorthands
	return true
}

// parseShorthand accepts either a bare type name or an object definition.
func parseShorthand(v any) (TypeShorthand, bool) {
	if str, ok := v.(string); ok {
		return TypeShorthand{Type: str}, str != ""
	}
	obj, ok := asObject(v)
	if !ok {
		return TypeShorthand{}, false
	}
	var sh TypeShorthand
	sh.Type, _ = nonEmptyString(obj, "type")
	sh.Default, _ = nonEmptyString(obj, "default")
	sh.References, _ = nonEmptyString(obj, "references")
	sh.PrimaryKey = boolKey(obj, "primaryKey", "primary-key")
	sh.NotNull = boolKey(obj, "notNull", "not-null")
	sh.Unique = boolKey(obj, "unique")
	return sh, sh.Type != ""
}

func boolKey(obj map[string]any, keys ...string) bool {
	v, ok := lookupKey(obj, keys)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func lookupKey(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func nonEmptyString(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key]
	if !ok {
		return "", false
	}
	str, ok := stringValue(v)
	return str, ok && str != ""
}

// asObject returns v as a string-keyed map. yaml.v3 may hand back
// map[any]any for mappings with non-string keys.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// stringValue renders scalar config values; numbers come back from JSON as float64.
func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case map[any]any:
		return len(t) == 0
	default:
		return false
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
