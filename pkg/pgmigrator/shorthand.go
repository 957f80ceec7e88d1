package pgmigrator

import (
	"regexp"
	"strings"
)

// TypeShorthand is a reusable column definition referenced from migration SQL as ${name}.
type TypeShorthand struct {
	Type       string
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	Default    string
	References string
}

// Definition renders the shorthand as a column definition, e.g. "serial PRIMARY KEY".
func (s TypeShorthand) Definition() string {
	parts := []string{s.Type}
	if s.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if s.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if s.Unique {
		parts = append(parts, "UNIQUE")
	}
	if s.Default != "" {
		parts = append(parts, "DEFAULT "+s.Default)
	}
	if s.References != "" {
		parts = append(parts, "REFERENCES "+s.References)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

var shorthandRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandShorthands replaces ${name} with the named shorthand's definition.
// Unknown names are left untouched.
func expandShorthands(script string, shorthands map[string]TypeShorthand) string {
	if len(shorthands) == 0 {
		return script
	}
	return shorthandRe.ReplaceAllStringFunc(script, func(match string) string {
		name := shorthandRe.FindStringSubmatch(match)[1]
		if s, ok := shorthands[name]; ok {
			return s.Definition()
		}
		return match
	})
}
