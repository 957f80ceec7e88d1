package dispatch

import (
	"strconv"
	"strings"
)

// SelectorKind tags a Selector.
type SelectorKind int

const (
	// SelectAll runs every pending (up) or applied (down) migration.
	SelectAll SelectorKind = iota
	// SelectCount runs Count migrations.
	SelectCount
	// SelectName runs migrations up to and including Name.
	SelectName
)

func (k SelectorKind) String() string {
	switch k {
	case SelectCount:
		return "count"
	case SelectName:
		return "name"
	default:
		return "all"
	}
}

// Selector says which migrations a run covers.
type Selector struct {
	Kind  SelectorKind
	Count int
	Name  string
}

func (s Selector) String() string {
	switch s.Kind {
	case SelectCount:
		return "count=" + strconv.Itoa(s.Count)
	case SelectName:
		return "name=" + s.Name
	default:
		return "all"
	}
}

// ClassifySelector turns the tokens after up/down into a Selector.
//
// No tokens select all. A first token that is a base-10 integer, and prints
// back as exactly the same text, is a count: "3" and "-1" are counts, "3abc",
// "03" and "+3" are not. Anything else is a migration name built from all
// tokens with NormalizeName.
func ClassifySelector(tokens []string) Selector {
	if len(tokens) == 0 {
		return Selector{Kind: SelectAll}
	}
	if n, err := strconv.Atoi(tokens[0]); err == nil && strconv.Itoa(n) == tokens[0] {
		return Selector{Kind: SelectCount, Count: n}
	}
	return Selector{Kind: SelectName, Name: NormalizeName(tokens)}
}

// NormalizeName joins tokens with "-" and turns every "_ " into "-".
func NormalizeName(tokens []string) string {
	return strings.ReplaceAll(strings.Join(tokens, "-"), "_ ", "-")
}
