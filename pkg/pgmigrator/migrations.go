package pgmigrator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Migration represents a single migration and its up/down files.
type Migration struct {
	// Version is the numeric prefix of the file name.
	Version int64

	// Name is the descriptive part of the file name.
	Name string

	// UpFile is the path to the apply script.
	UpFile string

	// DownFile is the path to the revert script. Empty when there is none.
	DownFile string
}

// ID is the identifier stored in the tracking table, "<version>_<name>".
func (m Migration) ID() string {
	return fmt.Sprintf("%d_%s", m.Version, m.Name)
}

// file returns the script for the given direction.
func (m Migration) file(d Direction) string {
	if d == Down {
		return m.DownFile
	}
	return m.UpFile
}

// getSQL reads the script for the given direction.
func (m Migration) getSQL(d Direction) (string, error) {
	path := m.file(d)
	if path == "" {
		return "", fmt.Errorf("migration %s has no %s script", m.ID(), d)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var migrationFileRe = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// sortMigrationsAsc sorts migrations in ascending order based on version.
func sortMigrationsAsc(migs []Migration) {
	sort.Slice(migs, func(i, j int) bool {
		if migs[i].Version != migs[j].Version {
			return migs[i].Version < migs[j].Version
		}
		return migs[i].Name < migs[j].Name
	})
}

// getMigrations scans dir for migration files and pairs them up.
func getMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations dir: %w", err)
	}
	byID := make(map[string]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		parts := migrationFileRe.FindStringSubmatch(e.Name())
		if parts == nil {
			continue
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration file %s: invalid version %s: %w", e.Name(), parts[1], err)
		}
		key := parts[1] + "_" + parts[2]
		m, ok := byID[key]
		if !ok {
			m = &Migration{Version: version, Name: parts[2]}
			byID[key] = m
		}
		path := filepath.Join(dir, e.Name())
		if parts[3] == "up" {
			m.UpFile = path
		} else {
			m.DownFile = path
		}
	}

	migrations := make([]Migration, 0, len(byID))
	for _, m := range byID {
		if m.UpFile == "" {
			return nil, fmt.Errorf("migration %s has a down script but no up script", m.ID())
		}
		migrations = append(migrations, *m)
	}
	sortMigrationsAsc(migrations)
	return migrations, nil
}

// resolveRef returns the ID of the migration ref names. ref may be a full
// "<version>_<name>" ID or a bare name; a bare name shared by several
// migrations is an error. A ref matching nothing is returned unchanged.
func resolveRef(migrations []Migration, ref string) (string, error) {
	var ids []string
	for _, m := range migrations {
		if m.ID() == ref {
			return ref, nil
		}
		if m.Name == ref {
			ids = append(ids, m.ID())
		}
	}
	switch len(ids) {
	case 0:
		return ref, nil
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %s", ErrAmbiguousName, ref, strings.Join(ids, ", "))
	}
}

// isBlankSQL reports whether script holds nothing but whitespace and line comments.
func isBlankSQL(script string) bool {
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
