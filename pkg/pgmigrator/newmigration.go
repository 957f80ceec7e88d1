package pgmigrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	upTemplate   = "-- Write your migration SQL here\n"
	downTemplate = "-- Write your rollback SQL here\n"
)

// CreateMigration creates a new pair of migration files (up/down) in dir
// and returns the path of the up file.
// The files are named <millisecond timestamp>_<name> with name kept as given,
// so the same name selects the migration in a later run.
func CreateMigration(dir, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations dir %s: %w", dir, err)
	}

	prefix := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), name)
	upPath := filepath.Join(dir, prefix+".up.sql")
	downPath := filepath.Join(dir, prefix+".down.sql")

	if err := os.WriteFile(upPath, []byte(upTemplate), 0o644); err != nil {
		return "", fmt.Errorf("failed to create migration file %s: %w", upPath, err)
	}
	if err := os.WriteFile(downPath, []byte(downTemplate), 0o644); err != nil {
		return "", fmt.Errorf("failed to create migration file %s: %w", downPath, err)
	}
	return upPath, nil
}

// validateName rejects names that cannot round-trip through a file name.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("migration name %q is empty", name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("migration name %q must not contain path separators", name)
	}
	if !migrationFileRe.MatchString("0_" + name + ".up.sql") {
		return fmt.Errorf("migration name %q cannot be used in a file name", name)
	}
	return nil
}
