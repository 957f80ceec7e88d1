package cli

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain triggers helper process mode when GO_HELPER_PROCESS is set.
func TestMain(m *testing.M) {
	if os.Getenv("GO_HELPER_PROCESS") == "1" {
		os.Exit(Execute())
	}
	color.NoColor = true
	os.Exit(m.Run())
}

// runCLI runs the current test binary as a helper process running the CLI.
func runCLI(args []string, extraEnv ...string) (string, int) {
	cmd := exec.Command(os.Args[0], args...)
	cmd.Env = append(os.Environ(), "GO_HELPER_PROCESS=1", "DATABASE_URL=", "NO_COLOR=1")
	cmd.Env = append(cmd.Env, extraEnv...)
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(out), exitErr.ExitCode()
	}
	return string(out), 0
}

type fixture struct {
	dir    string
	dbPath string
	env    map[string]string
	out    bytes.Buffer
	exits  []int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		dir:    filepath.Join(root, "migrations"),
		dbPath: filepath.Join(root, "app.db"),
		env: map[string]string{
			"PGMIGRATOR_CONFIG_DIR": filepath.Join(root, "config"),
		},
	}
	f.env["DATABASE_URL"] = "sqlite://" + f.dbPath
	require.NoError(t, os.MkdirAll(f.dir, 0o755))
	return f
}

func (f *fixture) write(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(body), 0o644))
}

func (f *fixture) writeUsers(t *testing.T) {
	f.write(t, "1_create-users.up.sql", "CREATE TABLE users (id ${id}, email TEXT);")
	f.write(t, "1_create-users.down.sql", "DROP TABLE users;")
	f.write(t, "2_create-posts.up.sql", "CREATE TABLE posts (id INTEGER);")
	f.write(t, "2_create-posts.down.sql", "DROP TABLE posts;")
}

func (f *fixture) run(args ...string) int {
	f.out.Reset()
	app := &App{
		Stdout: &f.out,
		Stderr: &f.out,
		LookupEnv: func(k string) (string, bool) {
			v, ok := f.env[k]
			return v, ok
		},
		Exit: func(code int) { f.exits = append(f.exits, code) },
	}
	return app.Run(append([]string{"-m", f.dir}, args...))
}

func (f *fixture) tableExists(t *testing.T, table string) bool {
	t.Helper()
	db, err := sql.Open("sqlite3", f.dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n))
	return n > 0
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	delete(f.env, "DATABASE_URL")

	code := f.run("create", "add", "users", "table")

	require.Equal(t, 0, code, f.out.String())
	assert.Contains(t, f.out.String(), "Created migration -- ")
	ups, err := filepath.Glob(filepath.Join(f.dir, "*_add-users-table.up.sql"))
	require.NoError(t, err)
	assert.Len(t, ups, 1)
	downs, err := filepath.Glob(filepath.Join(f.dir, "*_add-users-table.down.sql"))
	require.NoError(t, err)
	assert.Len(t, downs, 1)
}

func TestCreateWithoutName(t *testing.T) {
	f := newFixture(t)

	code := f.run("create")

	assert.Equal(t, 1, code)
	assert.Contains(t, f.out.String(), "'create' requires a migration name.")
	assert.Contains(t, f.out.String(), "Usage:")
}

func TestUpAndDown(t *testing.T) {
	f := newFixture(t)
	f.writeUsers(t)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(f.dir), "cfg.yaml"), []byte(
		"typeShorthands:\n  id:\n    type: INTEGER\n    primaryKey: true\n"), 0o644))

	code := f.run("-f", filepath.Join(filepath.Dir(f.dir), "cfg.yaml"), "up")
	require.Equal(t, 0, code, f.out.String())
	assert.Contains(t, f.out.String(), "1_create-users")
	assert.Contains(t, f.out.String(), "2_create-posts")
	assert.Contains(t, f.out.String(), "Migrations complete!")
	assert.True(t, f.tableExists(t, "users"))
	assert.True(t, f.tableExists(t, "posts"))

	code = f.run("down", "1")
	require.Equal(t, 0, code, f.out.String())
	assert.Contains(t, f.out.String(), "2_create-posts")
	assert.Contains(t, f.out.String(), "reverted")
	assert.False(t, f.tableExists(t, "posts"))
	assert.True(t, f.tableExists(t, "users"))

	code = f.run("down")
	require.Equal(t, 0, code, f.out.String())
	assert.False(t, f.tableExists(t, "users"))
}

func TestUpByName(t *testing.T) {
	f := newFixture(t)
	f.writeUsers(t)
	f.write(t, "1_create-users.up.sql", "CREATE TABLE users (id INTEGER);")

	code := f.run("up", "1_create-users")

	require.Equal(t, 0, code, f.out.String())
	assert.True(t, f.tableExists(t, "users"))
	assert.False(t, f.tableExists(t, "posts"))
}

func TestDryRun(t *testing.T) {
	f := newFixture(t)
	f.writeUsers(t)

	code := f.run("--dry-run", "up")

	require.Equal(t, 0, code, f.out.String())
	assert.Contains(t, f.out.String(), "Dry run: no migrations will be committed.")
	assert.Contains(t, f.out.String(), "would be applied")
	assert.False(t, f.tableExists(t, "users"))
}

func TestMigrationFailure(t *testing.T) {
	f := newFixture(t)
	f.write(t, "1_broken.up.sql", "CREATE TABL nope;")
	f.write(t, "1_broken.down.sql", "")

	code := f.run("up")

	assert.Equal(t, 1, code)
	assert.Contains(t, f.out.String(), "Migration failed:")
	assert.NotContains(t, f.out.String(), "Migrations complete!")
}

func TestLockedRunAndUnlock(t *testing.T) {
	f := newFixture(t)
	f.writeUsers(t)
	f.write(t, "1_create-users.up.sql", "CREATE TABLE users (id INTEGER);")
	require.Equal(t, 0, f.run("up", "1"), f.out.String())

	db, err := sql.Open("sqlite3", f.dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO pgmigrations_lock (id, locked_at) VALUES (1, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	code := f.run("up")
	assert.Equal(t, 1, code)
	assert.Contains(t, f.out.String(), "pgmigrator unlock")

	code = f.run("unlock")
	require.Equal(t, 0, code, f.out.String())
	assert.Contains(t, f.out.String(), "Unlock successful.")

	require.Equal(t, 0, f.run("up"), f.out.String())
	assert.True(t, f.tableExists(t, "posts"))
}

func TestMissingDatabaseURL(t *testing.T) {
	f := newFixture(t)
	f.writeUsers(t)
	delete(f.env, "DATABASE_URL")

	code := f.run("up")
	assert.Equal(t, 1, code)
	assert.Contains(t, f.out.String(), "The $DATABASE_URL environment variable is not set.")

	code = f.run("-d", "APP_DB_URL", "unlock")
	assert.Equal(t, 1, code)
	assert.Contains(t, f.out.String(), "The $APP_DB_URL environment variable is not set.")
}

func TestCustomURLVar(t *testing.T) {
	f := newFixture(t)
	f.writeUsers(t)
	f.write(t, "1_create-users.up.sql", "CREATE TABLE users (id INTEGER);")
	f.env["APP_DB_URL"] = f.env["DATABASE_URL"]
	delete(f.env, "DATABASE_URL")

	code := f.run("--database-url-var", "APP_DB_URL", "up")

	require.Equal(t, 0, code, f.out.String())
	assert.True(t, f.tableExists(t, "users"))
}

func TestConfigDirectorySection(t *testing.T) {
	f := newFixture(t)
	f.writeUsers(t)
	f.write(t, "1_create-users.up.sql", "CREATE TABLE users (id INTEGER);")
	cfgDir := f.env["PGMIGRATOR_CONFIG_DIR"]
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "default.yaml"), []byte(
		"db:\n  url: sqlite://"+f.dbPath+"\n"), 0o644))
	delete(f.env, "DATABASE_URL")

	code := f.run("up", "1")

	require.Equal(t, 0, code, f.out.String())
	assert.True(t, f.tableExists(t, "users"))
}

func TestBadConfigFile(t *testing.T) {
	f := newFixture(t)

	code := f.run("-f", filepath.Join(f.dir, "missing.json"), "up")

	assert.Equal(t, 1, code)
	assert.Contains(t, f.out.String(), "Failed to load config")
}

func TestInvalidAction(t *testing.T) {
	f := newFixture(t)

	for _, args := range [][]string{nil, {"sideways"}} {
		code := f.run(args...)
		assert.Equal(t, 1, code)
		assert.Contains(t, f.out.String(), "Invalid Action: Must be [create|up|down|unlock].")
		assert.Contains(t, f.out.String(), "Usage:")
	}
}

func TestVersion(t *testing.T) {
	f := newFixture(t)

	code := f.run("-i")

	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(f.out.String(), "pgmigrator version: "))
}

func TestForceExit(t *testing.T) {
	f := newFixture(t)
	f.writeUsers(t)
	f.write(t, "1_create-users.up.sql", "CREATE TABLE users (id INTEGER);")

	code := f.run("--force-exit", "up")

	assert.Equal(t, 0, code, f.out.String())
	assert.Equal(t, []int{0}, f.exits)

	code = f.run("--force-exit", "sideways")
	assert.Equal(t, 1, code)
	assert.Equal(t, []int{0}, f.exits)
}

func TestUnknownFlag(t *testing.T) {
	f := newFixture(t)

	code := f.run("--nope", "up")

	assert.Equal(t, 1, code)
	assert.Contains(t, f.out.String(), "unknown flag")
}

func TestHelperProcessExitCodes(t *testing.T) {
	dir := t.TempDir()

	out, code := runCLI([]string{"--version"})
	assert.Equal(t, 0, code, out)
	assert.Contains(t, out, "pgmigrator version:")

	out, code = runCLI([]string{"-m", dir, "up"})
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "The $DATABASE_URL environment variable is not set.")

	out, code = runCLI([]string{"-m", dir, "create", "first"})
	assert.Equal(t, 0, code, out)

	out, code = runCLI([]string{"-m", dir, "--force-exit", "up"}, "DATABASE_URL=sqlite://"+filepath.Join(dir, "app.db"))
	assert.Equal(t, 0, code, out)
	assert.Contains(t, out, "Migrations complete!")
}

func TestPanicIsReported(t *testing.T) {
	var out bytes.Buffer
	app := &App{
		Stdout:    &out,
		Stderr:    &out,
		LookupEnv: func(string) (string, bool) { panic("env exploded") },
		Exit:      func(int) { t.Fatal("exit must not be called") },
	}

	code := app.Run([]string{"up"})

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "env exploded")
	assert.Contains(t, out.String(), "goroutine")
}

func TestCreateThenRunByName(t *testing.T) {
	for _, tokens := range [][]string{{"add", "users"}, {"AddUsers"}, {"add.users"}, {"add users_", "table"}} {
		t.Run(strings.Join(tokens, " "), func(t *testing.T) {
			f := newFixture(t)

			require.Equal(t, 0, f.run(append([]string{"create"}, tokens...)...), f.out.String())
			code := f.run(append([]string{"up"}, tokens...)...)
			require.Equal(t, 0, code, f.out.String())
			assert.Contains(t, f.out.String(), "Migrations complete!")

			code = f.run(append([]string{"down"}, tokens...)...)
			require.Equal(t, 0, code, f.out.String())
			assert.Contains(t, f.out.String(), "reverted")
		})
	}
}

func TestCreateRejectsPathSeparators(t *testing.T) {
	f := newFixture(t)

	code := f.run("create", "../escape")

	assert.Equal(t, 1, code)
	assert.Contains(t, f.out.String(), "Create failed:")
	entries, err := os.ReadDir(filepath.Dir(f.dir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "escape")
	}
}
