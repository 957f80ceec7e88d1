package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cfg.json", `{"schema":"app","port":5433,"check-order":false}`)

	v, err := LoadFile(path)
	require.NoError(t, err)

	s := Resolve(Sources{Flags: DefaultFlags(), File: v})
	assert.Equal(t, "app", s.Schema)
	assert.False(t, s.CheckOrder)
	assert.Equal(t, "postgres://localhost:5433/", s.DatabaseURL)
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cfg.yaml", `
url: postgres://yaml/db
migrations-dir: sql
type-shorthands:
  id:
    type: serial
    primaryKey: true
`)

	v, err := LoadFile(path)
	require.NoError(t, err)

	s := Resolve(Sources{Flags: DefaultFlags(), File: v})
	assert.Equal(t, "postgres://yaml/db", s.DatabaseURL)
	assert.Equal(t, "sql", s.MigrationsDir)
	assert.Equal(t, TypeShorthand{Type: "serial", PrimaryKey: true}, s.TypeShorthands["id"])
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile(writeFile(t, dir, "broken.json", `{"schema":`))
	require.Error(t, err)

	v, err := LoadFile(writeFile(t, dir, "empty.json", "  \n"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestLoadSectionLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", `
db:
  host: default-host
  name: app
  schema: public
other:
  key: value
`)
	writeFile(t, dir, "production.json", `{"db":{"host":"prod-host","user":"deploy"}}`)
	writeFile(t, dir, "local.yml", `
db:
  schema: local_schema
`)

	section, err := LoadSection(dir, "production", "db")
	require.NoError(t, err)

	s := Resolve(Sources{Flags: DefaultFlags(), Section: section})
	assert.Equal(t, "postgres://deploy@prod-host:5432/app", s.DatabaseURL)
	assert.Equal(t, "local_schema", s.Schema)

	nested, err := LoadSection(dir, "production", "other.key")
	require.NoError(t, err)
	assert.Equal(t, "value", nested)
}

func TestLoadSectionAbsent(t *testing.T) {
	section, err := LoadSection(filepath.Join(t.TempDir(), "nope"), "development", "db")
	require.NoError(t, err)
	assert.Nil(t, section)

	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", "other: 1\n")
	section, err = LoadSection(dir, "development", "db")
	require.NoError(t, err)
	assert.Nil(t, section)
}

func TestLoadSectionRejectsScalarFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", "just a string\n")
	_, err := LoadSection(dir, "development", "db")
	require.Error(t, err)
}

func TestSectionLocation(t *testing.T) {
	dir, env := SectionLocation(nil)
	assert.Equal(t, DefaultConfigDir, dir)
	assert.Equal(t, DefaultAppEnv, env)

	dir, env = SectionLocation(envOf(map[string]string{ConfigDirEnv: "/etc/app", AppEnvVar: "test"}))
	assert.Equal(t, "/etc/app", dir)
	assert.Equal(t, "test", env)
}
