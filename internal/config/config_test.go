package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	opts, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, DefaultDriver, opts.Driver)
	assert.Equal(t, DefaultWorkers, opts.Workers)
	assert.Equal(t, DefaultLogLevel, opts.LogLevel)
	assert.NotEmpty(t, opts.DataDir)
	assert.NoError(t, opts.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir":"/from/file","workers":2,"log_level":"info"}`), 0o644))

	t.Setenv("GLB_WORKERS", "8")

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/file", opts.DataDir)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, 8, opts.Workers, "environment overrides the file")
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"db_driver":"postgres","database_dsn":"postgres://x"}`), 0o644))
	t.Setenv("GLB_CONFIG", path)

	opts, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", opts.Driver)
	assert.Equal(t, "postgres://x", opts.DSN())
	assert.Empty(t, opts.DatabasePath())
}

func TestLoad_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config file")

	t.Setenv("GLB_WORKERS", "many")
	_, err = Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorContains(t, err, "GLB_WORKERS")
}

func TestOptions_Paths(t *testing.T) {
	opts := &Options{DataDir: "/data", Driver: "sqlite3", Workers: 1}

	assert.Equal(t, filepath.Join("/data", "glb_models"), opts.ModelDir())
	assert.Equal(t, filepath.Join("/data", "session.json"), opts.SessionPath())
	assert.Equal(t, filepath.Join("/data", "glb_model_database.db"), opts.DatabasePath())
	assert.Contains(t, opts.DSN(), "_busy_timeout")

	opts.DatabaseDSN = "file:/tmp/x.db?cache=shared"
	assert.Equal(t, "/tmp/x.db", opts.DatabasePath())

	opts.DatabaseDSN = ":memory:"
	assert.Empty(t, opts.DatabasePath())
}

func TestOptions_Validate(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"empty data dir", Options{Driver: "sqlite3", Workers: 1}},
		{"bad driver", Options{DataDir: "/d", Driver: "mysql", Workers: 1}},
		{"postgres without dsn", Options{DataDir: "/d", Driver: "postgres", Workers: 1}},
		{"zero workers", Options{DataDir: "/d", Driver: "sqlite3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.opts.Validate())
		})
	}
}
