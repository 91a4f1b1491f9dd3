package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MANIFESTDB_MANIFEST", "MANIFESTDB_TEMP_DIR", "MANIFESTDB_MAX_READERS",
		"MANIFESTDB_POLL_INTERVAL", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Store.Manifest)
	assert.Equal(t, "", cfg.Store.TempDir)
	assert.Equal(t, 4, cfg.Store.MaxReaders)
	assert.Equal(t, 30*time.Second, cfg.Watch.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_OverrideDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("MANIFESTDB_MANIFEST", "/srv/db/cismapper_db.tsv")
	t.Setenv("MANIFESTDB_TEMP_DIR", dir)
	t.Setenv("MANIFESTDB_MAX_READERS", "8")
	t.Setenv("MANIFESTDB_POLL_INTERVAL", "5m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/db/cismapper_db.tsv", cfg.Store.Manifest)
	assert.Equal(t, dir, cfg.Store.TempDir)
	assert.Equal(t, 8, cfg.Store.MaxReaders)
	assert.Equal(t, 5*time.Minute, cfg.Watch.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"MANIFESTDB_MAX_READERS":   "zero",
		"MANIFESTDB_POLL_INTERVAL": "soon",
		"LOG_LEVEL":                "loud",
		"LOG_FORMAT":               "xml",
		"MANIFESTDB_TEMP_DIR":      "/does/not/exist",
	}
	for k, v := range tests {
		t.Run(k, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(k, v)
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("zero readers", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MANIFESTDB_MAX_READERS", "0")
		// "0" is a set value, not a missing one
		_, err := Load()
		assert.ErrorContains(t, err, "MANIFESTDB_MAX_READERS")
	})
}

func TestLoadWithDotenv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override set variables, so unset the ones it should fill.
	require.NoError(t, os.Unsetenv("MANIFESTDB_MANIFEST"))
	require.NoError(t, os.Unsetenv("MANIFESTDB_MAX_READERS"))

	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("MANIFESTDB_MANIFEST=/data/dbs.tsv\nMANIFESTDB_MAX_READERS=2\n"), 0o644))
	t.Cleanup(func() {
		_ = os.Unsetenv("MANIFESTDB_MANIFEST")
		_ = os.Unsetenv("MANIFESTDB_MAX_READERS")
	})

	cfg, err := LoadWithDotenv(env, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "/data/dbs.tsv", cfg.Store.Manifest)
	assert.Equal(t, 2, cfg.Store.MaxReaders)
}

func TestSetField_UnsupportedType(t *testing.T) {
	var v struct {
		Flag bool `env:"MANIFESTDB_TEST_FLAG" default:"true"`
	}
	err := loadStruct(reflect.ValueOf(&v).Elem())
	assert.ErrorContains(t, err, "unsupported config field type bool")
}
