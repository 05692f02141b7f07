package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConfigDefaults(t *testing.T) {
	cfg, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "cgem.db", cfg.Database.Path)
	assert.Equal(t, "accounts.yaml", cfg.Accounts.File)
	assert.Equal(t, ",", cfg.CSV.Delimiter)
	assert.Equal(t, "imported", cfg.Import.DefaultTag)
}

func TestInitializeConfigEnvOverrides(t *testing.T) {
	t.Setenv("CGEM_LOG_LEVEL", "debug")
	t.Setenv("CGEM_LOG_FORMAT", "json")
	t.Setenv("CGEM_DATABASE_PATH", "/tmp/other.db")
	t.Setenv("CGEM_IMPORT_DEFAULT_TAG", "uncategorized")

	cfg, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, "uncategorized", cfg.Import.DefaultTag)
}

func TestInitializeConfigExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := "log:\n  level: warn\ndatabase:\n  path: /srv/cgem/ledger.db\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("CGEM_CONFIG", path)

	cfg, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/srv/cgem/ledger.db", cfg.Database.Path)
	// Untouched keys keep their defaults.
	assert.Equal(t, ",", cfg.CSV.Delimiter)
}

func TestInitializeConfigRejectsBadValues(t *testing.T) {
	t.Setenv("CGEM_LOG_LEVEL", "verbose")
	_, err := InitializeConfig()
	assert.Error(t, err)
}

func TestInitializeConfigRejectsBadFormat(t *testing.T) {
	t.Setenv("CGEM_LOG_FORMAT", "xml")
	_, err := InitializeConfig()
	assert.Error(t, err)
}

func TestInitializeConfigRejectsLongDelimiter(t *testing.T) {
	t.Setenv("CGEM_CSV_DELIMITER", ";;")
	_, err := InitializeConfig()
	assert.Error(t, err)
}

func TestDelimiterRune(t *testing.T) {
	cfg, err := InitializeConfig()
	require.NoError(t, err)
	assert.Equal(t, ',', cfg.DelimiterRune())
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CGEM_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnv("CGEM_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("CGEM_TEST_KEY_MISSING", "fallback"))
}
