package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("LIBRARY_DB_PATH", "")
	t.Setenv("LIBRARY_LOG_LEVEL", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, "library.db", cfg.DBPath)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LIBRARY_DB_PATH", "/tmp/branch.db")
	t.Setenv("LIBRARY_LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, "/tmp/branch.db", cfg.DBPath)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestInvalidLogLevel(t *testing.T) {
	t.Setenv("LIBRARY_LOG_LEVEL", "verbose")

	_, err := LoadFromEnv()
	require.Error(t, err)
}
