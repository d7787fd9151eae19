package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/caelus/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected config.LogLevel
	}{
		{"off", config.LogLevelOff},
		{"none", config.LogLevelOff},
		{"error", config.LogLevelError},
		{"WARN", config.LogLevelWarn},
		{"warning", config.LogLevelWarn},
		{" debug ", config.LogLevelDebug},
		{"bogus", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
	assert.Equal(t, "warn", config.LogLevelWarn.String())
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	return string(data)
}

func TestLogger_WritesAtLevel(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "caelus.log")

	logger, err := config.NewLogger(config.LogLevelWarn, path)
	require.NoError(t, err)

	logger.Debug("hidden %d", 1)
	logger.Warn("switched to account %d", 2)
	logger.Error("unlock failed: %s", "decryption failed")
	require.NoError(t, logger.Close())

	content := readLog(t, path)
	assert.NotContains(t, content, "hidden")
	assert.Contains(t, content, "level=warning")
	assert.Contains(t, content, `msg="switched to account 2"`)
	assert.Contains(t, content, "level=error")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLogger_SetLevel(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "caelus.log")

	logger, err := config.NewLogger(config.LogLevelError, path)
	require.NoError(t, err)
	logger.Debug("first")
	logger.SetLevel(config.LogLevelDebug)
	assert.Equal(t, config.LogLevelDebug, logger.Level())
	logger.Debug("second")
	require.NoError(t, logger.Close())

	content := readLog(t, path)
	assert.NotContains(t, content, "first")
	assert.Contains(t, content, "second")
}

func TestLogger_OffAndNull(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "off.log")

	logger, err := config.NewLogger(config.LogLevelOff, path)
	require.NoError(t, err)
	logger.Error("nothing")
	require.NoError(t, logger.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	null := config.NullLogger()
	null.Warn("discarded")
	assert.Equal(t, config.LogLevelOff, null.Level())
	assert.NoError(t, null.Close())
}

func TestLogger_ClosedIsSilent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "caelus.log")

	logger, err := config.NewLogger(config.LogLevelDebug, path)
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	logger.Error("after close")
	assert.NotContains(t, readLog(t, path), "after close")
}
