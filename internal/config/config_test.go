package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/caelus/internal/chain"
	"github.com/mrz1836/caelus/internal/chain/stellar"
	"github.com/mrz1836/caelus/internal/config"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

func TestLoadSave_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := config.Defaults()
	cfg.Network.Name = "public"
	cfg.Network.HorizonURL = "https://horizon.example"
	cfg.Storage.Backend = "bolt"
	cfg.Output.Verbose = true

	require.NoError(t, config.Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  name: public\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.Network.Name)
	assert.Equal(t, config.DefaultSessionTTLMinutes, cfg.Session.TTLMinutes)
	assert.Equal(t, "pbkdf2-aes-gcm", cfg.Encryption.Method)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	cfg, err := config.LoadOrDefault(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("network: [unterminated"), 0o600))
	_, err = config.Load(bad)
	require.ErrorIs(t, err, caelerr.ErrConfigInvalid)
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "~/.caelus", cfg.Home)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "keyring", cfg.Session.Backend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, chain.Testnet, cfg.NetworkName())
	assert.Equal(t, stellar.DefaultTestnetURL, cfg.HorizonURL())
	assert.Equal(t, "auto", cfg.GetOutputFormat())
	assert.Equal(t, "error", cfg.GetLoggingLevel())
	require.NoError(t, cfg.Validate())
}

func TestHorizonURL(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Network.Name = "public"
	assert.Equal(t, stellar.DefaultPublicURL, cfg.HorizonURL())

	cfg.Network.HorizonURL = "http://localhost:8000"
	assert.Equal(t, "http://localhost:8000", cfg.HorizonURL())
}

func TestStoragePath(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Home = "/tmp/caelus-home"
	assert.Equal(t, "/tmp/caelus-home", cfg.StoragePath())

	cfg.Storage.Path = "/var/lib/caelus"
	assert.Equal(t, "/var/lib/caelus", cfg.StoragePath())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"unknown cipher", func(c *config.Config) { c.Encryption.Method = "rot13" }, "encryption.method"},
		{"memory storage", func(c *config.Config) { c.Storage.Backend = "memory" }, "storage.backend"},
		{"unknown session store", func(c *config.Config) { c.Session.Backend = "cookie" }, "session.backend"},
		{"zero ttl", func(c *config.Config) { c.Session.TTLMinutes = 0 }, "session.ttl_minutes"},
		{"unknown network", func(c *config.Config) { c.Network.Name = "futurenet" }, "network.name"},
		{"negative rate", func(c *config.Config) { c.Network.RequestsPerSecond = -1 }, "network.requests_per_second"},
		{"unknown format", func(c *config.Config) { c.Output.DefaultFormat = "xml" }, "output.default_format"},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, caelerr.ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_AgeAndBolt(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Encryption.Method = "age"
	cfg.Storage.Backend = "bolt"
	cfg.Session.Backend = "memory"
	cfg.Logging.Level = "warn"
	require.NoError(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".caelus"), config.ExpandPath("~/.caelus"))
	assert.Equal(t, "/abs/path", config.ExpandPath("/abs/path"))
}
