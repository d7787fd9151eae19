// Package config provides configuration management for Caelus.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/caelus/internal/chain"
	"github.com/mrz1836/caelus/internal/chain/stellar"
	"github.com/mrz1836/caelus/internal/storage"
	"github.com/mrz1836/caelus/internal/vaultcrypto"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// Session store backends.
const (
	SessionBackendKeyring = "keyring"
	SessionBackendMemory  = "memory"
)

// Output formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Home       string           `yaml:"home"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Storage    StorageConfig    `yaml:"storage"`
	Session    SessionConfig    `yaml:"session"`
	Network    NetworkConfig    `yaml:"network"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EncryptionConfig selects the envelope cipher for new vault writes.
type EncryptionConfig struct {
	Method string `yaml:"method"`
}

// StorageConfig defines where the encrypted vault lives.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	// Path is the storage directory. Empty means the home directory.
	Path string `yaml:"path"`
}

// SessionConfig defines the unlocked session store.
type SessionConfig struct {
	Backend    string `yaml:"backend"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// NetworkConfig defines the Stellar network and Horizon settings.
type NetworkConfig struct {
	Name              string  `yaml:"name"`
	HorizonURL        string  `yaml:"horizon_url"`
	FriendbotURL      string  `yaml:"friendbot_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file on top of the defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", caelerr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to the defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return storage.WriteAtomic(path, data, 0o600)
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default caelus home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".caelus"
	}
	return filepath.Join(home, ".caelus")
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate rejects unknown enum values and out of range numbers.
func (c *Config) Validate() error {
	invalid := func(field, value string) error {
		return caelerr.WithDetails(caelerr.ErrConfigInvalid, map[string]string{field: value})
	}

	switch c.Encryption.Method {
	case vaultcrypto.MethodPBKDF2, vaultcrypto.MethodAge:
	default:
		return invalid("encryption.method", c.Encryption.Method)
	}

	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendBolt:
	default:
		return invalid("storage.backend", c.Storage.Backend)
	}

	switch c.Session.Backend {
	case SessionBackendKeyring, SessionBackendMemory:
	default:
		return invalid("session.backend", c.Session.Backend)
	}
	if c.Session.TTLMinutes < 1 {
		return invalid("session.ttl_minutes", fmt.Sprint(c.Session.TTLMinutes))
	}

	if _, ok := chain.ParseNetwork(c.Network.Name); !ok {
		return invalid("network.name", c.Network.Name)
	}
	if c.Network.RequestsPerSecond < 0 {
		return invalid("network.requests_per_second", fmt.Sprint(c.Network.RequestsPerSecond))
	}

	switch c.Output.DefaultFormat {
	case FormatAuto, FormatText, FormatJSON:
	default:
		return invalid("output.default_format", c.Output.DefaultFormat)
	}

	switch c.Logging.Level {
	case "off", "error", "warn", "debug":
	default:
		return invalid("logging.level", c.Logging.Level)
	}

	return nil
}

// StoragePath returns the storage directory, defaulting to home.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return ExpandPath(c.Storage.Path)
	}
	return ExpandPath(c.Home)
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// NetworkName returns the configured network.
func (c *Config) NetworkName() chain.Network {
	return chain.Network(c.Network.Name)
}

// HorizonURL returns the Horizon URL, defaulting per network.
func (c *Config) HorizonURL() string {
	if c.Network.HorizonURL != "" {
		return c.Network.HorizonURL
	}
	if c.NetworkName() == chain.Public {
		return stellar.DefaultPublicURL
	}
	return stellar.DefaultTestnetURL
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return ExpandPath(c.Logging.File)
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}
