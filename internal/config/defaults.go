package config

import (
	"github.com/mrz1836/caelus/internal/chain"
	"github.com/mrz1836/caelus/internal/chain/stellar"
	"github.com/mrz1836/caelus/internal/storage"
	"github.com/mrz1836/caelus/internal/vaultcrypto"
)

// DefaultSessionTTLMinutes keeps a session unlocked for 24 hours.
const DefaultSessionTTLMinutes = 24 * 60

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.caelus",
		Encryption: EncryptionConfig{
			Method: vaultcrypto.MethodPBKDF2,
		},
		Storage: StorageConfig{
			Backend: storage.BackendFile,
		},
		Session: SessionConfig{
			Backend:    SessionBackendKeyring,
			TTLMinutes: DefaultSessionTTLMinutes,
		},
		Network: NetworkConfig{
			Name:              string(chain.Testnet),
			FriendbotURL:      stellar.DefaultFriendbotURL,
			RequestsPerSecond: chain.DefaultRequestsPerSecond,
			Burst:             chain.DefaultBurst,
		},
		Output: OutputConfig{
			DefaultFormat: FormatAuto,
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.caelus/caelus.log",
		},
	}
}
