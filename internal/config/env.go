package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHome             = "CAELUS_HOME"
	EnvNetwork          = "CAELUS_NETWORK"
	EnvHorizonURL       = "CAELUS_HORIZON_URL"
	EnvLogLevel         = "CAELUS_LOG_LEVEL"
	EnvOutputFormat     = "CAELUS_OUTPUT_FORMAT"
	EnvVerbose          = "CAELUS_VERBOSE"
	EnvSessionBackend   = "CAELUS_SESSION_BACKEND"
	EnvSessionTTL       = "CAELUS_SESSION_TTL"
	EnvStorageBackend   = "CAELUS_STORAGE_BACKEND"
	EnvEncryptionMethod = "CAELUS_ENCRYPTION_METHOD"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Network.Name = strings.ToLower(v)
	}

	if v := os.Getenv(EnvHorizonURL); v != "" {
		cfg.Network.HorizonURL = CleanURL(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvSessionBackend); v != "" {
		cfg.Session.Backend = strings.ToLower(v)
	}

	// CAELUS_SESSION_TTL sets session lifetime in minutes
	if v := os.Getenv(EnvSessionTTL); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil && ttl > 0 {
			cfg.Session.TTLMinutes = ttl
		}
	}

	if v := os.Getenv(EnvStorageBackend); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}

	if v := os.Getenv(EnvEncryptionMethod); v != "" {
		cfg.Encryption.Method = strings.ToLower(v)
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// CleanURL trims copy-paste whitespace and trailing slashes from a URL.
func CleanURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}
