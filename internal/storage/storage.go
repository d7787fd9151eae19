// Package storage persists the encrypted vault and reads the plaintext
// single-account keys left behind by the pre-vault wallet.
//
// Gateway is the only component that knows storage key names. Backends are
// plain string key/value stores.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

const (
	// dirPermissions is the permission mode for the storage directory.
	dirPermissions = 0o750

	// filePermissions is the permission mode for storage files.
	filePermissions = 0o600
)

var (
	// ErrUnknownBackend is returned by Open for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrClosed is returned when using a closed backend.
	ErrClosed = errors.New("storage backend is closed")
)

// Backend is a durable string key/value store.
type Backend interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Put stores value under key, replacing any previous value atomically.
	Put(key, value string) error

	// Delete removes keys in a single write. Missing keys are ignored.
	Delete(keys ...string) error

	// Close releases the backend.
	Close() error
}

// Purger is implemented by backends whose Delete can leave removed values
// readable on disk. Gateway calls Purge after clearing secrets.
type Purger interface {
	Purge() error
}

// Open creates the backend named kind rooted at dir and wraps it in a Gateway.
func Open(kind, dir string) (*Gateway, error) {
	var (
		backend Backend
		err     error
	)

	switch kind {
	case BackendMemory:
		backend = NewMemoryBackend()
	case BackendFile, "":
		if err = ensureDir(dir); err != nil {
			return nil, err
		}
		backend, err = NewFileBackend(filepath.Join(dir, "vault.json"))
	case BackendBolt:
		if err = ensureDir(dir); err != nil {
			return nil, err
		}
		backend, err = NewBoltBackend(filepath.Join(dir, "vault.db"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
	if err != nil {
		return nil, err
	}

	return NewGateway(backend), nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}
	return nil
}
