package session

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
)

// MemoryStore keeps sessions for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key.
func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// KeyringStore keeps sessions in the OS keychain so they survive between
// CLI invocations until expiry or lock.
type KeyringStore struct {
	keyring Keyring
	service string
}

// NewKeyringStore returns a store backed by kr under service.
// A nil kr uses the OS keyring.
func NewKeyringStore(kr Keyring, service string) *KeyringStore {
	if kr == nil {
		kr = NewOSKeyring()
	}
	if service == "" {
		service = ServiceName
	}
	return &KeyringStore{keyring: kr, service: service}
}

// Get returns the value for key.
func (k *KeyringStore) Get(key string) (string, error) {
	v, err := k.keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

// Set stores value under key.
func (k *KeyringStore) Set(key, value string) error {
	return k.keyring.Set(k.service, key, value)
}

// Delete removes key.
func (k *KeyringStore) Delete(key string) error {
	err := k.keyring.Delete(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
