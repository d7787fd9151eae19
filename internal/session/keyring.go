package session

import (
	"github.com/zalando/go-keyring"
)

// OSKeyring implements the Keyring interface using the OS keychain.
type OSKeyring struct{}

// NewOSKeyring creates a new OS keyring wrapper.
func NewOSKeyring() *OSKeyring {
	return &OSKeyring{}
}

// Set stores a secret in the OS keyring.
func (k *OSKeyring) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}

// Get retrieves a secret from the OS keyring.
func (k *OSKeyring) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}

// Delete removes a secret from the OS keyring.
func (k *OSKeyring) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// KeyringUsable reports whether the OS keyring accepts a set, get and delete
// round trip. Callers fall back to a MemoryStore when it does not.
func KeyringUsable(kr Keyring) bool {
	const (
		checkService = "caelus-keyring-check"
		checkUser    = "check"
		checkValue   = "ok"
	)

	if kr == nil {
		kr = NewOSKeyring()
	}

	if err := kr.Set(checkService, checkUser, checkValue); err != nil {
		return false
	}

	val, err := kr.Get(checkService, checkUser)
	_ = kr.Delete(checkService, checkUser)

	return err == nil && val == checkValue
}
