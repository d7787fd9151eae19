package vaultcrypto

import (
	"crypto/rand"
	"io"
)

// Reader is the cryptographically secure random number generator used for
// salts and nonces. Tests may replace it.
//
//nolint:gochecknoglobals // Package-level RNG is required for testability
var Reader io.Reader = rand.Reader

// RandomBytes generates n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
