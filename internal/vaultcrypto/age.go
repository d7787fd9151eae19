package vaultcrypto

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"filippo.io/age"

	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

//nolint:gochecknoglobals // Work factor is process-wide so tests can lower it
var (
	scryptMu         sync.RWMutex
	scryptWorkFactor int
)

// SetScryptWorkFactor sets the log2 scrypt work factor for new age envelopes.
// Zero restores the age default. Tests use a low value to stay fast.
func SetScryptWorkFactor(logN int) {
	scryptMu.Lock()
	defer scryptMu.Unlock()
	scryptWorkFactor = logN
}

func workFactor() int {
	scryptMu.RLock()
	defer scryptMu.RUnlock()
	return scryptWorkFactor
}

// AgeCipher seals vaults as age scrypt envelopes.
type AgeCipher struct{}

// Method returns MethodAge.
func (c *AgeCipher) Method() string {
	return MethodAge
}

// Encrypt seals plaintext using age with a password-based recipient.
func (c *AgeCipher) Encrypt(plaintext []byte, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if n := workFactor(); n > 0 {
		recipient.SetWorkFactor(n)
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return "", fmt.Errorf("initializing encryption: %w", err)
	}

	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing encrypted data: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}

	return encodeEnvelope(buf.Bytes()), nil
}

// Decrypt opens an age envelope.
func (c *AgeCipher) Decrypt(envelope, password string) ([]byte, error) {
	raw, err := decodeEnvelope(envelope)
	if err != nil {
		return nil, caelerr.ErrDecryptionFailed
	}
	return c.open(raw, password)
}

func (c *AgeCipher) open(raw []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, caelerr.ErrDecryptionFailed
	}

	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return nil, caelerr.ErrDecryptionFailed
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, caelerr.ErrDecryptionFailed
	}

	return plaintext, nil
}
