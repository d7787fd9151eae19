package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// Envelope layout parameters for the PBKDF2 method.
const (
	DefaultIterations = 100000
	SaltSize          = 16
	NonceSize         = 12
	KeySize           = 32
	tagSize           = 16
)

// PBKDF2Cipher derives an AES-256 key with PBKDF2-HMAC-SHA256 and seals with
// AES-GCM. The zero value uses DefaultIterations.
type PBKDF2Cipher struct {
	// Iterations overrides DefaultIterations when positive.
	Iterations int
}

// Method returns MethodPBKDF2.
func (c *PBKDF2Cipher) Method() string {
	return MethodPBKDF2
}

// Encrypt seals plaintext under a key derived from password with a fresh
// salt and nonce.
func (c *PBKDF2Cipher) Encrypt(plaintext []byte, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt, err := RandomBytes(SaltSize)
	if err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	nonce, err := RandomBytes(NonceSize)
	if err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	gcm, key, err := c.aead(password, salt)
	if err != nil {
		return "", err
	}
	defer key.Destroy()

	out := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+tagSize)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)

	return encodeEnvelope(out), nil
}

// Decrypt opens an envelope produced by Encrypt.
func (c *PBKDF2Cipher) Decrypt(envelope, password string) ([]byte, error) {
	raw, err := decodeEnvelope(envelope)
	if err != nil {
		return nil, caelerr.ErrDecryptionFailed
	}
	return c.open(raw, password)
}

func (c *PBKDF2Cipher) open(raw []byte, password string) ([]byte, error) {
	if len(raw) < SaltSize+NonceSize+tagSize {
		return nil, caelerr.ErrDecryptionFailed
	}

	salt := raw[:SaltSize]
	nonce := raw[SaltSize : SaltSize+NonceSize]
	sealed := raw[SaltSize+NonceSize:]

	gcm, key, err := c.aead(password, salt)
	if err != nil {
		return nil, caelerr.ErrDecryptionFailed
	}
	defer key.Destroy()

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, caelerr.ErrDecryptionFailed
	}
	return plaintext, nil
}

// aead derives the key for salt and returns the GCM instance along with the
// key holder, which the caller must destroy.
func (c *PBKDF2Cipher) aead(password string, salt []byte) (cipher.AEAD, *SecureBytes, error) {
	derived := pbkdf2.Key([]byte(password), salt, c.iterations(), KeySize, sha256.New)
	key, err := SecureBytesFromSlice(derived)
	clear(derived)
	if err != nil {
		return nil, nil, fmt.Errorf("securing key: %w", err)
	}

	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		key.Destroy()
		return nil, nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		key.Destroy()
		return nil, nil, fmt.Errorf("creating GCM: %w", err)
	}

	return gcm, key, nil
}

func (c *PBKDF2Cipher) iterations() int {
	if c.Iterations > 0 {
		return c.Iterations
	}
	return DefaultIterations
}
