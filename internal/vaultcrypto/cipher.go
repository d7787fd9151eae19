// Package vaultcrypto provides password-based envelope encryption for the
// wallet vault.
//
// Two envelope formats are supported. The default is PBKDF2-HMAC-SHA256 key
// derivation with AES-256-GCM, laid out as base64(salt || nonce || ciphertext)
// and compatible with vaults written by the browser wallet. The alternative is
// an age scrypt envelope, base64 encoded. Decryption failures of any kind are
// reported as a single error so a caller cannot tell a wrong password from a
// damaged envelope.
package vaultcrypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// Encryption method identifiers as written in the config file.
const (
	MethodPBKDF2 = "pbkdf2-aes-gcm"
	MethodAge    = "age"
)

// ErrEmptyPassword is returned when encrypting with an empty password.
var ErrEmptyPassword = errors.New("password must not be empty")

// ErrUnknownMethod is returned by NewCipher for an unrecognized method.
var ErrUnknownMethod = errors.New("unknown encryption method")

// Cipher encrypts and decrypts vault envelopes.
type Cipher interface {
	// Encrypt seals plaintext under password and returns a text envelope.
	Encrypt(plaintext []byte, password string) (string, error)

	// Decrypt opens an envelope. Every failure is ErrDecryptionFailed.
	Decrypt(envelope, password string) ([]byte, error)

	// Method returns the method identifier used for new envelopes.
	Method() string
}

// ageHeader prefixes every binary age file.
var ageHeader = []byte("age-encryption.org/v1") //nolint:gochecknoglobals // constant byte prefix

// Selector encrypts with one configured cipher and decrypts envelopes of
// either known format.
type Selector struct {
	primary Cipher
	pbkdf2  *PBKDF2Cipher
	age     *AgeCipher
}

// NewCipher returns a Selector that writes envelopes with the given method.
// An empty method selects MethodPBKDF2.
func NewCipher(method string) (*Selector, error) {
	s := &Selector{
		pbkdf2: &PBKDF2Cipher{},
		age:    &AgeCipher{},
	}

	switch method {
	case "", MethodPBKDF2:
		s.primary = s.pbkdf2
	case MethodAge:
		s.primary = s.age
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	return s, nil
}

// Encrypt seals plaintext with the configured method.
func (s *Selector) Encrypt(plaintext []byte, password string) (string, error) {
	return s.primary.Encrypt(plaintext, password)
}

// Decrypt detects the envelope format and opens it.
func (s *Selector) Decrypt(envelope, password string) ([]byte, error) {
	raw, err := decodeEnvelope(envelope)
	if err != nil {
		return nil, caelerr.ErrDecryptionFailed
	}

	if bytes.HasPrefix(raw, ageHeader) {
		return s.age.open(raw, password)
	}
	return s.pbkdf2.open(raw, password)
}

// Method returns the method used for new envelopes.
func (s *Selector) Method() string {
	return s.primary.Method()
}

func encodeEnvelope(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

func decodeEnvelope(envelope string) ([]byte, error) {
	return base64.StdEncoding.Strict().DecodeString(envelope)
}
