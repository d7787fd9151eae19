// Package wallet is the application state facade: it owns the unlocked
// vault, drives the cipher, storage and session collaborators, and exposes
// the active account to the UI layer.
package wallet

import (
	"time"

	"github.com/mrz1836/caelus/internal/session"
	"github.com/mrz1836/caelus/internal/wallet"
)

// VaultStorage persists the encrypted vault and reads pre-vault keys.
type VaultStorage interface {
	HasStoredVault() (bool, error)
	Store(envelope string) error
	Load() (string, bool, error)
	Clear() error

	HasLegacy() (bool, error)
	LoadLegacy() (wallet.LegacyRecord, bool, error)
	ClearLegacy() error
}

// SessionStore keeps the password of an unlocked wallet until expiry.
type SessionStore interface {
	Save(password string, activeIndex int) error
	Get() (*session.Session, bool)
	SetActiveAccount(index int) error
	Clear() error
	TTL() time.Duration
}

// EnvelopeCipher encrypts and decrypts the serialized vault.
type EnvelopeCipher interface {
	Encrypt(plaintext []byte, password string) (string, error)
	Decrypt(envelope, password string) ([]byte, error)
}

// LogWriter provides logging capabilities. Callers never pass secrets.
type LogWriter interface {
	Debug(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
