// Package session keeps the unlocked wallet password in a short-lived,
// volatile store so the user is not prompted again until the session
// expires or they lock the wallet.
//
// Expiry is enforced on read: an expired session is deleted the first time
// it is looked up.
package session

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	// DefaultTTL is the default session duration.
	DefaultTTL = 24 * time.Hour

	// MinTTL is the shortest session a Manager accepts.
	MinTTL = time.Minute

	// Key is the store key the session is saved under.
	Key = "caelus_session"

	// ServiceName is the keyring service name for caelus sessions.
	ServiceName = "caelus-session"
)

var (
	// ErrNotFound indicates no session exists in the store.
	ErrNotFound = errors.New("session not found")

	// ErrEmptyPassword is returned when saving a session without a password.
	ErrEmptyPassword = errors.New("session password must not be empty")
)

// Session is an unlocked wallet's volatile credentials.
type Session struct {
	// Password decrypts the stored vault.
	Password string

	// ExpiresAt is when the session stops being returned.
	ExpiresAt time.Time

	// ActiveAccountIndex mirrors the vault's active account.
	ActiveAccountIndex int
}

// sessionJSON is the stored layout. expiresAt is Unix milliseconds.
type sessionJSON struct {
	Password           string `json:"password"`
	ExpiresAt          int64  `json:"expiresAt"`
	ActiveAccountIndex int    `json:"activeAccountIndex"`
}

// MarshalJSON writes the stored layout.
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionJSON{
		Password:           s.Password,
		ExpiresAt:          s.ExpiresAt.UnixMilli(),
		ActiveAccountIndex: s.ActiveAccountIndex,
	})
}

// UnmarshalJSON reads the stored layout.
func (s *Session) UnmarshalJSON(data []byte) error {
	var in sessionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Session{
		Password:           in.Password,
		ExpiresAt:          time.UnixMilli(in.ExpiresAt),
		ActiveAccountIndex: in.ActiveAccountIndex,
	}
	return nil
}

// Expired reports whether now is past ExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Remaining returns the time left before expiry, or zero once expired.
func (s *Session) Remaining(now time.Time) time.Duration {
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Store is a volatile string key/value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)

	// Set stores value under key.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Keyring defines the interface for secure OS secret storage.
// This abstraction allows for testing with mock implementations.
type Keyring interface {
	// Set stores a secret in the keyring.
	Set(service, user, password string) error

	// Get retrieves a secret from the keyring.
	Get(service, user string) (string, error)

	// Delete removes a secret from the keyring.
	Delete(service, user string) error
}
