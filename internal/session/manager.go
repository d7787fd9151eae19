package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// Manager saves, reads and clears the wallet session.
type Manager struct {
	mu    sync.Mutex
	store Store
	clock clock.Clock
	ttl   time.Duration
}

// NewManager returns a Manager over store. A nil clk uses the wall clock and
// a ttl below MinTTL uses DefaultTTL.
func NewManager(store Store, clk clock.Clock, ttl time.Duration) *Manager {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	if ttl < MinTTL {
		ttl = DefaultTTL
	}
	return &Manager{store: store, clock: clk, ttl: ttl}
}

// TTL returns the lifetime given to new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.clock.Now()
}

// Save starts a session expiring TTL from now.
func (m *Manager) Save(password string, activeIndex int) error {
	if password == "" {
		return ErrEmptyPassword
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.write(Session{
		Password:           password,
		ExpiresAt:          m.clock.Now().Add(m.ttl),
		ActiveAccountIndex: activeIndex,
	})
}

// Get returns the live session. It never fails: a missing, unreadable or
// expired session reports false, and an expired or unreadable one is deleted.
func (m *Manager) Get() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live()
}

// SetActiveAccount updates the mirrored active account index without
// changing the expiry.
func (m *Manager) SetActiveAccount(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.live()
	if !ok {
		return ErrNotFound
	}
	s.ActiveAccountIndex = index
	return m.write(*s)
}

// Clear removes the session.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(Key); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (m *Manager) live() (*Session, bool) {
	raw, err := m.store.Get(Key)
	if err != nil || raw == "" {
		return nil, false
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s.Password == "" {
		_ = m.store.Delete(Key)
		return nil, false
	}

	if s.Expired(m.clock.Now()) {
		_ = m.store.Delete(Key)
		return nil, false
	}

	return &s, true
}

func (m *Manager) write(s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := m.store.Set(Key, string(data)); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}
