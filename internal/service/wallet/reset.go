package wallet

import (
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"

	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// RequestReset starts a full reset. The returned token must be passed to
// ConfirmReset within ResetWindow.
func (s *Service) RequestReset() ResetRequest {
	s.op.Lock()
	defer s.op.Unlock()

	req := ResetRequest{
		Token:     uuid.NewString(),
		ExpiresAt: s.clock.Now().Add(ResetWindow),
	}

	s.mu.Lock()
	s.resetReq = &req
	s.mu.Unlock()

	s.logger.Warn("full wallet reset requested")
	return req
}

// ConfirmReset irreversibly removes the stored vault, any legacy keys and
// the session, then locks the facade.
func (s *Service) ConfirmReset(token string) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	req := s.resetReq
	s.resetReq = nil
	s.mu.Unlock()

	if req == nil || s.clock.Now().After(req.ExpiresAt) ||
		subtle.ConstantTimeCompare([]byte(req.Token), []byte(token)) != 1 {
		return s.record(caelerr.WithSuggestion(caelerr.ErrResetNotRequested, "request a new reset and confirm it within two minutes"))
	}

	if err := s.storage.Clear(); err != nil {
		return s.record(err)
	}
	sessionErr := s.sessions.Clear()
	s.discard()

	if sessionErr != nil {
		return s.record(fmt.Errorf("clearing session: %w", sessionErr))
	}
	s.logger.Warn("wallet reset: stored vault and session cleared")
	return nil
}
