package wallet

import (
	"fmt"

	"github.com/mrz1836/caelus/internal/wallet"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// HasLegacyWallet reports whether unencrypted pre-vault keys are stored.
func (s *Service) HasLegacyWallet() (bool, error) {
	return s.storage.HasLegacy()
}

// AdoptLegacyWallet encrypts the pre-vault keys into a new vault under
// password, removes the plaintext keys and starts a session.
func (s *Service) AdoptLegacyWallet(password string) (wallet.Account, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if err := ValidatePassword(password); err != nil {
		return wallet.Account{}, s.record(err)
	}

	exists, err := s.storage.HasStoredVault()
	if err != nil {
		return wallet.Account{}, s.record(err)
	}
	if exists {
		return wallet.Account{}, s.record(caelerr.WithSuggestion(caelerr.ErrVaultExists,
			"an encrypted vault already exists; unlock it instead"))
	}

	rec, ok, err := s.storage.LoadLegacy()
	if err != nil {
		return wallet.Account{}, s.record(err)
	}
	if !ok {
		return wallet.Account{}, s.record(fmt.Errorf("%w: no legacy wallet keys stored", caelerr.ErrNoVaultFound))
	}

	v := wallet.FromLegacy(rec)
	if err := s.persist(v, password); err != nil {
		return wallet.Account{}, s.record(err)
	}
	if err := s.storage.ClearLegacy(); err != nil {
		return wallet.Account{}, s.record(err)
	}
	if err := s.sessions.Save(password, v.ActiveAccountIndex); err != nil {
		return wallet.Account{}, s.record(fmt.Errorf("saving session: %w", err))
	}

	s.succeed(v, StatusUnlocked)
	a, _ := wallet.Active(v)
	s.logger.Debug("adopted legacy wallet %s", a.PublicKey)
	return a, nil
}
