package wallet

import (
	"fmt"
	"strings"

	"github.com/mrz1836/caelus/internal/wallet"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// MinPasswordLength is the shortest accepted vault password.
const MinPasswordLength = 8

// ValidatePassword checks the password policy for new vaults.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", caelerr.ErrInvalidInput, MinPasswordLength)
	}
	return nil
}

// CreateFirstAccount creates a vault holding one account, encrypts it with
// password and starts a session. It refuses to overwrite a stored vault.
func (s *Service) CreateFirstAccount(fields wallet.AccountFields, password string) (wallet.Account, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if err := ValidatePassword(password); err != nil {
		return wallet.Account{}, s.record(err)
	}
	if err := validateFields(fields); err != nil {
		return wallet.Account{}, s.record(err)
	}

	exists, err := s.storage.HasStoredVault()
	if err != nil {
		return wallet.Account{}, s.record(err)
	}
	if exists {
		return wallet.Account{}, s.record(caelerr.WithSuggestion(caelerr.ErrVaultExists,
			"unlock it and use 'caelus account add', or run 'caelus reset' first"))
	}

	v := wallet.NewVault()
	if fields.Name == "" {
		fields.Name = wallet.DefaultAccountName(v)
	}
	v = wallet.AddAccount(v, fields)

	if err := s.persist(v, password); err != nil {
		return wallet.Account{}, s.record(err)
	}
	if err := s.sessions.Save(password, v.ActiveAccountIndex); err != nil {
		return wallet.Account{}, s.record(fmt.Errorf("saving session: %w", err))
	}

	s.succeed(v, StatusUnlocked)
	a, _ := wallet.Active(v)
	s.logger.Debug("created vault with account %d (%s)", a.Index, a.PublicKey)
	return a, nil
}

// AddAccount appends an account to the unlocked vault and makes it active.
// It needs a live session to re-encrypt the vault.
func (s *Service) AddAccount(fields wallet.AccountFields) (wallet.Account, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if err := validateFields(fields); err != nil {
		return wallet.Account{}, s.record(err)
	}

	password, err := s.requireSession()
	if err != nil {
		return wallet.Account{}, s.record(err)
	}

	v := s.Vault()
	for _, existing := range v.Accounts {
		if existing.PublicKey == fields.PublicKey {
			s.logger.Warn("account %s is already in the vault as %d", fields.PublicKey, existing.Index)
		}
	}
	if fields.Name == "" {
		fields.Name = wallet.DefaultAccountName(v)
	}
	v = wallet.AddAccount(v, fields)

	if err := s.commit(v, password); err != nil {
		return wallet.Account{}, s.record(err)
	}

	a, _ := wallet.Active(v)
	s.logger.Debug("added account %d (%s)", a.Index, a.PublicKey)
	return a, nil
}

// SwitchAccount makes index the active account and persists the choice.
func (s *Service) SwitchAccount(index int) error {
	return s.mutate(index, "switch", func(v wallet.Vault) wallet.Vault {
		return wallet.SwitchActive(v, index)
	})
}

// RemoveAccount deletes an account. Removing the active account activates
// the first remaining one.
func (s *Service) RemoveAccount(index int) error {
	return s.mutate(index, "remove", func(v wallet.Vault) wallet.Vault {
		return wallet.RemoveAccount(v, index)
	})
}

// RenameAccount changes an account's display name.
func (s *Service) RenameAccount(index int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.record(fmt.Errorf("%w: account name must not be empty", caelerr.ErrInvalidInput))
	}
	return s.mutate(index, "rename", func(v wallet.Vault) wallet.Vault {
		return wallet.UpdateAccount(v, index, wallet.AccountUpdate{Name: &name})
	})
}

// RevealSecret returns the key material of an account. It needs a live
// session even when the vault is loaded.
func (s *Service) RevealSecret(index int) (*Secret, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if _, err := s.requireSession(); err != nil {
		return nil, s.record(err)
	}

	a, ok := s.Vault().Find(index)
	if !ok {
		return nil, s.record(s.invalidReference("reveal", index))
	}
	if a.IsReadOnly {
		return nil, s.record(caelerr.WithSuggestion(caelerr.ErrReadOnlyAccount, "watch-only accounts hold no secret key"))
	}

	s.logger.Debug("revealed secret of account %d", a.Index)
	return &Secret{
		Index:     a.Index,
		PublicKey: a.PublicKey,
		SecretKey: a.SecretKey,
		Mnemonic:  a.Mnemonic,
	}, nil
}

// mutate applies fn to the vault after checking the session and index.
func (s *Service) mutate(index int, op string, fn func(wallet.Vault) wallet.Vault) error {
	s.op.Lock()
	defer s.op.Unlock()

	password, err := s.requireSession()
	if err != nil {
		return s.record(err)
	}

	v := s.Vault()
	if !v.Contains(index) {
		return s.record(s.invalidReference(op, index))
	}

	if err := s.commit(fn(v), password); err != nil {
		return s.record(err)
	}
	s.logger.Debug("%s account %d", op, index)
	return nil
}

func (s *Service) invalidReference(op string, index int) error {
	s.logger.Warn("%s: no account with index %d", op, index)
	return caelerr.WithDetails(caelerr.ErrInvalidAccountReference, map[string]string{"index": fmt.Sprint(index)})
}

func validateFields(f wallet.AccountFields) error {
	if strings.TrimSpace(f.PublicKey) == "" {
		return fmt.Errorf("%w: account has no public key", caelerr.ErrInvalidKeyMaterial)
	}
	return nil
}
