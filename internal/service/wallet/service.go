package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/shopspring/decimal"

	"github.com/mrz1836/caelus/internal/chain"
	"github.com/mrz1836/caelus/internal/metrics"
	"github.com/mrz1836/caelus/internal/wallet"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// Config contains dependencies for creating a wallet service.
type Config struct {
	Storage  VaultStorage
	Sessions SessionStore
	Cipher   EnvelopeCipher
	Ledger   chain.Client
	Logger   LogWriter
	Clock    clock.Clock
}

// Service is the application state facade. Operations are serialized; the
// accessors may be called concurrently with them.
type Service struct {
	op sync.Mutex

	storage  VaultStorage
	sessions SessionStore
	cipher   EnvelopeCipher
	ledger   chain.Client
	logger   LogWriter
	clock    clock.Clock

	mu       sync.RWMutex
	status   Status
	vault    wallet.Vault
	loading  bool
	lastErr  error
	snapshot *AccountSnapshot
	resetReq *ResetRequest
}

// NewService creates a new wallet service instance.
func NewService(cfg *Config) *Service {
	s := &Service{
		storage:  cfg.Storage,
		sessions: cfg.Sessions,
		cipher:   cfg.Cipher,
		ledger:   cfg.Ledger,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		vault:    wallet.NewVault(),
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.clock == nil {
		s.clock = clock.NewDefaultClock()
	}
	return s
}

// Status returns the lock state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsLoading reports whether an operation is in flight.
func (s *Service) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the error of the last failed operation, or nil after a
// successful one.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Vault returns a deep copy of the loaded vault.
func (s *Service) Vault() wallet.Vault {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vault.Clone()
}

// ActiveAccount returns the active account of the loaded vault.
func (s *Service) ActiveAccount() (wallet.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusUnlocked {
		return wallet.Account{}, false
	}
	return wallet.Active(s.vault)
}

// PublicKey returns the active account's address, or "" when locked.
func (s *Service) PublicKey() string {
	a, _ := s.ActiveAccount()
	return a.PublicKey
}

// SecretKey returns the active account's secret seed, or "" when locked or
// watch-only.
func (s *Service) SecretKey() string {
	a, _ := s.ActiveAccount()
	return a.SecretKey
}

// IsReadOnly reports whether the active account is watch-only.
func (s *Service) IsReadOnly() bool {
	a, _ := s.ActiveAccount()
	return a.IsReadOnly
}

// Balances returns the balances of the last RefreshAccount.
func (s *Service) Balances() []chain.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil
	}
	return append([]chain.Balance(nil), s.snapshot.Balances...)
}

// SpendableNative returns the spendable native balance of the last
// RefreshAccount.
func (s *Service) SpendableNative() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return decimal.Zero
	}
	return s.snapshot.Spendable
}

// HasStoredVault reports whether an encrypted vault is persisted.
func (s *Service) HasStoredVault() (bool, error) {
	return s.storage.HasStoredVault()
}

// Unlock decrypts the stored vault with password, upgrades a legacy vault
// shape, and starts a session. Any decryption failure is ErrInvalidPassword.
func (s *Service) Unlock(password string) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.begin(StatusUnlocking)
	v, err := s.decryptStored(password)
	if err != nil {
		return s.fail(err, StatusLocked)
	}

	if err := s.sessions.Save(password, activeIndex(v)); err != nil {
		return s.fail(fmt.Errorf("saving session: %w", err), StatusLocked)
	}

	s.logger.Debug("vault unlocked with %d accounts", v.Len())
	s.succeed(v, StatusUnlocked)
	return nil
}

// Restore unlocks from a live session without a password prompt. It
// returns false when there is no session.
func (s *Service) Restore() (bool, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if s.Status() == StatusUnlocked {
		return true, nil
	}

	sess, ok := s.sessions.Get()
	if !ok {
		return false, nil
	}

	s.begin(StatusUnlocking)
	v, err := s.decryptStored(sess.Password)
	if err != nil {
		if errors.Is(err, caelerr.ErrInvalidPassword) || errors.Is(err, caelerr.ErrNoVaultFound) {
			_ = s.sessions.Clear()
		}
		return false, s.fail(err, StatusLocked)
	}

	s.logger.Debug("vault restored from session")
	s.succeed(v, StatusUnlocked)
	return true, nil
}

// Lock clears the session and discards the in-memory vault. The stored
// vault is left untouched.
func (s *Service) Lock() error {
	s.op.Lock()
	defer s.op.Unlock()

	err := s.sessions.Clear()
	s.discard()
	s.logger.Debug("wallet locked")
	if err != nil {
		return s.fail(fmt.Errorf("clearing session: %w", err), StatusLocked)
	}
	return nil
}

// StatusInfo summarizes the wallet for display.
func (s *Service) StatusInfo() (*StatusInfo, error) {
	hasVault, err := s.storage.HasStoredVault()
	if err != nil {
		return nil, err
	}
	hasLegacy, err := s.storage.HasLegacy()
	if err != nil {
		return nil, err
	}

	info := &StatusInfo{
		Status:    s.Status().String(),
		HasVault:  hasVault,
		HasLegacy: hasLegacy,
	}
	if s.ledger != nil {
		info.Network = s.ledger.Network().String()
	}

	v := s.Vault()
	info.Accounts = v.Len()
	info.ActiveIndex = v.ActiveAccountIndex
	if a, ok := s.ActiveAccount(); ok {
		info.ActiveIndex = a.Index
		info.ActiveName = a.Name
		info.PublicKey = a.PublicKey
		info.ReadOnly = a.IsReadOnly
	}
	if sess, ok := s.sessions.Get(); ok {
		info.SessionRemaining = sess.Remaining(s.clock.Now())
	}
	return info, nil
}

// decryptStored loads, decrypts and upgrades the stored vault.
func (s *Service) decryptStored(password string) (wallet.Vault, error) {
	envelope, ok, err := s.storage.Load()
	if err != nil {
		return wallet.Vault{}, err
	}
	if !ok {
		return wallet.Vault{}, caelerr.WithSuggestion(caelerr.ErrNoVaultFound,
			"create a wallet with 'caelus create' or import one with 'caelus import'")
	}

	plaintext, err := s.cipher.Decrypt(envelope, password)
	if err != nil {
		s.logger.Warn("vault decryption failed")
		return wallet.Vault{}, caelerr.ErrInvalidPassword
	}
	defer clear(plaintext)

	v, migrated, err := wallet.Migrate(plaintext)
	if err != nil {
		return wallet.Vault{}, err
	}

	if migrated {
		if err := s.persist(v, password); err != nil {
			return wallet.Vault{}, fmt.Errorf("storing upgraded vault: %w", err)
		}
		if err := s.storage.ClearLegacy(); err != nil {
			return wallet.Vault{}, err
		}
		s.logger.Debug("upgraded legacy vault to the account list format")
	}
	return v, nil
}

// persist serializes, encrypts and stores v.
func (s *Service) persist(v wallet.Vault, password string) error {
	plaintext, err := wallet.Marshal(v)
	if err != nil {
		return fmt.Errorf("serializing vault: %w", err)
	}
	defer clear(plaintext)

	envelope, err := s.cipher.Encrypt(plaintext, password)
	if err != nil {
		return fmt.Errorf("encrypting vault: %w", err)
	}
	return s.storage.Store(envelope)
}

// requireSession returns the live session, hydrating the vault from
// storage when it is not loaded yet.
func (s *Service) requireSession() (string, error) {
	sess, ok := s.sessions.Get()
	if !ok {
		if s.Status() == StatusUnlocked {
			s.discard()
		}
		return "", caelerr.WithSuggestion(caelerr.ErrSessionRequired, "unlock the wallet with 'caelus unlock'")
	}

	if s.Status() != StatusUnlocked {
		v, err := s.decryptStored(sess.Password)
		if err != nil {
			return "", err
		}
		s.succeed(v, StatusUnlocked)
	}
	return sess.Password, nil
}

// commit persists v with password and makes it the loaded vault.
func (s *Service) commit(v wallet.Vault, password string) error {
	if err := s.persist(v, password); err != nil {
		return err
	}
	if err := s.sessions.SetActiveAccount(activeIndex(v)); err != nil {
		s.logger.Warn("mirroring active account to session: %v", err)
	}
	s.succeed(v, StatusUnlocked)
	return nil
}

func (s *Service) begin(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.loading = true
}

func (s *Service) succeed(v wallet.Vault, status Status) {
	metrics.Global.RecordWalletOp(nil)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !sameActive(s.vault, v) {
		s.snapshot = nil
	}
	s.vault = v
	s.status = status
	s.loading = false
	s.lastErr = nil
}

// fail records err and moves to status. It returns err.
func (s *Service) fail(err error, status Status) error {
	metrics.Global.RecordWalletOp(err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.loading = false
	s.lastErr = err
	if status == StatusLocked {
		s.vault = wallet.NewVault()
		s.snapshot = nil
	}
	return err
}

// record stores err as the last error without changing the state.
func (s *Service) record(err error) error {
	metrics.Global.RecordWalletOp(err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.lastErr = err
	return err
}

func (s *Service) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vault = wallet.NewVault()
	s.status = StatusLocked
	s.loading = false
	s.snapshot = nil
	s.lastErr = nil
}

func activeIndex(v wallet.Vault) int {
	if a, ok := wallet.Active(v); ok {
		return a.Index
	}
	return v.ActiveAccountIndex
}

func sameActive(a, b wallet.Vault) bool {
	x, okA := wallet.Active(a)
	y, okB := wallet.Active(b)
	return okA == okB && x.PublicKey == y.PublicKey
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
