package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/caelus/internal/chain"
	"github.com/mrz1836/caelus/internal/wallet"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// DefaultHistoryLimit is the number of transactions RecentTransactions
// returns when no limit is given.
const DefaultHistoryLimit = 20

// RefreshAccount loads the active account from the ledger and caches its
// balances. An unfunded account yields ErrAccountNotFound.
func (s *Service) RefreshAccount(ctx context.Context) (*AccountSnapshot, error) {
	a, err := s.activeAccount()
	if err != nil {
		return nil, err
	}

	state, err := s.ledger.LoadAccountState(ctx, a.PublicKey)
	if err != nil {
		if errors.Is(err, caelerr.ErrAccountNotFound) && s.ledger.Network() == chain.Testnet {
			err = caelerr.WithSuggestion(err, "fund it with 'caelus fund'")
		}
		return nil, s.record(err)
	}

	snap := &AccountSnapshot{
		PublicKey:      a.PublicKey,
		Balances:       state.Balances,
		Native:         state.Native,
		Spendable:      chain.SpendableNative(state),
		MinimumBalance: chain.MinimumBalance(state.Reserve),
	}

	s.mu.Lock()
	if active, ok := wallet.Active(s.vault); ok && active.PublicKey == a.PublicKey {
		s.snapshot = snap
	}
	s.lastErr = nil
	s.mu.Unlock()

	return snap, nil
}

// SendPayment pays amount of the native asset from the active account to
// destination. The amount must not exceed the spendable balance.
func (s *Service) SendPayment(ctx context.Context, destination, amount, memo string) (*chain.PaymentResult, error) {
	a, err := s.activeAccount()
	if err != nil {
		return nil, err
	}
	if a.IsReadOnly || a.SecretKey == "" {
		return nil, s.record(caelerr.WithSuggestion(caelerr.ErrReadOnlyAccount,
			"switch to an account with a secret key to send payments"))
	}

	destination = strings.TrimSpace(destination)
	if !s.ledger.IsValidPublicAddress(destination) {
		return nil, s.record(caelerr.WithDetails(caelerr.ErrInvalidAddress, map[string]string{"destination": destination}))
	}
	if destination == a.PublicKey {
		return nil, s.record(fmt.Errorf("%w: cannot send to the sending account", caelerr.ErrInvalidInput))
	}

	value, err := chain.ParseAmount(amount)
	if err != nil {
		return nil, s.record(err)
	}

	snap, err := s.RefreshAccount(ctx)
	if err != nil {
		return nil, err
	}
	fee := chain.FromStroops(chain.BaseFeeStroops)
	if value.GreaterThan(snap.Spendable.Sub(fee)) {
		return nil, s.record(caelerr.WithDetails(caelerr.ErrInvalidAmount, map[string]string{
			"requested": chain.FormatAmount(value),
			"spendable": chain.FormatAmount(snap.Spendable),
			"fee":       chain.FormatAmount(fee),
		}))
	}

	result, err := s.ledger.SubmitPayment(ctx, chain.PaymentRequest{
		SecretKey:   a.SecretKey,
		Destination: destination,
		Amount:      value,
		Memo:        memo,
	})
	if err != nil {
		return nil, s.record(err)
	}

	s.logger.Debug("payment %s of %s to %s", result.Hash, chain.FormatAmount(value), destination)
	s.invalidateSnapshot()
	return result, nil
}

// RecentTransactions lists the active account's latest payments, newest
// first. A non-positive limit means DefaultHistoryLimit.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]chain.Transaction, error) {
	a, err := s.activeAccount()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	txs, err := s.ledger.FetchRecentTransactions(ctx, a.PublicKey, limit)
	if err != nil {
		return nil, s.record(err)
	}
	return txs, nil
}

// FundTestnet asks the test network faucet to create the active account.
func (s *Service) FundTestnet(ctx context.Context) error {
	a, err := s.activeAccount()
	if err != nil {
		return err
	}
	if err := s.ledger.FundTestnet(ctx, a.PublicKey); err != nil {
		return s.record(err)
	}
	s.logger.Debug("funded %s on %s", a.PublicKey, s.ledger.Network())
	s.invalidateSnapshot()
	return nil
}

// activeAccount returns the active account, restoring the vault from a live
// session when it is not loaded.
func (s *Service) activeAccount() (wallet.Account, error) {
	if s.ledger == nil {
		return wallet.Account{}, s.record(fmt.Errorf("%w: no ledger client configured", caelerr.ErrGeneral))
	}

	if s.Status() != StatusUnlocked {
		restored, err := s.Restore()
		if err != nil {
			return wallet.Account{}, err
		}
		if !restored {
			return wallet.Account{}, s.record(caelerr.WithSuggestion(caelerr.ErrWalletLocked,
				"unlock the wallet with 'caelus unlock'"))
		}
	}

	a, ok := s.ActiveAccount()
	if !ok {
		return wallet.Account{}, s.record(caelerr.WithSuggestion(caelerr.ErrNoVaultFound,
			"add an account with 'caelus account add'"))
	}
	return a, nil
}

func (s *Service) invalidateSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
}
