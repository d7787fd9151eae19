package stellar

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	hProtocol "github.com/stellar/go/protocols/horizon"

	"github.com/mrz1836/caelus/internal/chain"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// LoadAccountState loads balances, sequence and reserve inputs of an account.
// An unfunded account returns ErrAccountNotFound.
func (c *Client) LoadAccountState(ctx context.Context, publicKey string) (*chain.AccountState, error) {
	if !IsValidPublicAddress(publicKey) {
		return nil, fmt.Errorf("%w: %s", caelerr.ErrInvalidAddress, publicKey)
	}

	account, err := c.horizon(ctx, "accounts").AccountDetail(horizonclient.AccountRequest{AccountID: publicKey})
	if err != nil {
		if isNotFound(err) {
			return nil, caelerr.WithSuggestion(
				fmt.Errorf("%w: %s", caelerr.ErrAccountNotFound, publicKey),
				"the account has not been funded yet",
			)
		}
		return nil, horizonError("loading account", err)
	}
	return accountState(&account)
}

func accountState(account *hProtocol.Account) (*chain.AccountState, error) {
	state := &chain.AccountState{
		AccountID: account.AccountID,
		Sequence:  account.Sequence,
		Balances:  make([]chain.Balance, 0, len(account.Balances)),
		Reserve: chain.ReserveInputs{
			Signers:     len(account.Signers),
			DataEntries: len(account.Data),
		},
	}

	for _, b := range account.Balances {
		amount, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return nil, fmt.Errorf("parsing balance %q: %w", b.Balance, err)
		}
		bal := chain.Balance{
			AssetType:   b.Type,
			AssetCode:   b.Code,
			AssetIssuer: b.Issuer,
			Amount:      amount,
		}
		if bal.IsNative() {
			bal.AssetCode = chain.NativeAssetCode
		} else {
			state.Reserve.Trustlines++
		}
		state.Balances = append(state.Balances, bal)
	}
	state.Native = chain.NativeBalance(state.Balances)

	return state, nil
}
