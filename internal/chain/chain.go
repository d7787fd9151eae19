// Package chain defines the ledger client contract the wallet consumes and
// the HTTP plumbing shared by ledger clients: rate limiting, retry with
// backoff, and decimal amount handling.
package chain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/network"
)

// Network identifies a Stellar network.
type Network string

// Supported networks.
const (
	Testnet Network = "testnet"
	Public  Network = "public"
)

// Network passphrases bind signatures to a network.
const (
	TestnetPassphrase = network.TestNetworkPassphrase
	PublicPassphrase  = network.PublicNetworkPassphrase
)

// NativeAssetCode is the display code of the native asset.
const NativeAssetCode = "XLM"

// Passphrase returns the network passphrase, or "" for an unknown network.
func (n Network) Passphrase() string {
	switch n {
	case Testnet:
		return TestnetPassphrase
	case Public:
		return PublicPassphrase
	default:
		return ""
	}
}

// IsValid returns true if the network is known.
func (n Network) IsValid() bool {
	return n.Passphrase() != ""
}

// String returns the network name.
func (n Network) String() string {
	return string(n)
}

// ParseNetwork parses a network name.
func ParseNetwork(s string) (Network, bool) {
	n := Network(s)
	return n, n.IsValid()
}

// Keypair is an encoded address and secret seed. SecretKey is empty for a
// watch-only address.
type Keypair struct {
	PublicKey string
	SecretKey string
}

// Balance is one asset balance of an account.
type Balance struct {
	AssetType   string          `json:"asset_type"`
	AssetCode   string          `json:"asset_code"`
	AssetIssuer string          `json:"asset_issuer,omitempty"`
	Amount      decimal.Decimal `json:"balance"`
}

// IsNative reports whether the balance is the native asset.
func (b Balance) IsNative() bool {
	return b.AssetType == "native"
}

// ReserveInputs are the account entries that raise its minimum balance.
type ReserveInputs struct {
	// Signers includes the master key.
	Signers     int `json:"signers"`
	Trustlines  int `json:"trustlines"`
	DataEntries int `json:"data_entries"`
}

// Subentries returns the number of reserve-bearing subentries.
func (r ReserveInputs) Subentries() int {
	extraSigners := r.Signers - 1
	if extraSigners < 0 {
		extraSigners = 0
	}
	return extraSigners + r.Trustlines + r.DataEntries
}

// AccountState is an account as loaded from the ledger.
type AccountState struct {
	AccountID string          `json:"account_id"`
	Sequence  int64           `json:"sequence"`
	Balances  []Balance       `json:"balances"`
	Reserve   ReserveInputs   `json:"reserve"`
	Native    decimal.Decimal `json:"native"`
}

// PaymentRequest is a native asset payment to submit.
type PaymentRequest struct {
	// SecretKey signs the payment; the source account is derived from it.
	SecretKey   string
	Destination string
	Amount      decimal.Decimal
	// Memo is an optional text memo of at most 28 bytes.
	Memo string
}

// PaymentResult is the ledger's answer to a submitted payment.
type PaymentResult struct {
	Hash       string          `json:"hash"`
	Ledger     int64           `json:"ledger"`
	Successful bool            `json:"successful"`
	FeeCharged decimal.Decimal `json:"fee_charged"`
}

// Transaction is one entry of an account's payment history.
type Transaction struct {
	ID         string          `json:"id"`
	Hash       string          `json:"hash"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Asset      string          `json:"asset"`
	From       string          `json:"from"`
	To         string          `json:"to"`
	Memo       string          `json:"memo,omitempty"`
	Fee        decimal.Decimal `json:"fee"`
	Successful bool            `json:"successful"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Direction returns "sent" when account paid out and "received" otherwise.
func (t Transaction) Direction(account string) string {
	if t.From == account {
		return "sent"
	}
	return "received"
}

// KeyDeriver creates and validates key material.
type KeyDeriver interface {
	// GenerateMnemonic returns a fresh 24 word recovery phrase.
	GenerateMnemonic() (string, error)

	// KeypairFromMnemonic derives the account keypair of a recovery phrase.
	KeypairFromMnemonic(phrase string) (Keypair, error)

	// KeypairFromSecret derives the address of an encoded secret seed.
	KeypairFromSecret(secret string) (Keypair, error)

	// IsValidPublicAddress checks an encoded address including its checksum.
	IsValidPublicAddress(address string) bool
}

// AccountReader loads account state from the ledger.
type AccountReader interface {
	LoadAccountState(ctx context.Context, publicKey string) (*AccountState, error)
}

// PaymentSubmitter builds, signs and submits payments.
type PaymentSubmitter interface {
	SubmitPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
}

// HistoryReader lists recent payments of an account, newest first.
type HistoryReader interface {
	FetchRecentTransactions(ctx context.Context, publicKey string, limit int) ([]Transaction, error)
}

// Funder funds new accounts on test networks.
type Funder interface {
	FundTestnet(ctx context.Context, publicKey string) error
}

// Client is the full ledger client the wallet depends on.
type Client interface {
	KeyDeriver
	AccountReader
	PaymentSubmitter
	HistoryReader
	Funder

	// Network returns the network the client talks to.
	Network() Network
}
