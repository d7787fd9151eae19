package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/caelus/internal/chain"
)

// Status is the lock state of the facade.
type Status int

const (
	// StatusLocked means no vault is loaded.
	StatusLocked Status = iota
	// StatusUnlocking means a password was submitted and decryption is running.
	StatusUnlocking
	// StatusUnlocked means the vault is loaded and the active keys are available.
	StatusUnlocked
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	case StatusUnlocking:
		return "unlocking"
	case StatusUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// ResetWindow is how long a reset request stays confirmable.
const ResetWindow = 2 * time.Minute

// ResetRequest is the first phase of a full reset.
type ResetRequest struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Secret is the key material of one account.
type Secret struct {
	Index     int    `json:"index"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
	Mnemonic  string `json:"mnemonic,omitempty"`
}

// AccountSnapshot is the ledger view of the active account.
type AccountSnapshot struct {
	PublicKey      string          `json:"public_key"`
	Balances       []chain.Balance `json:"balances"`
	Native         decimal.Decimal `json:"native"`
	Spendable      decimal.Decimal `json:"spendable"`
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
}

// StatusInfo summarizes the facade for display.
type StatusInfo struct {
	Status           string        `json:"status"`
	HasVault         bool          `json:"has_vault"`
	HasLegacy        bool          `json:"has_legacy"`
	Accounts         int           `json:"accounts"`
	ActiveIndex      int           `json:"active_index"`
	ActiveName       string        `json:"active_name,omitempty"`
	PublicKey        string        `json:"public_key,omitempty"`
	ReadOnly         bool          `json:"read_only"`
	SessionRemaining time.Duration `json:"session_remaining_ns"`
	Network          string        `json:"network,omitempty"`
}
