package chain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// Decimals is the number of fractional digits of a ledger amount. One unit
// of the smallest denomination is a stroop.
const Decimals = 7

// BaseFeeStroops is the fee charged per operation, in stroops.
const BaseFeeStroops = 100

// Reserve parameters for the minimum balance.
const (
	// BaseReserveEntries is the number of base reserves every account holds.
	BaseReserveEntries = 2
)

//nolint:gochecknoglobals // immutable decimal constants
var (
	// BaseReserve is the reserve per entry in the native asset.
	BaseReserve = decimal.RequireFromString("0.5")

	stroopsPerUnit = decimal.New(1, Decimals)
	maxStroops     = decimal.NewFromInt(1<<63 - 1)
)

// ParseAmount parses a positive decimal amount with at most seven
// fractional digits.
func ParseAmount(amount string) (decimal.Decimal, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return decimal.Zero, fmt.Errorf("%w: %q", caelerr.ErrInvalidAmount, amount)
	}
	if strings.ContainsAny(amount, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", caelerr.ErrInvalidAmount, amount)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", caelerr.ErrInvalidAmount, amount)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be greater than zero", caelerr.ErrInvalidAmount)
	}
	if !d.Equal(d.Truncate(Decimals)) {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimal places", caelerr.ErrInvalidAmount, Decimals)
	}
	if d.Mul(stroopsPerUnit).GreaterThan(maxStroops) {
		return decimal.Zero, fmt.Errorf("%w: amount too large", caelerr.ErrInvalidAmount)
	}
	return d, nil
}

// ToStroops converts an amount to stroops, truncating beyond seven decimals.
func ToStroops(amount decimal.Decimal) int64 {
	return amount.Mul(stroopsPerUnit).Truncate(0).IntPart()
}

// FromStroops converts stroops to an amount.
func FromStroops(stroops int64) decimal.Decimal {
	return decimal.New(stroops, -Decimals)
}

// FormatAmount renders an amount without trailing zeros.
func FormatAmount(amount decimal.Decimal) string {
	return amount.String()
}

// MinimumBalance returns the native balance an account must keep:
// (2 + subentries) base reserves.
func MinimumBalance(r ReserveInputs) decimal.Decimal {
	entries := int64(BaseReserveEntries + r.Subentries())
	return BaseReserve.Mul(decimal.NewFromInt(entries))
}

// SpendableNative returns the native balance above the minimum balance,
// never below zero.
func SpendableNative(state *AccountState) decimal.Decimal {
	if state == nil {
		return decimal.Zero
	}
	spendable := state.Native.Sub(MinimumBalance(state.Reserve))
	if spendable.IsNegative() {
		return decimal.Zero
	}
	return spendable
}

// NativeBalance returns the native asset balance from balances.
func NativeBalance(balances []Balance) decimal.Decimal {
	for _, b := range balances {
		if b.IsNative() {
			return b.Amount
		}
	}
	return decimal.Zero
}
