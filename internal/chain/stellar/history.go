package stellar

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/protocols/horizon/operations"

	"github.com/mrz1836/caelus/internal/chain"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// Payment history limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// FetchRecentTransactions lists recent payments and account creations of
// publicKey, newest first.
func (c *Client) FetchRecentTransactions(ctx context.Context, publicKey string, limit int) ([]chain.Transaction, error) {
	if !IsValidPublicAddress(publicKey) {
		return nil, fmt.Errorf("%w: %s", caelerr.ErrInvalidAddress, publicKey)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	page, err := c.horizon(ctx, "payments").Payments(horizonclient.OperationRequest{
		ForAccount: publicKey,
		Order:      horizonclient.OrderDesc,
		Limit:      uint(limit), //nolint:gosec // bounded above
		Join:       "transactions",
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", caelerr.ErrAccountNotFound, publicKey)
		}
		return nil, horizonError("loading payments", err)
	}

	txs := make([]chain.Transaction, 0, len(page.Embedded.Records))
	for _, op := range page.Embedded.Records {
		txs = append(txs, toTransaction(op, publicKey))
	}
	return txs, nil
}

func toTransaction(op operations.Operation, account string) chain.Transaction {
	b := op.GetBase()
	tx := chain.Transaction{
		ID:         b.ID,
		Hash:       b.TransactionHash,
		Type:       b.Type,
		Asset:      chain.NativeAssetCode,
		Successful: b.TransactionSuccessful,
		CreatedAt:  b.LedgerCloseTime,
		Fee:        decimal.Zero,
		From:       b.SourceAccount,
		To:         account,
	}
	if tx.ID == "" {
		tx.ID = tx.Hash
	}

	var p *operations.Payment
	switch o := op.(type) {
	case operations.CreateAccount:
		tx.Amount = parseAmountOrZero(o.StartingBalance)
		tx.From = firstNonEmpty(o.Funder, b.SourceAccount)
		tx.To = firstNonEmpty(o.Account, account)
	case operations.Payment:
		p = &o
	case operations.PathPayment:
		p = &o.Payment
	case operations.PathPaymentStrictSend:
		p = &o.Payment
	case operations.AccountMerge:
		tx.From = firstNonEmpty(o.Account, b.SourceAccount)
		tx.To = firstNonEmpty(o.Into, account)
	}
	if p != nil {
		tx.Amount = parseAmountOrZero(p.Amount)
		tx.From = firstNonEmpty(p.From, b.SourceAccount)
		tx.To = firstNonEmpty(p.To, account)
		if p.Asset.Type != "native" && p.Asset.Code != "" {
			tx.Asset = p.Asset.Code
		}
	}

	if t := b.Transaction; t != nil {
		if t.MemoType == "text" || t.MemoType == "" {
			tx.Memo = t.Memo
		}
		tx.Fee = chain.FromStroops(t.FeeCharged)
	}

	return tx
}

func parseAmountOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
