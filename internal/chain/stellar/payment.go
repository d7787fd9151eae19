package stellar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/txnbuild"

	"github.com/mrz1836/caelus/internal/chain"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

const (
	// BaseFee is the fee per operation in stroops.
	BaseFee = chain.BaseFeeStroops

	// TxTimeout bounds how long a signed payment stays valid.
	TxTimeout = 30 * time.Second

	// maxMemoTextBytes is the longest text memo a transaction can carry.
	maxMemoTextBytes = 28
)

// SubmitPayment sends a native asset payment signed by req.SecretKey.
func (c *Client) SubmitPayment(ctx context.Context, req chain.PaymentRequest) (*chain.PaymentResult, error) {
	if !IsValidPublicAddress(req.Destination) {
		return nil, fmt.Errorf("%w: %s", caelerr.ErrInvalidAddress, req.Destination)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", caelerr.ErrInvalidAmount)
	}
	if len(req.Memo) > maxMemoTextBytes {
		return nil, fmt.Errorf("%w: memo exceeds %d bytes", caelerr.ErrInvalidInput, maxMemoTextBytes)
	}

	kp, err := signer(req.SecretKey)
	if err != nil {
		return nil, err
	}

	source, err := c.LoadAccountState(ctx, kp.Address())
	if err != nil {
		return nil, fmt.Errorf("loading source account: %w", err)
	}

	var memo txnbuild.Memo
	if req.Memo != "" {
		memo = txnbuild.MemoText(req.Memo)
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: kp.Address(), Sequence: source.Sequence},
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{&txnbuild.Payment{
			Destination: req.Destination,
			Amount:      req.Amount.StringFixed(chain.Decimals),
			Asset:       txnbuild.NativeAsset{},
		}},
		BaseFee: BaseFee,
		Memo:    memo,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimebounds(0, c.clock.Now().Add(TxTimeout).Unix()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: building payment: %w", caelerr.ErrInvalidInput, err)
	}

	tx, err = tx.Sign(c.network.Passphrase(), kp)
	if err != nil {
		return nil, fmt.Errorf("signing payment: %w", err)
	}
	envelope, err := tx.Base64()
	if err != nil {
		return nil, fmt.Errorf("encoding payment: %w", err)
	}

	return c.submit(ctx, envelope)
}

func (c *Client) submit(ctx context.Context, envelope string) (*chain.PaymentResult, error) {
	resp, err := c.horizon(ctx, "transactions").SubmitTransactionXDR(envelope)
	if err != nil {
		if herr := horizonclient.GetError(err); herr != nil && statusOf(herr) == http.StatusBadRequest {
			return nil, rejection(herr)
		}
		return nil, horizonError("submitting payment", err)
	}

	result := &chain.PaymentResult{
		Hash:       resp.Hash,
		Ledger:     int64(resp.Ledger),
		Successful: resp.Successful,
		FeeCharged: chain.FromStroops(BaseFee),
	}
	if resp.FeeCharged > 0 {
		result.FeeCharged = chain.FromStroops(resp.FeeCharged)
	}
	return result, nil
}

// rejection maps a Horizon problem document to ErrTxRejected with the
// transaction and operation result codes as details.
func rejection(herr *horizonclient.Error) error {
	details := map[string]string{}
	if codes, err := herr.ResultCodes(); err == nil {
		if codes.TransactionCode != "" {
			details["transaction"] = codes.TransactionCode
		}
		if len(codes.OperationCodes) > 0 {
			details["operations"] = strings.Join(codes.OperationCodes, ",")
		}
	}
	if len(details) == 0 && herr.Problem.Detail != "" {
		details["detail"] = herr.Problem.Detail
	}

	err := caelerr.WithDetails(caelerr.ErrTxRejected, details)
	if strings.Contains(details["operations"], "op_underfunded") {
		err = caelerr.WithSuggestion(err, "the amount plus fee exceeds the spendable balance")
	}
	if strings.Contains(details["operations"], "op_no_destination") {
		err = caelerr.WithSuggestion(err, "the destination account does not exist yet")
	}
	return err
}

// horizonError reports a failed Horizon call as a network error. Failures
// raised by the transport already carry ErrNetworkError and pass through.
func horizonError(action string, err error) error {
	if errors.Is(err, caelerr.ErrNetworkError) {
		return err
	}
	if herr := horizonclient.GetError(err); herr != nil {
		return fmt.Errorf("%w: %s: %s (status %d)", caelerr.ErrNetworkError, action, herr.Problem.Title, statusOf(herr))
	}
	return fmt.Errorf("%w: %s: %w", caelerr.ErrNetworkError, action, err)
}
