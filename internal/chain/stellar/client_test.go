package stellar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/caelus/internal/chain"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

//nolint:gochecknoglobals // shared test fixture
var testNow = time.Unix(1_700_000_000, 0)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&ClientOptions{
		Network:           chain.Testnet,
		BaseURL:           server.URL,
		FriendbotURL:      server.URL + "/friendbot",
		RequestsPerSecond: 1000,
		Burst:             1000,
		Retry:             &chain.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Clock:             clock.NewTestClock(testNow),
	})
}

const accountJSON = `{
	"account_id": "%s",
	"sequence": "4294967296",
	"balances": [
		{"balance": "3.0000000", "asset_type": "credit_alphanum4", "asset_code": "USDC", "asset_issuer": "GISSUER"},
		{"balance": "100.5000000", "asset_type": "native"}
	],
	"signers": [{"key": "%s", "weight": 1, "type": "ed25519_public_key"}],
	"data": {"config": "dmFsdWU="}
}`

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(nil)
	assert.Equal(t, chain.Testnet, c.Network())
	assert.Equal(t, DefaultTestnetURL, c.baseURL)

	pub := NewClient(&ClientOptions{Network: chain.Public, BaseURL: "https://horizon.example/"})
	assert.Equal(t, chain.Public, pub.Network())
	assert.Equal(t, "https://horizon.example", pub.baseURL)
}

func TestLoadAccountState(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/"+countingAddress, r.URL.Path)
		_, _ = fmt.Fprintf(w, accountJSON, countingAddress, countingAddress)
	}))

	state, err := c.LoadAccountState(context.Background(), countingAddress)
	require.NoError(t, err)

	assert.Equal(t, countingAddress, state.AccountID)
	assert.Equal(t, int64(4294967296), state.Sequence)
	assert.Equal(t, "100.5", state.Native.String())
	require.Len(t, state.Balances, 2)
	assert.Equal(t, "USDC", state.Balances[0].AssetCode)
	assert.Equal(t, chain.NativeAssetCode, state.Balances[1].AssetCode)
	assert.Equal(t, chain.ReserveInputs{Signers: 1, Trustlines: 1, DataEntries: 1}, state.Reserve)

	// (2 + 0 + 1 + 1) * 0.5 = 2
	assert.Equal(t, "98.5", chain.SpendableNative(state).String())
}

func TestLoadAccountState_NotFound(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"typed problem":   `{"type":"https://stellar.org/horizon-errors/not_found","status":404,"title":"Resource Missing"}`,
		"untyped problem": `{"status":404,"title":"Resource Missing"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(body))
			}))

			_, err := c.LoadAccountState(context.Background(), countingAddress)
			require.ErrorIs(t, err, caelerr.ErrAccountNotFound)
		})
	}
}

func TestLoadAccountState_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":403,"title":"Forbidden"}`))
	}))

	_, err := c.LoadAccountState(context.Background(), countingAddress)
	require.ErrorIs(t, err, caelerr.ErrNetworkError)
	assert.Contains(t, err.Error(), "Forbidden")
}

func TestLoadAccountState_InvalidAddress(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))

	_, err := c.LoadAccountState(context.Background(), "GNOTANADDRESS")
	require.ErrorIs(t, err, caelerr.ErrInvalidAddress)
	assert.Zero(t, hits.Load())
}

func TestLoadAccountState_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprintf(w, accountJSON, countingAddress, countingAddress)
	}))

	state, err := c.LoadAccountState(context.Background(), countingAddress)
	require.NoError(t, err)
	assert.Equal(t, countingAddress, state.AccountID)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLoadAccountState_RateLimitedExhaustsRetries(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.LoadAccountState(context.Background(), countingAddress)
	require.ErrorIs(t, err, caelerr.ErrNetworkError)
	require.ErrorIs(t, err, chain.ErrRateLimited)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	c := NewClient(&ClientOptions{
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
		Burst:             1000,
		Retry:             &chain.RetryConfig{MaxAttempts: 1},
	})

	ctx := context.Background()
	for i := 0; i <= breakerMinRequests; i++ {
		_, err := c.LoadAccountState(ctx, countingAddress)
		require.ErrorIs(t, err, caelerr.ErrNetworkError)
	}
	require.Equal(t, int32(breakerMinRequests+1), hits.Load())

	_, err := c.LoadAccountState(ctx, countingAddress)
	require.ErrorIs(t, err, caelerr.ErrNetworkError)
	assert.Equal(t, int32(breakerMinRequests+1), hits.Load(), "open breaker must not reach horizon")
}

func TestFetchRecentTransactions(t *testing.T) {
	t.Parallel()

	const page = `{"_embedded":{"records":[
		{
			"id": "2", "type": "payment", "type_i": 1, "created_at": "2024-05-01T10:00:00Z",
			"transaction_hash": "abc", "transaction_successful": true,
			"asset_type": "native", "from": "%[1]s", "to": "GDEST", "amount": "12.5000000",
			"transaction": {"memo": "rent", "memo_type": "text", "fee_charged": "100", "successful": true}
		},
		{
			"id": "1", "type": "create_account", "type_i": 0, "created_at": "2024-04-30T10:00:00Z",
			"transaction_hash": "def", "transaction_successful": true, "funder": "GFUNDER", "account": "%[1]s",
			"starting_balance": "10000.0000000",
			"transaction": {"memo_type": "none", "fee_charged": "200", "successful": true}
		}
	]}}`

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/"+countingAddress+"/payments", r.URL.Path)
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "transactions", r.URL.Query().Get("join"))
		_, _ = fmt.Fprintf(w, page, countingAddress)
	}))

	txs, err := c.FetchRecentTransactions(context.Background(), countingAddress, 5)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "payment", txs[0].Type)
	assert.Equal(t, "12.5", txs[0].Amount.String())
	assert.Equal(t, "rent", txs[0].Memo)
	assert.Equal(t, "0.00001", txs[0].Fee.String())
	assert.Equal(t, "sent", txs[0].Direction(countingAddress))
	assert.True(t, txs[0].Successful)

	assert.Equal(t, "create_account", txs[1].Type)
	assert.Equal(t, "10000", txs[1].Amount.String())
	assert.Equal(t, "GFUNDER", txs[1].From)
	assert.Equal(t, countingAddress, txs[1].To)
	assert.Empty(t, txs[1].Memo)
	assert.Equal(t, "received", txs[1].Direction(countingAddress))
	assert.Equal(t, chain.NativeAssetCode, txs[1].Asset)
	assert.Equal(t, "0.00002", txs[1].Fee.String())
	assert.True(t, txs[1].Successful)
}

func TestFetchRecentTransactions_CreditAssetAndFailed(t *testing.T) {
	t.Parallel()

	const page = `{"_embedded":{"records":[
		{
			"id": "3", "type": "payment", "type_i": 1, "created_at": "2024-05-02T10:00:00Z",
			"transaction_hash": "ghi", "transaction_successful": false,
			"asset_type": "credit_alphanum4", "asset_code": "USDC", "asset_issuer": "GISSUER",
			"from": "GOTHER", "to": "%[1]s", "amount": "3.0000000"
		}
	]}}`

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, page, countingAddress)
	}))

	txs, err := c.FetchRecentTransactions(context.Background(), countingAddress, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "USDC", txs[0].Asset)
	assert.Equal(t, "3", txs[0].Amount.String())
	assert.False(t, txs[0].Successful)
	assert.True(t, txs[0].Fee.IsZero())
	assert.Equal(t, "received", txs[0].Direction(countingAddress))
}

func TestFetchRecentTransactions_DefaultLimit(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"_embedded":{"records":[]}}`))
	}))

	txs, err := c.FetchRecentTransactions(context.Background(), countingAddress, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSubmitPayment(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/"+countingAddress, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, accountJSON, countingAddress, countingAddress)
	})
	var submitted atomic.Value
	mux.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		if assert.NoError(t, r.ParseForm()) {
			submitted.Store(r.PostForm.Get("tx"))
		}
		_, _ = w.Write([]byte(`{"hash":"feed","ledger":42,"successful":true,"fee_charged":"100"}`))
	})

	c := newTestClient(t, mux)
	result, err := c.SubmitPayment(context.Background(), chain.PaymentRequest{
		SecretKey:   countingSecret,
		Destination: abandonAddress,
		Amount:      decimal.RequireFromString("12.5"),
		Memo:        "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "feed", result.Hash)
	assert.Equal(t, int64(42), result.Ledger)
	assert.True(t, result.Successful)
	assert.Equal(t, "0.00001", result.FeeCharged.String())

	encoded, ok := submitted.Load().(string)
	require.True(t, ok)
	generic, err := txnbuild.TransactionFromXDR(encoded)
	require.NoError(t, err)
	tx, ok := generic.Transaction()
	require.True(t, ok)

	assert.Equal(t, countingAddress, tx.SourceAccount().AccountID)
	assert.Equal(t, int64(4294967297), tx.SequenceNumber())
	assert.Equal(t, int64(BaseFee), tx.BaseFee())
	assert.Equal(t, testNow.Add(TxTimeout).Unix(), tx.Timebounds().MaxTime)
	assert.Equal(t, txnbuild.MemoText("hi"), tx.Memo())

	require.Len(t, tx.Operations(), 1)
	op, ok := tx.Operations()[0].(*txnbuild.Payment)
	require.True(t, ok)
	assert.Equal(t, abandonAddress, op.Destination)
	assert.Equal(t, "12.5000000", op.Amount)
	assert.True(t, op.Asset.IsNative())

	hash, err := tx.Hash(chain.TestnetPassphrase)
	require.NoError(t, err)
	require.Len(t, tx.Signatures(), 1)
	signerKey, err := keypair.ParseAddress(countingAddress)
	require.NoError(t, err)
	require.NoError(t, signerKey.Verify(hash[:], tx.Signatures()[0].Signature))
}

func TestSubmitPayment_NoMemo(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/"+countingAddress, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, accountJSON, countingAddress, countingAddress)
	})
	var submitted atomic.Value
	mux.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		if assert.NoError(t, r.ParseForm()) {
			submitted.Store(r.PostForm.Get("tx"))
		}
		_, _ = w.Write([]byte(`{"hash":"feed","ledger":43,"successful":true,"fee_charged":"100"}`))
	})

	c := newTestClient(t, mux)
	_, err := c.SubmitPayment(context.Background(), chain.PaymentRequest{
		SecretKey:   countingSecret,
		Destination: abandonAddress,
		Amount:      decimal.RequireFromString("0.0000001"),
	})
	require.NoError(t, err)

	encoded, _ := submitted.Load().(string)
	generic, err := txnbuild.TransactionFromXDR(encoded)
	require.NoError(t, err)
	tx, ok := generic.Transaction()
	require.True(t, ok)
	assert.Nil(t, tx.Memo())
	op, ok := tx.Operations()[0].(*txnbuild.Payment)
	require.True(t, ok)
	assert.Equal(t, "0.0000001", op.Amount)
}

func TestSubmitPayment_Rejected(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/"+countingAddress, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, accountJSON, countingAddress, countingAddress)
	})
	mux.HandleFunc("/transactions", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Transaction Failed","extras":{"result_codes":{"transaction":"tx_failed","operations":["op_underfunded"]}}}`))
	})

	c := newTestClient(t, mux)
	_, err := c.SubmitPayment(context.Background(), chain.PaymentRequest{
		SecretKey:   countingSecret,
		Destination: abandonAddress,
		Amount:      decimal.NewFromInt(1000),
	})
	require.ErrorIs(t, err, caelerr.ErrTxRejected)
	assert.Contains(t, err.Error(), "op_underfunded")
	assert.Contains(t, err.Error(), "tx_failed")
}

func TestSubmitPayment_InvalidInput(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	ctx := context.Background()

	_, err := c.SubmitPayment(ctx, chain.PaymentRequest{SecretKey: countingSecret, Destination: "GBAD", Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, caelerr.ErrInvalidAddress)

	_, err = c.SubmitPayment(ctx, chain.PaymentRequest{SecretKey: countingSecret, Destination: abandonAddress, Amount: decimal.Zero})
	require.ErrorIs(t, err, caelerr.ErrInvalidAmount)

	_, err = c.SubmitPayment(ctx, chain.PaymentRequest{
		SecretKey: countingSecret, Destination: abandonAddress, Amount: decimal.NewFromInt(1),
		Memo: strings.Repeat("m", maxMemoTextBytes+1),
	})
	require.ErrorIs(t, err, caelerr.ErrInvalidInput)

	_, err = c.SubmitPayment(ctx, chain.PaymentRequest{SecretKey: countingAddress, Destination: abandonAddress, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, caelerr.ErrInvalidKeyMaterial)

	assert.Zero(t, hits.Load())
}

func TestFundTestnet(t *testing.T) {
	t.Parallel()

	var funded atomic.Value
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/friendbot", r.URL.Path)
		funded.Store(r.URL.Query().Get("addr"))
		_, _ = w.Write([]byte(`{"hash":"abc"}`))
	}))

	require.NoError(t, c.FundTestnet(context.Background(), countingAddress))
	assert.Equal(t, countingAddress, funded.Load())
}

func TestFundTestnet_Errors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"createAccountAlreadyExist"}`))
	}))

	err := c.FundTestnet(context.Background(), countingAddress)
	require.ErrorIs(t, err, caelerr.ErrNetworkError)
	assert.Contains(t, err.Error(), "createAccountAlreadyExist")

	require.ErrorIs(t, c.FundTestnet(context.Background(), "GBAD"), caelerr.ErrInvalidAddress)

	public := NewClient(&ClientOptions{Network: chain.Public})
	require.ErrorIs(t, public.FundTestnet(context.Background(), countingAddress), caelerr.ErrInvalidInput)
}
