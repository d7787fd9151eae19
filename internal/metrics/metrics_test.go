package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

func TestMetrics_RecordHorizonCall(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordHorizonCall("accounts", 100*time.Millisecond, nil)
	m.RecordHorizonCall("transactions", 50*time.Millisecond, caelerr.ErrNetworkError)
	m.RecordHorizonCall("accounts", 30*time.Millisecond, nil)

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.HorizonCalls)
	assert.Equal(t, int64(1), snap.HorizonErrors)
	assert.Equal(t, 180*time.Millisecond, snap.HorizonLatency)
	assert.Equal(t, map[string]int64{"accounts": 2, "transactions": 1}, snap.HorizonEndpoints)
}

func TestMetrics_RecordWalletOp(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordWalletOp(nil)
	m.RecordWalletOp(caelerr.ErrInvalidPassword)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.WalletOps)
	assert.Equal(t, int64(1), snap.WalletOpsErrors)
}

func TestMetrics_HorizonLatencyAvg(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	assert.Zero(t, m.HorizonLatencyAvg())

	m.RecordHorizonCall("accounts", 100*time.Millisecond, nil)
	m.RecordHorizonCall("accounts", 200*time.Millisecond, nil)
	assert.Equal(t, 150*time.Millisecond, m.HorizonLatencyAvg())
}

func TestMetrics_Summary(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	assert.Equal(t, "horizon 0 calls, 0 errors, avg 0s; wallet 0 ops, 0 errors", m.Summary())

	m.RecordHorizonCall("transactions", 100*time.Millisecond, nil)
	m.RecordHorizonCall("accounts", 140*time.Millisecond, caelerr.ErrAccountNotFound)
	m.RecordWalletOp(nil)

	assert.Equal(t,
		"horizon 2 calls (accounts=1 transactions=1), 1 errors, avg 120ms; wallet 1 ops, 0 errors",
		m.Summary())
}

func TestMetrics_Reset(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordHorizonCall("friendbot", time.Second, nil)
	m.RecordWalletOp(caelerr.ErrGeneral)
	m.Reset()

	snap := m.Snapshot()
	assert.Zero(t, snap.HorizonCalls)
	assert.Zero(t, snap.WalletOps)
	assert.Empty(t, snap.HorizonEndpoints)
}

func TestMetrics_Concurrent(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordHorizonCall("payments", time.Millisecond, nil)
			m.RecordWalletOp(nil)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(50), snap.HorizonCalls)
	assert.Equal(t, int64(50), snap.WalletOps)
	assert.Equal(t, int64(50), snap.HorizonEndpoints["payments"])
}
