// Package metrics counts Horizon requests and wallet operations in process.
// The CLI logs a summary at debug level when a command finishes.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds counters safe for concurrent use.
type Metrics struct {
	horizonCalls   atomic.Int64
	horizonErrors  atomic.Int64
	horizonLatency atomic.Int64

	walletOps    atomic.Int64
	walletErrors atomic.Int64

	mu         sync.Mutex
	byEndpoint map[string]int64
}

// Global is the process-wide instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordHorizonCall records one Horizon request with its duration and outcome.
func (m *Metrics) RecordHorizonCall(endpoint string, duration time.Duration, err error) {
	m.horizonCalls.Add(1)
	m.horizonLatency.Add(duration.Nanoseconds())
	if err != nil {
		m.horizonErrors.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byEndpoint == nil {
		m.byEndpoint = make(map[string]int64)
	}
	m.byEndpoint[endpoint]++
}

// RecordWalletOp records a wallet operation.
func (m *Metrics) RecordWalletOp(err error) {
	m.walletOps.Add(1)
	if err != nil {
		m.walletErrors.Add(1)
	}
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	HorizonCalls     int64
	HorizonErrors    int64
	HorizonLatency   time.Duration
	WalletOps        int64
	WalletOpsErrors  int64
	HorizonEndpoints map[string]int64
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	endpoints := make(map[string]int64, len(m.byEndpoint))
	for k, v := range m.byEndpoint {
		endpoints[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		HorizonCalls:     m.horizonCalls.Load(),
		HorizonErrors:    m.horizonErrors.Load(),
		HorizonLatency:   time.Duration(m.horizonLatency.Load()),
		WalletOps:        m.walletOps.Load(),
		WalletOpsErrors:  m.walletErrors.Load(),
		HorizonEndpoints: endpoints,
	}
}

// HorizonLatencyAvg returns the mean request duration, or 0 without calls.
func (m *Metrics) HorizonLatencyAvg() time.Duration {
	calls := m.horizonCalls.Load()
	if calls == 0 {
		return 0
	}
	return time.Duration(m.horizonLatency.Load() / calls)
}

// Summary renders the counters on one line, e.g.
// "horizon 3 calls (accounts=2 transactions=1), 0 errors, avg 120ms; wallet 4 ops, 1 errors".
func (m *Metrics) Summary() string {
	snap := m.Snapshot()

	names := make([]string, 0, len(snap.HorizonEndpoints))
	for name := range snap.HorizonEndpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, snap.HorizonEndpoints[name]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "horizon %d calls", snap.HorizonCalls)
	if len(parts) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(parts, " "))
	}
	fmt.Fprintf(&sb, ", %d errors, avg %s; wallet %d ops, %d errors",
		snap.HorizonErrors, m.HorizonLatencyAvg().Round(time.Millisecond), snap.WalletOps, snap.WalletOpsErrors)
	return sb.String()
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	m.horizonCalls.Store(0)
	m.horizonErrors.Store(0)
	m.horizonLatency.Store(0)
	m.walletOps.Store(0)
	m.walletErrors.Store(0)

	m.mu.Lock()
	m.byEndpoint = nil
	m.mu.Unlock()
}
