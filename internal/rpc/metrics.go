package rpc

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks request counters for the daemon. All methods are safe
// for concurrent use.
type Metrics struct {
	requestsTotal  atomic.Int64
	requestsFailed atomic.Int64

	mu          sync.Mutex
	byOperation map[string]int64
	totalNanos  int64
}

// NewMetrics returns an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{byOperation: make(map[string]int64)}
}

// Record counts one finished request.
func (m *Metrics) Record(operation string, duration time.Duration, failed bool) {
	m.requestsTotal.Add(1)
	if failed {
		m.requestsFailed.Add(1)
	}
	m.mu.Lock()
	m.byOperation[operation]++
	m.totalNanos += duration.Nanoseconds()
	m.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	RequestsTotal  int64            `json:"requests_total"`
	RequestsFailed int64            `json:"requests_failed"`
	ByOperation    map[string]int64 `json:"by_operation"`
	AvgDurationMS  float64          `json:"avg_duration_ms"`
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		RequestsTotal:  m.requestsTotal.Load(),
		RequestsFailed: m.requestsFailed.Load(),
		ByOperation:    make(map[string]int64),
	}
	m.mu.Lock()
	for op, n := range m.byOperation {
		snap.ByOperation[op] = n
	}
	total := m.totalNanos
	m.mu.Unlock()
	if snap.RequestsTotal > 0 {
		snap.AvgDurationMS = float64(total) / float64(snap.RequestsTotal) / 1e6
	}
	return snap
}
