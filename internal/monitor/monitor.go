// Package monitor records agent loop health with lock-free counters.
//
// Fields are updated independently, so a Snapshot taken while the loop runs
// may be skewed across fields (e.g. TotalRequests already incremented while
// FailedRequests is not yet). Each field on its own is monotonic, except the
// ActiveTabs gauge and ConsecutiveFailures.
package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/law-makers/dealcrawl/internal/engine"
)

// Monitor holds the counters of one agent loop
type Monitor struct {
	totalRequests       atomic.Uint64
	successfulRequests  atomic.Uint64
	failedRequests      atomic.Uint64
	itemsCollected      atomic.Uint64
	activeTabs          atomic.Int64
	totalActionTimeMs   atomic.Uint64
	consecutiveFailures atomic.Uint64

	startedAt     time.Time
	lastSuccessAt atomic.Int64 // unix nanos, 0 = never
	lastFailureAt atomic.Int64

	lastError atomic.Pointer[string]

	errorsMu     sync.Mutex
	errorsByKind map[engine.Kind]uint64
}

// Snapshot is an immutable copy of the Monitor counters
type Snapshot struct {
	TotalRequests       uint64                 `json:"total_requests"`
	SuccessfulRequests  uint64                 `json:"successful_requests"`
	FailedRequests      uint64                 `json:"failed_requests"`
	ItemsCollected      uint64                 `json:"items_collected"`
	ErrorsByKind        map[engine.Kind]uint64 `json:"errors_by_kind"`
	ActiveTabs          int64                  `json:"active_tabs"`
	TotalActionTimeMs   uint64                 `json:"total_action_time_ms"`
	ConsecutiveFailures uint64                 `json:"consecutive_failures"`
	LastError           string                 `json:"last_error,omitempty"`
	StartedAt           time.Time              `json:"started_at"`
	LastSuccessAt       *time.Time             `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time             `json:"last_failure_at,omitempty"`
}

// New creates a Monitor with StartedAt set to now
func New() *Monitor {
	return &Monitor{
		startedAt:    time.Now(),
		errorsByKind: make(map[engine.Kind]uint64),
	}
}

// RecordSuccess counts a successful action that took d
func (m *Monitor) RecordSuccess(d time.Duration) {
	m.totalRequests.Add(1)
	m.successfulRequests.Add(1)
	m.totalActionTimeMs.Add(uint64(d.Milliseconds()))
	m.consecutiveFailures.Store(0)
	m.lastSuccessAt.Store(time.Now().UnixNano())
}

// RecordFailure counts a failed action (or oracle call) that took d and
// returns the new consecutive failure count
func (m *Monitor) RecordFailure(d time.Duration, err error) uint64 {
	m.totalRequests.Add(1)
	m.failedRequests.Add(1)
	m.totalActionTimeMs.Add(uint64(d.Milliseconds()))
	m.lastFailureAt.Store(time.Now().UnixNano())

	if err != nil {
		msg := err.Error()
		m.lastError.Store(&msg)
		m.RecordError(engine.KindOf(err))
	}
	return m.consecutiveFailures.Add(1)
}

// RecordError counts an error by kind without touching request counters.
// Used for extraction and persistence failures, which never fail the loop.
func (m *Monitor) RecordError(kind engine.Kind) {
	if kind == "" {
		kind = engine.KindUnknown
	}
	m.errorsMu.Lock()
	m.errorsByKind[kind]++
	m.errorsMu.Unlock()
}

// AddItems counts collected records
func (m *Monitor) AddItems(n int) {
	if n > 0 {
		m.itemsCollected.Add(uint64(n))
	}
}

// TabOpened increments the active tab gauge
func (m *Monitor) TabOpened() {
	m.activeTabs.Add(1)
}

// TabClosed decrements the active tab gauge
func (m *Monitor) TabClosed() {
	m.activeTabs.Add(-1)
}

// ConsecutiveFailures returns the current failure streak
func (m *Monitor) ConsecutiveFailures() uint64 {
	return m.consecutiveFailures.Load()
}

// Snapshot copies the current counters
func (m *Monitor) Snapshot() Snapshot {
	s := Snapshot{
		TotalRequests:       m.totalRequests.Load(),
		SuccessfulRequests:  m.successfulRequests.Load(),
		FailedRequests:      m.failedRequests.Load(),
		ItemsCollected:      m.itemsCollected.Load(),
		ActiveTabs:          m.activeTabs.Load(),
		TotalActionTimeMs:   m.totalActionTimeMs.Load(),
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		StartedAt:           m.startedAt,
		LastSuccessAt:       loadTime(&m.lastSuccessAt),
		LastFailureAt:       loadTime(&m.lastFailureAt),
	}
	if msg := m.lastError.Load(); msg != nil {
		s.LastError = *msg
	}

	m.errorsMu.Lock()
	s.ErrorsByKind = make(map[engine.Kind]uint64, len(m.errorsByKind))
	for k, v := range m.errorsByKind {
		s.ErrorsByKind[k] = v
	}
	m.errorsMu.Unlock()

	return s
}

// SuccessRate returns successful/total as a percentage
func (s Snapshot) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests) * 100
}

// AverageActionTime returns the mean time per action
func (s Snapshot) AverageActionTime() time.Duration {
	if s.TotalRequests == 0 {
		return 0
	}
	return time.Duration(s.TotalActionTimeMs/s.TotalRequests) * time.Millisecond
}

// Uptime returns how long the monitor has been running at snapshot time
func (s Snapshot) Uptime(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

func loadTime(v *atomic.Int64) *time.Time {
	n := v.Load()
	if n == 0 {
		return nil
	}
	t := time.Unix(0, n)
	return &t
}
