package monitor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/law-makers/dealcrawl/internal/engine"
)

func TestMonitor_SuccessAndFailure(t *testing.T) {
	m := New()

	m.RecordSuccess(100 * time.Millisecond)
	if n := m.RecordFailure(50*time.Millisecond, engine.BrowserError("click", "not found", nil)); n != 1 {
		t.Errorf("Expected 1 consecutive failure, got %d", n)
	}
	if n := m.RecordFailure(50*time.Millisecond, engine.OracleError("generate", "timeout", nil)); n != 2 {
		t.Errorf("Expected 2 consecutive failures, got %d", n)
	}

	s := m.Snapshot()
	if s.TotalRequests != 3 || s.SuccessfulRequests != 1 || s.FailedRequests != 2 {
		t.Errorf("Unexpected counters: %+v", s)
	}
	if s.ConsecutiveFailures != 2 {
		t.Errorf("Expected 2 consecutive failures, got %d", s.ConsecutiveFailures)
	}
	if s.TotalActionTimeMs != 200 {
		t.Errorf("Expected 200ms total, got %d", s.TotalActionTimeMs)
	}
	if s.ErrorsByKind[engine.KindBrowser] != 1 || s.ErrorsByKind[engine.KindOracle] != 1 {
		t.Errorf("Unexpected error kinds: %v", s.ErrorsByKind)
	}
	if s.LastError == "" || s.LastSuccessAt == nil || s.LastFailureAt == nil {
		t.Errorf("Expected last error and timestamps to be set: %+v", s)
	}

	m.RecordSuccess(0)
	if got := m.ConsecutiveFailures(); got != 0 {
		t.Errorf("Expected success to reset failure streak, got %d", got)
	}
}

func TestMonitor_SnapshotIsImmutable(t *testing.T) {
	m := New()
	m.RecordError(engine.KindExtraction)
	s := m.Snapshot()

	s.ErrorsByKind[engine.KindExtraction] = 99
	m.RecordError(engine.KindExtraction)

	if got := m.Snapshot().ErrorsByKind[engine.KindExtraction]; got != 2 {
		t.Errorf("Expected monitor to be unaffected by snapshot mutation, got %d", got)
	}
}

func TestMonitor_TabsAndItems(t *testing.T) {
	m := New()
	m.TabOpened()
	m.TabOpened()
	m.TabClosed()
	m.AddItems(3)
	m.AddItems(-1)

	s := m.Snapshot()
	if s.ActiveTabs != 1 {
		t.Errorf("Expected 1 active tab, got %d", s.ActiveTabs)
	}
	if s.ItemsCollected != 3 {
		t.Errorf("Expected 3 items, got %d", s.ItemsCollected)
	}
}

func TestMonitor_UnknownErrorKind(t *testing.T) {
	m := New()
	m.RecordFailure(0, errors.New("plain"))
	if got := m.Snapshot().ErrorsByKind[engine.KindUnknown]; got != 1 {
		t.Errorf("Expected plain errors to count as unknown, got %d", got)
	}
}

func TestMonitor_ConcurrentCountersAreMonotonic(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	done := make(chan struct{})

	// Reader asserts per-field monotonicity while writers run
	go func() {
		var last Snapshot
		for {
			select {
			case <-done:
				return
			default:
			}
			s := m.Snapshot()
			if s.TotalRequests < last.TotalRequests || s.SuccessfulRequests < last.SuccessfulRequests || s.FailedRequests < last.FailedRequests {
				t.Errorf("Counter went backwards: %+v after %+v", s, last)
				return
			}
			last = s
		}
	}()

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if (i+j)%2 == 0 {
					m.RecordSuccess(time.Millisecond)
				} else {
					m.RecordFailure(time.Millisecond, engine.BrowserError("scroll", "x", nil))
				}
			}
		}(i)
	}
	wg.Wait()
	close(done)

	s := m.Snapshot()
	if s.TotalRequests != 800 || s.SuccessfulRequests+s.FailedRequests != 800 {
		t.Errorf("Unexpected totals: %+v", s)
	}
}

func TestSnapshot_Rates(t *testing.T) {
	var s Snapshot
	if s.SuccessRate() != 0 || s.AverageActionTime() != 0 {
		t.Error("Expected zero rates for empty snapshot")
	}
	s = Snapshot{TotalRequests: 4, SuccessfulRequests: 3, TotalActionTimeMs: 400}
	if s.SuccessRate() != 75 {
		t.Errorf("Expected 75%%, got %v", s.SuccessRate())
	}
	if s.AverageActionTime() != 100*time.Millisecond {
		t.Errorf("Expected 100ms, got %v", s.AverageActionTime())
	}
}
