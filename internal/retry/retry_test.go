package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/dealcrawl/internal/engine"
)

func quickConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quickConfig(), "generate", func() error {
		calls++
		if calls < 3 {
			return engine.OracleError("generate", "empty response", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	tests := []error{
		engine.ValidationError("execute", "bad", nil),
		fmt.Errorf("wrapped: %w", NewStatusError(400, "")),
		engine.OracleError("generate", "rejected", NewStatusError(401, "bad key")),
		context.Canceled,
	}
	for _, want := range tests {
		calls := 0
		err := Do(context.Background(), quickConfig(), "generate", func() error {
			calls++
			return want
		})
		if calls != 1 {
			t.Errorf("%v: expected 1 call, got %d", want, calls)
		}
		if !errors.Is(err, want) {
			t.Errorf("Expected %v, got %v", want, err)
		}
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quickConfig(), "generate", func() error {
		calls++
		return NewStatusError(503, "")
	})
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	var sc StatusCoder
	if !errors.As(err, &sc) || sc.StatusCode() != 503 {
		t.Errorf("Expected wrapped 503, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "generate: gave up after 3 attempts") {
		t.Errorf("Expected op in error, got %q", err.Error())
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := quickConfig()
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Do(ctx, cfg, "generate", func() error { return errors.New("flaky") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
}

func TestConfig_Backoff(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, Multiplier: 2}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for attempt, w := range want {
		if got := cfg.Backoff(attempt); got != w {
			t.Errorf("attempt %d: got %v, want %v", attempt, got, w)
		}
	}

	cfg.Jitter = 0.5
	for i := 0; i < 20; i++ {
		got := cfg.Backoff(1)
		if got < time.Second || got > 3*time.Second {
			t.Fatalf("Jittered backoff %v outside 1s..3s", got)
		}
	}
}

func TestStatusError(t *testing.T) {
	err := NewStatusError(429, "slow down")
	if got := err.Error(); got != "status 429 Too Many Requests: slow down" {
		t.Errorf("Unexpected message %q", got)
	}
	if !quickConfig().Retryable(err) {
		t.Error("429 should be retryable")
	}
	if quickConfig().Retryable(NewStatusError(404, "")) {
		t.Error("404 should not be retryable")
	}
}
