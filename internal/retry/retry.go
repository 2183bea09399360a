// Package retry re-runs calls to the decision oracle when they fail for a
// transient reason: a rate limit, a gateway error, a timeout, or an agent
// error marked retryable.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/rs/zerolog/log"
)

// Config is an exponential backoff policy
type Config struct {
	// MaxAttempts counts the first call
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Jitter is the fraction by which each pause may vary either way
	Jitter float64
	// RetryableStatusCodes are the API statuses worth another attempt.
	// Any other status fails at once.
	RetryableStatusCodes []int
}

// DefaultConfig returns the policy used for oracle calls
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		Jitter:         0.2,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// Do calls fn until it succeeds, fails for a reason another attempt will not
// fix, or MaxAttempts is used up. op names the call in logs. A cancelled ctx
// ends the wait between attempts and is returned as is.
func Do(ctx context.Context, cfg Config, op string, fn func() error) error {
	attempts := max(cfg.MaxAttempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil {
			if attempt > 0 {
				log.Debug().Str("op", op).Int("attempts", attempt+1).Msg("Succeeded after retry")
			}
			return nil
		}
		if !cfg.Retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		pause := cfg.Backoff(attempt)
		log.Debug().
			Err(err).
			Str("op", op).
			Int("attempt", attempt+1).
			Dur("backoff", pause).
			Msg("Retrying")
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}

	log.Warn().Err(err).Str("op", op).Int("attempts", attempts).Msg("Giving up")
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, attempts, err)
}

// Backoff returns the pause after the given zero-based attempt:
// InitialBackoff * Multiplier^attempt, capped at MaxBackoff, then jittered
func (c Config) Backoff(attempt int) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(c.Multiplier, float64(attempt))
	if c.MaxBackoff > 0 {
		d = math.Min(d, float64(c.MaxBackoff))
	}
	if c.Jitter > 0 {
		d += d * c.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(d)
}

// Retryable reports whether another attempt may succeed. An API status in
// the chain decides first, so a 401 wrapped in a retryable OracleError still
// fails fast.
func (c Config) Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return slices.Contains(c.RetryableStatusCodes, sc.StatusCode())
	}

	var e *engine.Error
	if errors.As(err, &e) {
		return e.Retryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) {
		return timeout.Timeout()
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StatusCoder is implemented by errors that carry an API status code
type StatusCoder interface {
	StatusCode() int
}

// StatusError is a failed API call reduced to its status and message
type StatusError struct {
	Code    int
	Message string
}

// NewStatusError creates a StatusError
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("status %d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

// StatusCode implements StatusCoder
func (e *StatusError) StatusCode() int {
	return e.Code
}
