// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces actions against a site
type RateLimiter interface {
	// Wait blocks until an action on the given address may proceed.
	// If the context is cancelled first, its error is returned.
	Wait(ctx context.Context, address string) error

	// Allow reports whether an action may proceed now, consuming the slot if so
	Allow(address string) bool
}

// HostLimiter enforces a minimum delay between actions on the same host.
// Each host gets a token bucket with burst 1 refilled once per delay, so
// the first action is immediate and later ones are spaced out.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	every    rate.Limit
}

// NewHostLimiter creates a limiter with the given minimum delay per host.
// A non-positive delay disables limiting.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	every := rate.Inf
	if minDelay > 0 {
		every = rate.Every(minDelay)
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    every,
	}
}

// Wait blocks until the host of address is due for another action
func (hl *HostLimiter) Wait(ctx context.Context, address string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	host := hostOf(address)
	if host == "" {
		// Invalid address, let it proceed (will fail elsewhere)
		return nil
	}
	return hl.getLimiter(host).Wait(ctx)
}

// Allow checks if an action can proceed immediately without blocking
func (hl *HostLimiter) Allow(address string) bool {
	host := hostOf(address)
	if host == "" {
		return true
	}
	return hl.getLimiter(host).Allow()
}

// SetDelay changes the minimum delay for one host
func (hl *HostLimiter) SetDelay(host string, minDelay time.Duration) {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	hl.getLimiter(strings.ToLower(host)).SetLimit(limit)
}

// getLimiter returns or creates the limiter for host
func (hl *HostLimiter) getLimiter(host string) *rate.Limiter {
	hl.mu.RLock()
	limiter, exists := hl.limiters[host]
	hl.mu.RUnlock()

	if exists {
		return limiter
	}

	hl.mu.Lock()
	defer hl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := hl.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(hl.every, 1)
	hl.limiters[host] = limiter
	return limiter
}

func hostOf(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
