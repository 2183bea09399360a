// Package proxy rotates the proxies browser sessions launch behind
package proxy

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCooldown is how long a failed proxy is skipped
const DefaultCooldown = 5 * time.Minute

// Pool hands out proxies round-robin, skipping ones that failed recently
type Pool struct {
	proxies  []string
	index    int
	cooldown time.Duration
	mu       sync.Mutex
	failed   map[string]time.Time
	now      func() time.Time
}

// NewPool creates a pool. Entries without a scheme are treated as http
// proxies; blank and malformed entries are dropped.
func NewPool(proxies []string, cooldown time.Duration) *Pool {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	clean := make([]string, 0, len(proxies))
	for _, p := range proxies {
		if n, ok := normalize(p); ok {
			clean = append(clean, n)
		} else if strings.TrimSpace(p) != "" {
			log.Warn().Str("proxy", p).Msg("Ignoring malformed proxy")
		}
	}
	return &Pool{
		proxies:  clean,
		cooldown: cooldown,
		failed:   make(map[string]time.Time),
		now:      time.Now,
	}
}

func normalize(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", false
	}
	if !strings.Contains(p, "://") {
		p = "http://" + p
	}
	u, err := url.Parse(p)
	if err != nil || u.Host == "" {
		return "", false
	}
	switch u.Scheme {
	case "http", "https", "socks5":
		return p, true
	}
	return "", false
}

// Len returns the number of usable entries
func (p *Pool) Len() int {
	return len(p.proxies)
}

// GetNext returns the next healthy proxy. When every proxy is cooling down it
// returns the next one anyway; an empty pool returns "".
func (p *Pool) GetNext() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	now := p.now()
	for i := 0; i < len(p.proxies); i++ {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		failedAt, ok := p.failed[proxy]
		if !ok {
			return proxy
		}
		if now.Sub(failedAt) >= p.cooldown {
			delete(p.failed, proxy)
			return proxy
		}
	}

	proxy := p.proxies[p.index]
	p.index = (p.index + 1) % len(p.proxies)
	return proxy
}

// MarkFailed puts proxy on cooldown
func (p *Pool) MarkFailed(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = p.now()
	log.Warn().Str("proxy", proxy).Dur("cooldown", p.cooldown).Msg("Proxy marked failed")
}

// MarkHealthy clears the cooldown of proxy
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}

// Healthy returns the number of proxies not cooling down
func (p *Pool) Healthy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	n := 0
	for _, proxy := range p.proxies {
		if failedAt, ok := p.failed[proxy]; !ok || now.Sub(failedAt) >= p.cooldown {
			n++
		}
	}
	return n
}
