package browser

import (
	"context"
	"sync"

	"github.com/law-makers/dealcrawl/internal/engine"
	urlutil "github.com/law-makers/dealcrawl/internal/utils/url"
	"github.com/rs/zerolog/log"
)

// DefaultTabLimit is the number of hosts kept open at once
const DefaultTabLimit = 5

// TabOpener opens tabs for the cache; *Session implements it
type TabOpener interface {
	OpenTab(ctx context.Context, address string) (*Tab, error)
}

// TabCache keeps one tab per base address (scheme://host). Entries are
// evicted oldest first once the limit is reached. The cache never closes a
// tab; evicted tabs are passed to OnEvict.
type TabCache struct {
	opener TabOpener
	limit  int

	// OnEvict receives tabs dropped to make room or replaced as stale
	OnEvict func(base string, tab *Tab)

	mu    sync.RWMutex
	tabs  map[string]*Tab
	order []string
}

// NewTabCache creates a cache backed by opener. A limit <= 0 uses DefaultTabLimit.
func NewTabCache(opener TabOpener, limit int) *TabCache {
	if limit <= 0 {
		limit = DefaultTabLimit
	}
	return &TabCache{
		opener: opener,
		limit:  limit,
		tabs:   make(map[string]*Tab),
	}
}

// GetOrCreate returns the cached tab for the address's host, opening a new
// one when there is none or the cached tab has left the host
func (c *TabCache) GetOrCreate(ctx context.Context, address string) (*Tab, error) {
	base, err := urlutil.BaseAddress(address)
	if err != nil {
		return nil, engine.ValidationError("tab_cache", "invalid address", err)
	}

	c.mu.RLock()
	tab, ok := c.tabs[base]
	c.mu.RUnlock()

	if ok {
		if c.fresh(ctx, base, tab) {
			log.Debug().Str("base", base).Msg("Tab cache hit")
			return tab, nil
		}
		log.Debug().Str("base", base).Msg("Cached tab is stale, replacing")
	}

	tab, err = c.opener.OpenTab(ctx, address)
	if err != nil {
		return nil, err
	}

	c.insert(base, tab)
	return tab, nil
}

// fresh reports whether tab is still open on base
func (c *TabCache) fresh(ctx context.Context, base string, tab *Tab) bool {
	if tab.Closed() {
		return false
	}
	live, err := tab.LiveAddress(ctx)
	if err != nil {
		return false
	}
	liveBase, err := urlutil.BaseAddress(live)
	if err != nil {
		return false
	}
	return liveBase == base
}

func (c *TabCache) insert(base string, tab *Tab) {
	var evicted []evictedTab

	c.mu.Lock()
	if old, ok := c.tabs[base]; ok {
		if old != tab {
			evicted = append(evicted, evictedTab{base, old})
		}
		c.removeLocked(base)
	}
	for len(c.order) >= c.limit {
		oldest := c.order[0]
		evicted = append(evicted, evictedTab{oldest, c.tabs[oldest]})
		c.removeLocked(oldest)
	}
	c.tabs[base] = tab
	c.order = append(c.order, base)
	c.mu.Unlock()

	c.notify(evicted)
}

// Rekey moves the entry for oldAddress's host to newAddress's host. The tab
// is the same object under the new key. An existing entry under the new key
// is replaced and handed to OnEvict.
func (c *TabCache) Rekey(oldAddress, newAddress string) bool {
	oldBase, err := urlutil.BaseAddress(oldAddress)
	if err != nil {
		return false
	}
	newBase, err := urlutil.BaseAddress(newAddress)
	if err != nil || oldBase == newBase {
		return false
	}

	var evicted []evictedTab

	c.mu.Lock()
	tab, ok := c.tabs[oldBase]
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.removeLocked(oldBase)
	if other, exists := c.tabs[newBase]; exists {
		if other != tab {
			evicted = append(evicted, evictedTab{newBase, other})
		}
		c.removeLocked(newBase)
	}
	c.tabs[newBase] = tab
	c.order = append(c.order, newBase)
	c.mu.Unlock()

	c.notify(evicted)
	log.Debug().Str("from", oldBase).Str("to", newBase).Msg("Tab rekeyed")
	return true
}

// Evict drops the entry for address's host without closing its tab
func (c *TabCache) Evict(address string) (*Tab, bool) {
	base, err := urlutil.BaseAddress(address)
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tab, ok := c.tabs[base]
	if ok {
		c.removeLocked(base)
	}
	return tab, ok
}

// Clear drops every entry and returns the tabs that were cached, oldest first
func (c *TabCache) Clear() []*Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	tabs := make([]*Tab, 0, len(c.order))
	for _, base := range c.order {
		tabs = append(tabs, c.tabs[base])
	}
	c.tabs = make(map[string]*Tab)
	c.order = nil
	return tabs
}

// Len returns the number of cached tabs
func (c *TabCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Keys returns the cached base addresses in insertion order
func (c *TabCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// Get returns the cached tab for address's host without checking it
func (c *TabCache) Get(address string) (*Tab, bool) {
	base, err := urlutil.BaseAddress(address)
	if err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	tab, ok := c.tabs[base]
	return tab, ok
}

type evictedTab struct {
	base string
	tab  *Tab
}

func (c *TabCache) removeLocked(base string) {
	delete(c.tabs, base)
	for i, k := range c.order {
		if k == base {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *TabCache) notify(evicted []evictedTab) {
	for _, e := range evicted {
		log.Debug().Str("base", e.base).Msg("Tab evicted from cache")
		if c.OnEvict != nil {
			c.OnEvict(e.base, e.tab)
		}
	}
}
