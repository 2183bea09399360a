// Package extract turns marketplace HTML into product records. Each site has
// an Extractor; the Registry picks one by host.
package extract

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/dealcrawl/internal/engine"
	urlutil "github.com/law-makers/dealcrawl/internal/utils/url"
	"github.com/law-makers/dealcrawl/pkg/models"
)

// ErrNoProduct means the page does not describe a product
var ErrNoProduct = errors.New("no product on page")

// Extractor reads one marketplace's pages
type Extractor interface {
	Name() string
	// ExtractListURLs returns absolute product links in page order
	ExtractListURLs(html string) ([]string, error)
	// ExtractRecord reads the product on a detail page
	ExtractRecord(html, url string) (*models.Product, error)
	// InteractiveElements lists notable widgets on the page
	InteractiveElements(html string) ([]string, error)
}

// SiteInfo describes a registered extractor
type SiteInfo struct {
	Name  string
	Hosts []string
}

type registration struct {
	hosts     []string
	extractor Extractor
}

// Registry selects an extractor by host pattern
type Registry struct {
	mu       sync.RWMutex
	entries  []registration
	fallback Extractor
}

// NewRegistry creates a registry that answers unknown hosts with fallback
func NewRegistry(fallback Extractor) *Registry {
	return &Registry{fallback: fallback}
}

// NewDefaultRegistry registers the Coupang extractor and one generic
// extractor per additional site config. configs may be nil.
func NewDefaultRegistry(configs []SiteConfig) *Registry {
	if configs == nil {
		configs = DefaultSiteConfigs()
	}
	r := NewRegistry(NewGenericExtractor(SiteConfig{Name: "generic"}))
	for _, c := range configs {
		if c.Name == "coupang" {
			r.Register(NewCoupangExtractor(c), c.Hosts...)
			continue
		}
		r.Register(NewGenericExtractor(c), c.Hosts...)
	}
	return r
}

// Register adds an extractor for the given host patterns. A pattern matches
// the host itself and any subdomain of it. Later registrations win.
func (r *Registry) Register(ex Extractor, hosts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(h)))
	}
	r.entries = append([]registration{{hosts: normalized, extractor: ex}}, r.entries...)
}

// Select returns the extractor for address, or the fallback
func (r *Registry) Select(address string) Extractor {
	host := strings.ToLower(urlutil.Hostname(address))

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		for _, pattern := range e.hosts {
			if host == pattern || strings.HasSuffix(host, "."+pattern) {
				return e.extractor
			}
		}
	}
	return r.fallback
}

// Sites lists registered extractors, most recent first
func (r *Registry) Sites() []SiteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SiteInfo, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, SiteInfo{Name: e.extractor.Name(), Hosts: append([]string(nil), e.hosts...)})
	}
	return out
}

func parseDocument(op, html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, engine.ExtractionError(op, "cannot parse HTML", err)
	}
	return doc, nil
}

// firstText returns the trimmed text of the first selector that matches
// something non-empty
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// firstAttr returns the first non-empty attribute among attrs on the first
// element matched by any selector
func firstAttr(doc *goquery.Document, selectors, attrs []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, a := range attrs {
			if v, ok := node.Attr(a); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func anyMatch(doc *goquery.Document, selectors []string) bool {
	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// ParsePrice keeps the digits (and one decimal point) of a displayed price.
// "29,900원" is 29900, "$1,299.99" is 1299.99.
func ParsePrice(text string) (float64, bool) {
	var b strings.Builder
	dot := false
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dot && b.Len() > 0:
			dot = true
			b.WriteRune(r)
		}
	}
	s := strings.TrimSuffix(b.String(), ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func pricePtr(text string) *float64 {
	if v, ok := ParsePrice(text); ok {
		return &v
	}
	return nil
}

func uniqueResolved(base string, hrefs []string) []string {
	seen := make(map[string]bool, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, h := range urlutil.ResolveAll(base, hrefs) {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
