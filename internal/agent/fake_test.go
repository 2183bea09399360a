package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/law-makers/dealcrawl/internal/browser"
	"github.com/law-makers/dealcrawl/internal/monitor"
	"github.com/law-makers/dealcrawl/internal/ratelimit"
	"github.com/law-makers/dealcrawl/pkg/models"
)

var errFake = errors.New("fake failure")

// fakeSite serves fixed HTML per address
type fakeSite struct {
	pages     map[string]string
	launchErr error
	clickErr  error
	// clickHangs makes Click wait for ctx, like chromedp on a hidden node
	clickHangs bool

	mu     sync.Mutex
	opened int
	visits []string
}

func (s *fakeSite) Launch(ctx context.Context) error { return s.launchErr }

func (s *fakeSite) NewPage(ctx context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	return &fakePage{site: s, id: fmt.Sprintf("tab-%d", s.opened)}, nil
}

func (s *fakeSite) Close() error { return nil }

type fakePage struct {
	site *fakeSite
	id   string

	mu      sync.Mutex
	address string
}

func (p *fakePage) ID() string { return p.id }

func (p *fakePage) AddScriptOnNewDocument(ctx context.Context, script string) error { return nil }

func (p *fakePage) Navigate(ctx context.Context, address string) error {
	p.site.mu.Lock()
	p.site.visits = append(p.site.visits, address)
	p.site.mu.Unlock()
	p.mu.Lock()
	p.address = address
	p.mu.Unlock()
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string, res interface{}) error { return nil }

func (p *fakePage) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.site.pages[p.address], nil
}

func (p *fakePage) Address(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address, nil
}

func (p *fakePage) Title(ctx context.Context) (string, error) { return "Fake", nil }

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error { return nil }

func (p *fakePage) Click(ctx context.Context, selector string) error {
	if p.site.clickHangs {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.site.clickErr
}

func (p *fakePage) SendKeys(ctx context.Context, selector, value string) error { return nil }

func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	return "text of " + selector, nil
}

func (p *fakePage) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (p *fakePage) Close(ctx context.Context) error { return nil }

// scriptedOracle returns answers in order, then repeats the last one
type scriptedOracle struct {
	answers []string
	err     error

	mu    sync.Mutex
	calls int
	html  []string
}

func (o *scriptedOracle) Decide(ctx context.Context, state *models.PageState, html string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.html = append(o.html, html)
	if o.err != nil {
		return "", o.err
	}
	i := o.calls - 1
	if i >= len(o.answers) {
		i = len(o.answers) - 1
	}
	return o.answers[i], nil
}

// memoryStore records saves in memory
type memoryStore struct {
	mu      sync.Mutex
	saved   []*models.Product
	history map[string][]float64
	saveErr error
}

func (s *memoryStore) SaveRecord(ctx context.Context, p *models.Product) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = append(s.saved, p)
	id := fmt.Sprintf("id-%d", len(s.saved))
	p.ID = id
	return id, nil
}

func (s *memoryStore) SaveHistoryPoint(ctx context.Context, id string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		s.history = make(map[string][]float64)
	}
	s.history[id] = append(s.history[id], price)
	return nil
}

func (s *memoryStore) History(ctx context.Context, url string) ([]models.PriceHistory, error) {
	return nil, nil
}

func (s *memoryStore) Close() error { return nil }

func newTestOrchestrator(site *fakeSite, oracle Oracle, st *memoryStore, cfg Config) *Orchestrator {
	m := monitor.New()
	session := browser.NewSession(site, browser.Options{
		ActionTimeout: 50 * time.Millisecond,
		Monitor:       m,
	})
	c := Components{
		Session: session,
		Oracle:  oracle,
		Limiter: ratelimit.NewHostLimiter(0),
		Monitor: m,
	}
	if st != nil {
		c.Store = st
	}
	return New(c, cfg)
}
