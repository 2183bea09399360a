package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var errFake = errors.New("fake failure")

type fakeBackend struct {
	launches  atomic.Int32
	pages     atomic.Int32
	closes    atomic.Int32
	launchErr error
	html      string
	// hang makes new pages block like chromedp on a node that never shows
	hang bool

	mu      sync.Mutex
	created []*fakePage
}

func (b *fakeBackend) Launch(ctx context.Context) error {
	b.launches.Add(1)
	return b.launchErr
}

func (b *fakeBackend) NewPage(ctx context.Context) (Page, error) {
	n := b.pages.Add(1)
	p := &fakePage{id: fmt.Sprintf("tab-%d", n), html: b.html, hang: b.hang}
	b.mu.Lock()
	b.created = append(b.created, p)
	b.mu.Unlock()
	return p, nil
}

func (b *fakeBackend) Close() error {
	b.closes.Add(1)
	return nil
}

type fakePage struct {
	id   string
	html string

	mu          sync.Mutex
	address     string
	scripts     []string
	evaluated   []string
	clicked     []string
	closed      bool
	navigateErr error
	clickErr    error
	hang        bool
}

// block waits for ctx when the page is set to hang
func (p *fakePage) block(ctx context.Context) error {
	p.mu.Lock()
	hang := p.hang
	p.mu.Unlock()
	if !hang {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) setHang(hang bool) {
	p.mu.Lock()
	p.hang = hang
	p.mu.Unlock()
}

func (p *fakePage) ID() string { return p.id }

func (p *fakePage) AddScriptOnNewDocument(ctx context.Context, script string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = append(p.scripts, script)
	return nil
}

func (p *fakePage) Navigate(ctx context.Context, address string) error {
	if err := p.block(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navigateErr != nil {
		return p.navigateErr
	}
	p.address = address
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string, res interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evaluated = append(p.evaluated, script)
	return nil
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	return p.html, nil
}

func (p *fakePage) Address(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", errFake
	}
	return p.address, nil
}

func (p *fakePage) Title(ctx context.Context) (string, error) {
	return "Fake Title", nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	if selector == "#never" {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	if err := p.block(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clickErr != nil {
		return p.clickErr
	}
	p.clicked = append(p.clicked, selector)
	return nil
}

func (p *fakePage) SendKeys(ctx context.Context, selector, value string) error {
	return nil
}

func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	if err := p.block(ctx); err != nil {
		return "", err
	}
	return "text of " + selector, nil
}

func (p *fakePage) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (p *fakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) setAddress(address string) {
	p.mu.Lock()
	p.address = address
	p.mu.Unlock()
}

// quickOptions disables every pause
func quickOptions() Options {
	return Options{}
}

func startedSession(b *fakeBackend) *Session {
	s := NewSession(b, quickOptions())
	if err := s.EnsureStarted(context.Background()); err != nil {
		panic(err)
	}
	return s
}
