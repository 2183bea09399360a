package browser

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/monitor"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

//go:embed stealth.js
var stealthScript string

const humanScrollScript = `window.scrollBy(0, Math.random() * 300)`

// Options tunes the pacing of a Session
type Options struct {
	// OpenSettleMin and OpenSettleMax bound the random pause after a tab
	// first loads
	OpenSettleMin time.Duration
	OpenSettleMax time.Duration
	// ActionSettle is the pause after click, scroll and fill
	ActionSettle time.Duration
	// WaitTimeout is used by WaitForElement when the action has none
	WaitTimeout time.Duration
	// ActionTimeout bounds the browser calls of one action or tab load. A
	// missing or hidden node makes chromedp wait forever without it.
	ActionTimeout time.Duration
	// Monitor, when set, tracks the open tab count
	Monitor *monitor.Monitor
}

// DefaultOptions returns the standard pacing
func DefaultOptions() Options {
	return Options{
		OpenSettleMin: 2 * time.Second,
		OpenSettleMax: 5 * time.Second,
		ActionSettle:  500 * time.Millisecond,
		WaitTimeout:   10 * time.Second,
		ActionTimeout: DefaultActionTimeout,
	}
}

// DefaultActionTimeout is used when Options leaves ActionTimeout unset
const DefaultActionTimeout = 15 * time.Second

// Tab is a page owned by a Session
type Tab struct {
	page     Page
	openedAt time.Time

	mu      sync.Mutex
	address string
	closed  bool
}

// ID returns the backend target id
func (t *Tab) ID() string {
	return t.page.ID()
}

// LastAddress returns the address seen after the most recent action
func (t *Tab) LastAddress() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.address
}

// Closed reports whether the tab was closed
func (t *Tab) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// LiveAddress asks the page for its current address
func (t *Tab) LiveAddress(ctx context.Context) (string, error) {
	if t.Closed() {
		return "", fmt.Errorf("tab %s closed", t.ID())
	}
	address, err := t.page.Address(ctx)
	if err != nil {
		return "", err
	}
	t.setAddress(address)
	return address, nil
}

func (t *Tab) setAddress(address string) {
	t.mu.Lock()
	t.address = address
	t.mu.Unlock()
}

// Session owns one browser and the tabs opened in it
type Session struct {
	backend Backend
	opts    Options

	startMu sync.Mutex
	started atomic.Bool
	closed  atomic.Bool

	tabsMu sync.Mutex
	tabs   map[string]*Tab
}

// NewSession creates a Session; the browser is launched by EnsureStarted
func NewSession(backend Backend, opts Options) *Session {
	if opts.OpenSettleMax < opts.OpenSettleMin {
		opts.OpenSettleMax = opts.OpenSettleMin
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}
	return &Session{
		backend: backend,
		opts:    opts,
		tabs:    make(map[string]*Tab),
	}
}

// EnsureStarted launches the browser on first use; later calls return at once
func (s *Session) EnsureStarted(ctx context.Context) error {
	if s.started.Load() {
		return nil
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.closed.Load() {
		return engine.BrowserError("launch", "session closed", ErrSessionClosed)
	}
	if s.started.Load() {
		return nil
	}

	start := time.Now()
	if err := s.backend.Launch(ctx); err != nil {
		return engine.BrowserError("launch", "failed to launch browser", err)
	}
	s.started.Store(true)

	log.Debug().Dur("duration", time.Since(start)).Msg("Browser session started")
	return nil
}

// Started reports whether the browser has been launched
func (s *Session) Started() bool {
	return s.started.Load()
}

// OpenTab creates a stealth-patched tab, loads address and lets it settle the
// way a person would before the first action
func (s *Session) OpenTab(ctx context.Context, address string) (*Tab, error) {
	if s.closed.Load() {
		return nil, engine.BrowserError("open_tab", "session closed", ErrSessionClosed).WithDetail("address", address)
	}
	if !s.started.Load() {
		return nil, engine.BrowserError("open_tab", "session not started", ErrNotStarted).WithDetail("address", address)
	}

	page, err := s.backend.NewPage(ctx)
	if err != nil {
		return nil, engine.BrowserError("open_tab", "failed to create page", err).WithDetail("address", address)
	}

	tab := &Tab{page: page, openedAt: time.Now(), address: address}

	fail := func(msg string, err error) (*Tab, error) {
		_ = page.Close(context.Background())
		return nil, engine.BrowserError("open_tab", msg, err).WithDetail("address", address)
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.opts.ActionTimeout)
	err = page.AddScriptOnNewDocument(loadCtx, stealthScript)
	if err == nil {
		err = page.Navigate(loadCtx, address)
	}
	cancel()
	if err != nil {
		return fail("navigation failed", err)
	}

	if err := sleepCtx(ctx, randomBetween(s.opts.OpenSettleMin, s.opts.OpenSettleMax)); err != nil {
		return fail("interrupted while settling", err)
	}
	scrollCtx, cancel := context.WithTimeout(ctx, s.opts.ActionTimeout)
	if err := page.Evaluate(scrollCtx, humanScrollScript, nil); err != nil {
		log.Debug().Err(err).Str("address", address).Msg("Human scroll failed")
	}
	cancel()
	if err := sleepCtx(ctx, randomBetween(s.opts.ActionSettle, 3*s.opts.ActionSettle)); err != nil {
		return fail("interrupted while settling", err)
	}

	addrCtx, cancel := context.WithTimeout(ctx, s.opts.ActionTimeout)
	if live, err := page.Address(addrCtx); err == nil && live != "" {
		tab.setAddress(live)
	}
	cancel()

	s.tabsMu.Lock()
	s.tabs[page.ID()] = tab
	s.tabsMu.Unlock()

	if s.opts.Monitor != nil {
		s.opts.Monitor.TabOpened()
	}

	log.Debug().Str("tab", page.ID()).Str("address", tab.LastAddress()).Msg("Tab opened")
	return tab, nil
}

// Execute performs one action on tab and returns the resulting page state.
// Failures are retryable BrowserErrors; the Session itself never retries.
func (s *Session) Execute(ctx context.Context, tab *Tab, action models.BrowserAction) (*models.PageState, error) {
	if err := models.ValidateAction(action); err != nil {
		return nil, engine.ValidationError("execute", err.Error(), nil)
	}
	kind := action.Kind()

	if s.closed.Load() {
		return nil, s.actionError(kind, tab, "session closed", ErrSessionClosed)
	}
	if tab == nil || tab.Closed() {
		return nil, engine.BrowserError(string(kind), "tab is closed", nil).WithDetail("kind", string(kind))
	}

	page := tab.page

	// The whole action, settle and state read included, shares one deadline.
	// Expiry is reported as a retryable BrowserError and leaves ctx intact.
	budget := s.opts.ActionTimeout
	if w, ok := action.(models.WaitForElement); ok {
		budget += s.waitTimeout(w)
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	switch a := action.(type) {
	case models.Navigate:
		if err := page.Navigate(ctx, a.Address); err != nil {
			return nil, s.actionError(kind, tab, "navigation failed", err)
		}
		return s.fullState(ctx, tab, kind)

	case models.Click:
		if err := page.Click(ctx, a.Selector); err != nil {
			return nil, s.actionError(kind, tab, fmt.Sprintf("click %q failed", a.Selector), err)
		}
		if err := sleepCtx(ctx, s.opts.ActionSettle); err != nil {
			return nil, s.actionError(kind, tab, "interrupted while settling", err)
		}
		return s.fullState(ctx, tab, kind)

	case models.Scroll:
		if err := page.Evaluate(ctx, scrollScript(a), nil); err != nil {
			return nil, s.actionError(kind, tab, "scroll failed", err)
		}
		if err := sleepCtx(ctx, s.opts.ActionSettle); err != nil {
			return nil, s.actionError(kind, tab, "interrupted while settling", err)
		}
		return s.fullState(ctx, tab, kind)

	case models.ExtractText:
		selector := a.Selector
		if selector == "" {
			selector = "body"
		}
		text, err := page.Text(ctx, selector)
		if err != nil {
			return nil, s.actionError(kind, tab, fmt.Sprintf("extract %q failed", selector), err)
		}
		state := s.baseState(ctx, tab)
		state.ExtractedText = &text
		return state, nil

	case models.Screenshot:
		buf, err := page.CaptureScreenshot(ctx)
		if err != nil {
			return nil, s.actionError(kind, tab, "screenshot failed", err)
		}
		state := s.baseState(ctx, tab)
		state.Screenshot = buf
		return state, nil

	case models.WaitForElement:
		waitCtx, cancelWait := context.WithTimeout(ctx, s.waitTimeout(a))
		err := page.WaitVisible(waitCtx, a.Selector)
		cancelWait()
		if err != nil {
			return nil, s.actionError(kind, tab, fmt.Sprintf("wait for %q failed", a.Selector), err)
		}
		return s.fullState(ctx, tab, kind)

	case models.FillField:
		if err := page.SendKeys(ctx, a.Selector, a.Value); err != nil {
			return nil, s.actionError(kind, tab, fmt.Sprintf("fill %q failed", a.Selector), err)
		}
		if err := sleepCtx(ctx, s.opts.ActionSettle); err != nil {
			return nil, s.actionError(kind, tab, "interrupted while settling", err)
		}
		return s.fullState(ctx, tab, kind)

	case models.ExecuteScript:
		if err := page.Evaluate(ctx, a.Script, nil); err != nil {
			return nil, s.actionError(kind, tab, "script failed", err)
		}
		return s.fullState(ctx, tab, kind)

	case models.GetState:
		return s.fullState(ctx, tab, kind)

	default:
		return nil, engine.ValidationError("execute", fmt.Sprintf("unsupported action %T", action), nil)
	}
}

// CloseTab closes one tab. Closing an already closed tab is a no-op.
func (s *Session) CloseTab(ctx context.Context, tab *Tab) error {
	if tab == nil {
		return nil
	}

	tab.mu.Lock()
	if tab.closed {
		tab.mu.Unlock()
		return nil
	}
	tab.closed = true
	tab.mu.Unlock()

	s.tabsMu.Lock()
	delete(s.tabs, tab.ID())
	s.tabsMu.Unlock()

	if s.opts.Monitor != nil {
		s.opts.Monitor.TabClosed()
	}

	if err := tab.page.Close(ctx); err != nil {
		return engine.BrowserError("close_tab", "failed to close tab", err).WithDetail("tab", tab.ID())
	}
	log.Debug().Str("tab", tab.ID()).Msg("Tab closed")
	return nil
}

// Close closes every tab and the browser. Safe to call more than once.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.tabsMu.Lock()
	tabs := make([]*Tab, 0, len(s.tabs))
	for _, t := range s.tabs {
		tabs = append(tabs, t)
	}
	s.tabsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, t := range tabs {
		if err := s.CloseTab(ctx, t); err != nil {
			log.Debug().Err(err).Msg("Tab close failed during shutdown")
		}
	}

	if err := s.backend.Close(); err != nil {
		return engine.BrowserError("close", "failed to close browser", err)
	}
	log.Debug().Msg("Browser session closed")
	return nil
}

// OpenTabs returns the number of tabs still open
func (s *Session) OpenTabs() int {
	s.tabsMu.Lock()
	defer s.tabsMu.Unlock()
	return len(s.tabs)
}

// baseState records address and title without reading the document
func (s *Session) baseState(ctx context.Context, tab *Tab) *models.PageState {
	state := &models.PageState{CapturedAt: time.Now()}
	if address, err := tab.page.Address(ctx); err == nil {
		tab.setAddress(address)
	}
	state.Address = tab.LastAddress()
	if title, err := tab.page.Title(ctx); err == nil {
		state.Title = title
	}
	return state
}

func (s *Session) fullState(ctx context.Context, tab *Tab, kind models.ActionKind) (*models.PageState, error) {
	state := s.baseState(ctx, tab)
	html, err := tab.page.Content(ctx)
	if err != nil {
		return nil, s.actionError(kind, tab, "failed to read page content", err)
	}
	state.HTML = &html
	state.InteractiveElements = InteractiveElements(html)
	return state, nil
}

func (s *Session) waitTimeout(a models.WaitForElement) time.Duration {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return s.opts.WaitTimeout
}

func (s *Session) actionError(kind models.ActionKind, tab *Tab, msg string, err error) *engine.Error {
	e := engine.BrowserError(string(kind), msg, err).WithDetail("kind", string(kind))
	if tab != nil {
		e = e.WithDetail("address", tab.LastAddress())
	}
	return e
}

func scrollScript(a models.Scroll) string {
	amount := fmt.Sprintf("%d", a.Amount)
	switch a.Direction {
	case models.ScrollUp:
		if a.Amount <= 0 {
			amount = "window.innerHeight"
		}
		return fmt.Sprintf("window.scrollBy(0, -(%s))", amount)
	case models.ScrollLeft:
		if a.Amount <= 0 {
			amount = "window.innerWidth"
		}
		return fmt.Sprintf("window.scrollBy(-(%s), 0)", amount)
	case models.ScrollRight:
		if a.Amount <= 0 {
			amount = "window.innerWidth"
		}
		return fmt.Sprintf("window.scrollBy(%s, 0)", amount)
	default:
		if a.Amount <= 0 {
			amount = "window.innerHeight"
		}
		return fmt.Sprintf("window.scrollBy(0, %s)", amount)
	}
}

func randomBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
