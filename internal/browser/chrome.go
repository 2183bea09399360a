package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/dealcrawl/internal/config"
	"github.com/rs/zerolog/log"
)

// ProxySource hands out proxies for browser launches
type ProxySource interface {
	GetNext() string
	MarkFailed(proxy string)
	MarkHealthy(proxy string)
}

// ChromeOptions configures the chromedp backend
type ChromeOptions struct {
	Headless     bool
	UserAgent    string
	ChromePath   string
	Proxy        string
	Proxies      ProxySource
	ExtraHeaders map[string]string
	ExtraArgs    []chromedp.ExecAllocatorOption
}

// ChromeBackend runs a local Chrome through chromedp. Every page is its own
// target inside one browser process.
type ChromeBackend struct {
	opts ChromeOptions

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	proxy         string
	closed        bool
}

// NewChromeBackend creates a backend; the browser starts on Launch
func NewChromeBackend(opts ChromeOptions) *ChromeBackend {
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	return &ChromeBackend{opts: opts}
}

func (b *ChromeBackend) allocatorOptions(proxy string) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("lang", "ko-KR"),
		chromedp.UserAgent(b.opts.UserAgent),
	}

	chromePath := b.opts.ChromePath
	if chromePath == "" {
		chromePath = FindChrome()
	}
	if chromePath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
	}

	if b.opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	if proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxy))
	}

	return append(allocOpts, b.opts.ExtraArgs...)
}

// Launch starts the browser process
func (b *ChromeBackend) Launch(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrSessionClosed
	}
	if b.browserCtx != nil {
		return nil
	}

	proxy := b.opts.Proxy
	if proxy == "" && b.opts.Proxies != nil {
		proxy = b.opts.Proxies.GetNext()
	}

	log.Debug().Bool("headless", b.opts.Headless).Str("proxy", proxy).Msg("Launching browser")

	// The allocator outlives ctx; it is torn down in Close
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), b.allocatorOptions(proxy)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	launched := make(chan error, 1)
	go func() { launched <- chromedp.Run(browserCtx) }()

	select {
	case err := <-launched:
		if err != nil {
			browserCancel()
			allocCancel()
			if proxy != "" && b.opts.Proxies != nil {
				b.opts.Proxies.MarkFailed(proxy)
			}
			return fmt.Errorf("failed to launch browser: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return ctx.Err()
	}

	if proxy != "" && b.opts.Proxies != nil {
		b.opts.Proxies.MarkHealthy(proxy)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.proxy = proxy

	log.Info().Msg("Browser launched")
	return nil
}

// NewPage opens a blank target and attaches a chromedp context to it
func (b *ChromeBackend) NewPage(ctx context.Context) (Page, error) {
	b.mu.Lock()
	browserCtx := b.browserCtx
	closed := b.closed
	b.mu.Unlock()

	if closed {
		return nil, ErrSessionClosed
	}
	if browserCtx == nil {
		return nil, ErrNotStarted
	}

	var targetID target.ID
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		targetID, err = target.CreateTarget("about:blank").Do(c)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create target: %w", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(targetID))

	setup := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(b.opts.UserAgent).WithAcceptLanguage("ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7"),
	}
	if len(b.opts.ExtraHeaders) > 0 {
		h := make(network.Headers, len(b.opts.ExtraHeaders))
		for k, v := range b.opts.ExtraHeaders {
			h[k] = v
		}
		setup = append(setup, network.SetExtraHTTPHeaders(h))
	}
	if err := runWithContext(ctx, tabCtx, setup); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to prepare tab: %w", err)
	}

	log.Debug().Str("target", string(targetID)).Msg("Tab created")

	return &chromePage{id: string(targetID), ctx: tabCtx, cancel: tabCancel}, nil
}

// Close stops the browser process. Safe to call more than once.
func (b *ChromeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}

	log.Info().Msg("Browser closed")
	return nil
}

// chromePage implements Page on top of a chromedp tab context
type chromePage struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

// runWithContext runs actions on the tab while honouring the caller's ctx.
// The tab context itself must stay alive across calls, so ctx is only
// watched, never used as the parent.
func runWithContext(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()

	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (p *chromePage) ID() string { return p.id }

func (p *chromePage) AddScriptOnNewDocument(ctx context.Context, script string) error {
	return runWithContext(ctx, p.ctx, chromedp.ActionFunc(func(c context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(c)
		return err
	}))
}

func (p *chromePage) Navigate(ctx context.Context, address string) error {
	return runWithContext(ctx, p.ctx, chromedp.Navigate(address))
}

func (p *chromePage) Evaluate(ctx context.Context, script string, res interface{}) error {
	return runWithContext(ctx, p.ctx, chromedp.Evaluate(script, res))
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var html string
	err := runWithContext(ctx, p.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Address(ctx context.Context) (string, error) {
	var address string
	err := runWithContext(ctx, p.ctx, chromedp.Location(&address))
	return address, err
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	var title string
	err := runWithContext(ctx, p.ctx, chromedp.Title(&title))
	return title, err
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string) error {
	return runWithContext(ctx, p.ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return runWithContext(ctx, p.ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *chromePage) SendKeys(ctx context.Context, selector, value string) error {
	return runWithContext(ctx, p.ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := runWithContext(ctx, p.ctx, chromedp.Text(selector, &text, chromedp.ByQuery))
	return text, err
}

func (p *chromePage) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := runWithContext(ctx, p.ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (p *chromePage) Close(ctx context.Context) error {
	defer p.cancel()
	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return runWithContext(closeCtx, p.ctx, page.Close())
}
