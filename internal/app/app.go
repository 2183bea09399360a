// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/law-makers/dealcrawl/internal/agent"
	"github.com/law-makers/dealcrawl/internal/auth"
	"github.com/law-makers/dealcrawl/internal/browser"
	"github.com/law-makers/dealcrawl/internal/cache"
	"github.com/law-makers/dealcrawl/internal/config"
	"github.com/law-makers/dealcrawl/internal/downloader"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/extract"
	"github.com/law-makers/dealcrawl/internal/monitor"
	"github.com/law-makers/dealcrawl/internal/oracle"
	"github.com/law-makers/dealcrawl/internal/proxy"
	"github.com/law-makers/dealcrawl/internal/ratelimit"
	"github.com/law-makers/dealcrawl/internal/retry"
	"github.com/law-makers/dealcrawl/internal/store"
	"github.com/law-makers/dealcrawl/internal/utils/headers"
	urlutil "github.com/law-makers/dealcrawl/internal/utils/url"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	Vault       *auth.Vault
	Cache       cache.Cache
	Oracle      *oracle.Adapter
	Sites       *extract.Registry
	SiteConfigs []extract.SiteConfig
	RateLimiter ratelimit.RateLimiter
	Proxies     *proxy.Pool

	storeMu   sync.Mutex
	store     *store.GormStore
	startTime time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Opens the credential vault and resolves the oracle API key
//   - Creates the oracle adapter with its answer cache
//   - Loads the site definitions into an extractor registry
//   - Creates the per-host rate limiter and proxy pool
//
// The record store and browsers are created on demand. If any step fails,
// an error is returned and resources created so far are released.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, engine.ConfigError("init", "config is required", nil)
	}

	logger := setupLogging(cfg.Logging)

	vault, err := auth.NewVault()
	if err != nil {
		logger.Warn().Err(err).Msg("Credential vault unavailable")
	}

	apiKey := cfg.Oracle.APIKey
	if apiKey == "" && vault != nil {
		if key, err := vault.Get(auth.OpenAIKey); err == nil {
			apiKey = key
		} else if !errors.Is(err, auth.ErrNotFound) {
			logger.Debug().Err(err).Msg("Could not read stored API key")
		}
	}

	backend, err := oracle.NewBackend(oracle.BackendConfig{
		Provider:    cfg.Oracle.Provider,
		APIKey:      apiKey,
		BaseURL:     cfg.Oracle.BaseURL,
		Model:       cfg.Oracle.Model,
		MaxTokens:   cfg.Oracle.MaxTokens,
		Temperature: cfg.Oracle.Temperature,
	})
	if err != nil {
		return nil, err
	}

	var counter oracle.TokenCounter = oracle.EstimateCounter{}
	if backend.Name() == oracle.ProviderOpenAI {
		counter = oracle.NewTiktokenCounter(cfg.Oracle.Model)
	}

	memCache := cache.NewMemoryCache(cfg.Oracle.CacheMaxBytes)
	adapter := oracle.NewAdapter(backend, counter, memCache, oracle.Options{
		PromptHTMLChars: cfg.Loop.PromptHTMLChars,
		TokenBudget:     cfg.Oracle.PromptTokenBudget,
		CacheTTL:        cfg.Oracle.CacheTTL,
		Retry:           retry.DefaultConfig(),
		Model:           cfg.Oracle.Model,
	})
	logger.Debug().
		Str("backend", backend.Name()).
		Str("model", cfg.Oracle.Model).
		Msg("Oracle initialized")

	siteConfigs := extract.DefaultSiteConfigs()
	if cfg.SitesFile != "" {
		siteConfigs, err = extract.LoadSiteConfigs(cfg.SitesFile)
		if err != nil {
			memCache.Close()
			return nil, err
		}
	}
	registry := extract.NewDefaultRegistry(siteConfigs)
	logger.Debug().Int("sites", len(siteConfigs)).Msg("Site registry initialized")

	var proxies *proxy.Pool
	if len(cfg.Browser.Proxies) > 0 {
		proxies = proxy.NewPool(cfg.Browser.Proxies, cfg.Browser.ProxyCooldown)
		logger.Debug().Int("proxies", proxies.Len()).Msg("Proxy pool initialized")
	}

	app := &Application{
		Config:      cfg,
		Logger:      &logger,
		Vault:       vault,
		Cache:       memCache,
		Oracle:      adapter,
		Sites:       registry,
		SiteConfigs: siteConfigs,
		RateLimiter: newLimiter(cfg.Loop.MinActionDelay, siteConfigs),
		Proxies:     proxies,
		startTime:   time.Now(),
	}

	logger.Info().Msg("Application initialized successfully")
	return app, nil
}

// newLimiter spaces actions per host, with per-site overrides
func newLimiter(minDelay time.Duration, sites []extract.SiteConfig) *ratelimit.HostLimiter {
	limiter := ratelimit.NewHostLimiter(minDelay)
	for _, sc := range sites {
		if sc.MinDelay <= 0 {
			continue
		}
		hosts := []string{urlutil.Hostname(sc.StartURL)}
		for _, h := range sc.Hosts {
			hosts = append(hosts, h, "www."+h)
		}
		for _, h := range hosts {
			if h != "" {
				limiter.SetDelay(h, sc.MinDelay)
			}
		}
	}
	return limiter
}

func setupLogging(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer
	if cfg.JSON {
		// JSON logs to stderr
		logWriter = os.Stderr
	} else {
		// Human-friendly console output otherwise
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(logWriter).With().Timestamp().Logger()
	log.Logger = logger
	logger.Debug().
		Str("level", level.String()).
		Bool("json", cfg.JSON).
		Msg("Logger initialized")
	return logger
}

// EnsureStore lazily opens the record store. It returns nil, nil when the
// store is disabled.
func (a *Application) EnsureStore() (*store.GormStore, error) {
	if a.Config.Store.Disabled {
		return nil, nil
	}

	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	if a.store != nil {
		return a.store, nil
	}

	s, err := store.Open(a.Config.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.Logger.Debug().Msg("Record store opened")
	return s, nil
}

// ExtraHeaders merges configured headers with the stored session for site
func (a *Application) ExtraHeaders(site string) map[string]string {
	h := headers.ParseHeaders(a.Config.Browser.Headers)
	if a.Vault == nil || site == "" {
		return h
	}
	sess, err := a.Vault.LoadSiteSession(site)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			a.Logger.Warn().Err(err).Str("site", site).Msg("Ignoring stored site session")
		}
		return h
	}
	for k, v := range sess.RequestHeaders() {
		h[k] = v
	}
	return h
}

// NewOrchestrator builds an agent loop with its own browser session.
// Callers must Close it.
func (a *Application) NewOrchestrator(site string) (*agent.Orchestrator, error) {
	cfg := a.Config

	chromeOpts := browser.ChromeOptions{
		Headless:     cfg.Browser.Headless,
		UserAgent:    cfg.Browser.UserAgent,
		ChromePath:   cfg.Browser.ChromePath,
		ExtraHeaders: a.ExtraHeaders(site),
	}
	if a.Proxies != nil {
		chromeOpts.Proxies = a.Proxies
	}

	m := monitor.New()
	session := browser.NewSession(browser.NewChromeBackend(chromeOpts), browser.Options{
		OpenSettleMin: cfg.Browser.OpenSettleMin,
		OpenSettleMax: cfg.Browser.OpenSettleMax,
		ActionSettle:  cfg.Browser.ActionSettle,
		WaitTimeout:   cfg.Browser.WaitTimeout,
		ActionTimeout: cfg.Browser.ActionTimeout,
		Monitor:       m,
	})

	components := agent.Components{
		Session:    session,
		Oracle:     a.Oracle,
		Extractors: a.Sites,
		Limiter:    a.RateLimiter,
		Monitor:    m,
	}
	st, err := a.EnsureStore()
	if err != nil {
		_ = session.Close()
		return nil, err
	}
	if st != nil {
		components.Store = st
	}

	return agent.New(components, agent.Config{
		MaxActions:       cfg.Loop.MaxActions,
		FailureThreshold: cfg.Loop.FailureThreshold,
		MinActionDelay:   cfg.Loop.MinActionDelay,
		TabLimit:         cfg.Browser.MaxTabs,
		Site:             site,
	}), nil
}

// RunJob runs one job to completion and releases its browser. It satisfies
// agent.Runner.
func (a *Application) RunJob(ctx context.Context, job agent.Job) (*agent.Report, error) {
	o, err := a.NewOrchestrator(job.Site)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := o.Close(); err != nil {
			a.Logger.Warn().Err(err).Str("site", job.Site).Msg("Error closing browser")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, a.Config.Loop.Timeout)
	defer cancel()
	return o.Run(ctx, job.Start)
}

// Jobs returns one job per enabled site with a start URL. A non-empty only
// list restricts the result to those site names.
func (a *Application) Jobs(only ...string) ([]agent.Job, error) {
	want := make(map[string]bool, len(only))
	for _, name := range only {
		want[name] = true
	}

	var jobs []agent.Job
	for _, sc := range a.SiteConfigs {
		if len(want) > 0 && !want[sc.Name] {
			continue
		}
		if len(want) == 0 && !sc.Enabled {
			continue
		}
		if sc.StartURL == "" {
			a.Logger.Warn().Str("site", sc.Name).Msg("Site has no start URL, skipping")
			continue
		}
		jobs = append(jobs, agent.Job{Site: sc.Name, Start: sc.StartURL})
	}
	if len(jobs) == 0 {
		return nil, engine.ConfigError("jobs", "no runnable sites", nil)
	}
	return jobs, nil
}

// DownloadImages saves the images of products under dir
func (a *Application) DownloadImages(ctx context.Context, dir string, products []*models.Product) []*downloader.Result {
	d := downloader.New(downloader.Options{
		OutputDir: dir,
		UserAgent: a.Config.Browser.UserAgent,
		Headers:   headers.ParseHeaders(a.Config.Browser.Headers),
		Limiter:   a.RateLimiter,
	})
	return downloader.NewWorkerPool(d, 4).DownloadAll(ctx, products)
}

// SiteConfigsByName indexes the loaded site definitions
func (a *Application) SiteConfigsByName() map[string]extract.SiteConfig {
	out := make(map[string]extract.SiteConfig, len(a.SiteConfigs))
	for _, sc := range a.SiteConfigs {
		out[sc.Name] = sc
	}
	return out
}

// Close gracefully shuts down the application and all its resources.
// Any errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	var firstErr error
	a.storeMu.Lock()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing record store")
			firstErr = err
		}
		a.store = nil
	}
	a.storeMu.Unlock()

	if a.Cache != nil {
		a.Cache.Close()
	}

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	if firstErr != nil {
		return fmt.Errorf("shutdown: %w", firstErr)
	}
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
