// Package agent runs the browse-decide-act loop: the oracle picks an action
// for the current page, the browser session performs it, and product pages
// found along the way are extracted and stored.
package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/law-makers/dealcrawl/internal/browser"
	"github.com/law-makers/dealcrawl/internal/decision"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/extract"
	"github.com/law-makers/dealcrawl/internal/monitor"
	"github.com/law-makers/dealcrawl/internal/ratelimit"
	"github.com/law-makers/dealcrawl/internal/reqctx"
	"github.com/law-makers/dealcrawl/internal/store"
	urlutil "github.com/law-makers/dealcrawl/internal/utils/url"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Oracle answers with raw text describing the next action
type Oracle interface {
	Decide(ctx context.Context, state *models.PageState, html string) (string, error)
}

// Config bounds one loop
type Config struct {
	MaxActions       int
	FailureThreshold int
	// MinActionDelay spaces actions on the same host
	MinActionDelay time.Duration
	TabLimit       int
	// Site labels logs and the run context
	Site string
}

// DefaultConfig returns the standard loop limits
func DefaultConfig() Config {
	return Config{
		MaxActions:       20,
		FailureThreshold: 3,
		MinActionDelay:   time.Second,
		TabLimit:         browser.DefaultTabLimit,
	}
}

// Components are the collaborators of an Orchestrator. Session and Oracle
// are required; the rest have defaults or are optional.
type Components struct {
	Session    *browser.Session
	Oracle     Oracle
	Extractors *extract.Registry
	// Store is optional; without it records are collected but not saved
	Store   store.Store
	Limiter ratelimit.RateLimiter
	Monitor *monitor.Monitor
}

// Step describes one finished loop iteration
type Step struct {
	Index    int
	Decision models.Decision
	Action   string
	Address  string
	Err      error
	Elapsed  time.Duration
}

// Report summarises a finished run
type Report struct {
	RunID        string            `json:"run_id"`
	StartAddress string            `json:"start_address"`
	Reason       Reason            `json:"reason"`
	Actions      int               `json:"actions"`
	Records      []string          `json:"records"`
	Products     []*models.Product `json:"products"`
	Snapshot     monitor.Snapshot  `json:"snapshot"`
	Duration     time.Duration     `json:"duration"`
}

// Orchestrator drives one agent loop. It owns a Session and a TabCache.
type Orchestrator struct {
	session    *browser.Session
	tabs       *browser.TabCache
	oracle     Oracle
	extractors *extract.Registry
	store      store.Store
	limiter    ratelimit.RateLimiter
	monitor    *monitor.Monitor
	cfg        Config

	// OnStep, when set, is called after every iteration
	OnStep func(Step)

	state   atomic.Int32
	stopped atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New wires an Orchestrator
func New(c Components, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = def.MaxActions
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.TabLimit <= 0 {
		cfg.TabLimit = def.TabLimit
	}
	if c.Monitor == nil {
		c.Monitor = monitor.New()
	}
	if c.Extractors == nil {
		c.Extractors = extract.NewDefaultRegistry(nil)
	}
	if c.Limiter == nil {
		c.Limiter = ratelimit.NewHostLimiter(cfg.MinActionDelay)
	}

	o := &Orchestrator{
		session:    c.Session,
		oracle:     c.Oracle,
		extractors: c.Extractors,
		store:      c.Store,
		limiter:    c.Limiter,
		monitor:    c.Monitor,
		cfg:        cfg,
	}
	o.tabs = browser.NewTabCache(c.Session, cfg.TabLimit)
	o.tabs.OnEvict = func(base string, tab *browser.Tab) {
		if err := c.Session.CloseTab(context.Background(), tab); err != nil {
			log.Debug().Err(err).Str("base", base).Msg("Closing evicted tab failed")
		}
	}
	return o
}

// State returns the current loop state
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Monitor returns the loop's monitor
func (o *Orchestrator) Monitor() *monitor.Monitor {
	return o.monitor
}

// Tabs returns the loop's tab cache
func (o *Orchestrator) Tabs() *browser.TabCache {
	return o.tabs
}

// Stop asks a running loop to terminate. Blocking steps are interrupted.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
}

// Close drops cached tabs and shuts the browser session down
func (o *Orchestrator) Close() error {
	o.tabs.Clear()
	return o.session.Close()
}

// Run drives the loop from startAddress until a termination condition holds.
// Only startup failures are returned as errors; failures inside the loop are
// counted and reflected in the report.
func (o *Orchestrator) Run(ctx context.Context, startAddress string) (*Report, error) {
	ctx = reqctx.WithRun(ctx, o.cfg.Site)
	run := reqctx.GetRun(ctx)
	logger := reqctx.Logger(ctx, log.Logger)

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	o.setState(StateIdle)
	report := &Report{RunID: run.RunID, StartAddress: startAddress}

	if err := urlutil.ValidateURL(startAddress); err != nil {
		o.setState(StateTerminated)
		return nil, engine.ValidationError("run", "invalid start address", err)
	}

	// Idle -> Navigated
	if err := o.session.EnsureStarted(ctx); err != nil {
		o.setState(StateTerminated)
		return nil, reqctx.NewRunError(ctx, err)
	}
	tab, err := o.tabs.GetOrCreate(ctx, startAddress)
	if err != nil {
		o.setState(StateTerminated)
		return nil, reqctx.NewRunError(ctx, err)
	}
	start := time.Now()
	current, err := o.session.Execute(ctx, tab, models.GetState{})
	if err != nil {
		o.setState(StateTerminated)
		return nil, reqctx.NewRunError(ctx, err)
	}
	o.monitor.RecordSuccess(time.Since(start))
	o.setState(StateNavigated)

	logger.Info().Str("address", current.Address).Str("state", o.State().String()).Msg("Agent loop started")

	lastHTML := current.HTMLString()
	cacheKey := startAddress
	seen := make(map[string]bool)
	o.evaluate(ctx, logger, current, lastHTML, report, seen)

	for {
		if reason, done := o.shouldTerminate(ctx, report.Actions); done {
			report.Reason = reason
			break
		}
		report.Actions++

		// AwaitingDecision
		o.setState(StateAwaitingDecision)
		stepStart := time.Now()
		if err := o.limiter.Wait(ctx, current.Address); err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Debug().Err(err).Msg("Rate limiter wait failed")
		}

		raw, err := o.oracle.Decide(ctx, current, lastHTML)
		if err != nil {
			n := o.monitor.RecordFailure(time.Since(stepStart), err)
			logger.Warn().Err(err).Uint64("consecutive_failures", n).Msg("Oracle failed")
			o.notify(Step{Index: report.Actions, Address: current.Address, Err: err, Elapsed: time.Since(stepStart)})
			continue
		}
		d := decision.ParseSafe(raw)

		// Executing
		o.setState(StateExecuting)
		action := MapDecision(d, o.productLinks(current.Address, lastHTML))
		execStart := time.Now()
		next, err := o.session.Execute(ctx, tab, action)
		elapsed := time.Since(execStart)

		step := Step{
			Index:    report.Actions,
			Decision: d,
			Action:   models.DescribeAction(action),
			Address:  current.Address,
			Elapsed:  time.Since(stepStart),
		}
		if err != nil {
			n := o.monitor.RecordFailure(elapsed, err)
			logger.Warn().
				Err(err).
				Str("action", step.Action).
				Uint64("consecutive_failures", n).
				Msg("Action failed")
			step.Err = err
			o.notify(step)
			continue
		}
		o.monitor.RecordSuccess(elapsed)

		// Evaluated
		o.setState(StateEvaluated)
		if next.Address != "" && !urlutil.SameHost(cacheKey, next.Address) {
			o.tabs.Rekey(cacheKey, next.Address)
			cacheKey = next.Address
		}
		if next.HTML != nil {
			lastHTML = *next.HTML
		}
		current = next
		step.Address = current.Address

		logger.Info().
			Str("state", o.State().String()).
			Str("action", step.Action).
			Str("reason", d.Rationale).
			Str("address", current.Address).
			Dur("elapsed", step.Elapsed).
			Msg("Action executed")

		o.evaluate(ctx, logger, current, lastHTML, report, seen)
		o.notify(step)
	}

	o.setState(StateTerminated)
	report.Snapshot = o.monitor.Snapshot()
	report.Duration = time.Since(run.StartTime)

	logger.Info().
		Str("reason", string(report.Reason)).
		Int("actions", report.Actions).
		Int("records", len(report.Records)).
		Uint64("failures", report.Snapshot.FailedRequests).
		Dur("duration", report.Duration).
		Msg("Agent loop terminated")
	return report, nil
}

func (o *Orchestrator) shouldTerminate(ctx context.Context, actions int) (Reason, bool) {
	switch {
	case o.stopped.Load():
		return ReasonStopped, true
	case ctx.Err() != nil:
		return ReasonCancelled, true
	case o.monitor.ConsecutiveFailures() >= uint64(o.cfg.FailureThreshold):
		return ReasonFailureThreshold, true
	case actions >= o.cfg.MaxActions:
		return ReasonMaxActions, true
	}
	return "", false
}

func (o *Orchestrator) notify(s Step) {
	if o.OnStep != nil {
		o.OnStep(s)
	}
}

// productLinks lists product links on the page, resolved against address
func (o *Orchestrator) productLinks(address, html string) []string {
	if html == "" {
		return nil
	}
	links, err := o.extractors.Select(address).ExtractListURLs(html)
	if err != nil {
		log.Debug().Err(err).Str("address", address).Msg("Listing links unavailable")
		return nil
	}
	return urlutil.ResolveAll(address, links)
}

// looksLikeProduct is the cheap check that decides whether extraction runs
func looksLikeProduct(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "product") || strings.Contains(lower, "price")
}

// evaluate runs extraction and persistence when the page looks like a
// product. Failures here are recorded and the item is skipped.
func (o *Orchestrator) evaluate(ctx context.Context, logger zerolog.Logger, state *models.PageState, html string, report *Report, seen map[string]bool) {
	text := state.HTMLString()
	if text == "" {
		text = state.TextString()
	}
	if !looksLikeProduct(text) || html == "" || seen[state.Address] {
		return
	}

	ex := o.extractors.Select(state.Address)
	p, err := ex.ExtractRecord(html, state.Address)
	if err != nil {
		if errors.Is(err, extract.ErrNoProduct) {
			logger.Debug().Str("address", state.Address).Msg("No product on page")
			return
		}
		o.monitor.RecordError(engine.KindOf(err))
		logger.Warn().Err(err).Str("extractor", ex.Name()).Msg("Extraction failed")
		return
	}
	seen[state.Address] = true
	report.Products = append(report.Products, p)
	o.monitor.AddItems(1)

	if o.store == nil {
		return
	}
	id, err := o.store.SaveRecord(ctx, p)
	if err != nil {
		o.monitor.RecordError(engine.KindPersistence)
		logger.Warn().Err(err).Str("url", p.URL).Msg("Saving product failed")
		return
	}
	report.Records = append(report.Records, id)

	if p.CurrentPrice != nil {
		if err := o.store.SaveHistoryPoint(ctx, id, *p.CurrentPrice); err != nil {
			o.monitor.RecordError(engine.KindPersistence)
			logger.Warn().Err(err).Str("id", id).Msg("Saving price point failed")
		}
	}
	logger.Info().Str("id", id).Str("name", p.Name).Msg("Product recorded")
}
