package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/law-makers/dealcrawl/internal/cache"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/reqctx"
	"github.com/law-makers/dealcrawl/internal/retry"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	pageMarker    = "Current page: "
	titleMarker   = "Title: "
	summaryMarker = "Page summary:"
	htmlMarker    = "HTML: "
)

const actionMenu = `Choose exactly one action:
- click: click a link or button on the page
- scroll: scroll down to load more of the page
- extract: read the information on the current page
- navigate: open the N-th listing link found on the page (value = N)
- wait: wait for the page to finish loading (value = milliseconds)
- screenshot: capture the visible page

Response format: action: [name], value: 1, reason: [why]`

// Options bounds what the adapter sends to the backend
type Options struct {
	// PromptHTMLChars is how much raw HTML the prompt carries
	PromptHTMLChars int
	// TokenBudget caps the whole prompt; the page summary is trimmed to fit
	TokenBudget int
	// CacheTTL is how long an answer is reused for an identical prompt
	CacheTTL time.Duration
	Retry    retry.Config
	// Model is part of the cache key
	Model string
}

// DefaultOptions returns the standard prompt limits
func DefaultOptions() Options {
	return Options{
		PromptHTMLChars: 1000,
		TokenBudget:     3000,
		CacheTTL:        10 * time.Minute,
		Retry:           retry.DefaultConfig(),
	}
}

// Adapter turns page states into prompts and prompts into raw answers
type Adapter struct {
	backend Backend
	counter TokenCounter
	cache   cache.Cache
	opts    Options
}

// NewAdapter wires a backend with optional token counting and caching.
// A nil counter disables the token budget; a nil cache disables reuse.
func NewAdapter(backend Backend, counter TokenCounter, c cache.Cache, opts Options) *Adapter {
	if opts.PromptHTMLChars <= 0 {
		opts.PromptHTMLChars = DefaultOptions().PromptHTMLChars
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultConfig()
	}
	return &Adapter{backend: backend, counter: counter, cache: c, opts: opts}
}

// BackendName returns the name of the wrapped backend
func (a *Adapter) BackendName() string {
	return a.backend.Name()
}

// BuildPrompt describes the page to the model. html is the most recent HTML
// the loop has seen, which may come from an earlier state.
func (a *Adapter) BuildPrompt(state *models.PageState, html string) string {
	var address, title string
	if state != nil {
		address, title = state.Address, state.Title
	}

	var head strings.Builder
	head.WriteString(pageMarker + address + "\n")
	if title != "" {
		head.WriteString(titleMarker + title + "\n")
	}
	head.WriteString("\n" + actionMenu + "\n\n")

	tail := "\n" + htmlMarker + truncateRunes(html, a.opts.PromptHTMLChars)

	summary := Summarize(html, address)
	if a.counter != nil && a.opts.TokenBudget > 0 && summary != "" {
		remaining := a.opts.TokenBudget - a.counter.Count(head.String()) - a.counter.Count(tail)
		if remaining > 0 {
			summary = a.counter.Truncate(summary, remaining)
		} else {
			summary = ""
		}
	}

	return head.String() + summaryMarker + "\n" + summary + "\n" + tail
}

// Decide asks the backend what to do on the page. Identical prompts within
// CacheTTL reuse the earlier answer, except when the run asked the very same
// prompt last time: the page did not change, so the cached answer is what left
// it unchanged. Transport failures are retried with backoff; what finally
// fails is an OracleError.
func (a *Adapter) Decide(ctx context.Context, state *models.PageState, html string) (string, error) {
	prompt := a.BuildPrompt(state, html)
	key := cache.KeyFor(a.backend.Name(), a.opts.Model, prompt)
	lastKey := "last-prompt:" + reqctx.GetRun(ctx).RunID

	if a.cache != nil {
		previous, _ := a.cache.Get(lastKey)
		_ = a.cache.Set(lastKey, key, a.opts.CacheTTL)
		if previous != key {
			if answer, ok := a.cache.Get(key); ok {
				log.Debug().Str("backend", a.backend.Name()).Msg("Oracle answer reused")
				return answer, nil
			}
		}
	}

	start := time.Now()
	var answer string
	err := retry.Do(ctx, a.opts.Retry, "generate", func() error {
		out, err := a.backend.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return engine.OracleError("generate", "empty response", nil)
		}
		answer = out
		return nil
	})
	if err != nil {
		return "", engine.OracleError("decide", "no answer from "+a.backend.Name(), err)
	}

	log.Debug().
		Str("backend", a.backend.Name()).
		Dur("duration", time.Since(start)).
		Msg("Oracle decided")

	if a.cache != nil {
		_ = a.cache.Set(key, answer, a.opts.CacheTTL)
	}
	return answer, nil
}

// promptPage recovers the address and page text from a prompt built by
// BuildPrompt
func promptPage(prompt string) (address, body string) {
	for _, l := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(l, pageMarker) {
			address = strings.TrimSpace(strings.TrimPrefix(l, pageMarker))
			break
		}
	}
	if idx := strings.Index(prompt, summaryMarker); idx >= 0 {
		body = prompt[idx+len(summaryMarker):]
	}
	return address, body
}
