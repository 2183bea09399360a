// Package oracle asks a language model (or a rule table) what the agent
// should do next. Output is raw text; turning it into a decision is the
// decision package's job.
package oracle

import "context"

// Backend produces a free-form answer for a prompt
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider names accepted by NewBackend
const (
	ProviderAuto   = "auto"
	ProviderOpenAI = "openai"
	ProviderRules  = "rules"
)

// BackendConfig selects and configures a Backend
type BackendConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewBackend builds the configured backend. "auto" picks OpenAI when an API
// key is available and the rule table otherwise.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAI(cfg)
	case ProviderRules:
		return NewRulesBackend(), nil
	case ProviderAuto, "":
		if cfg.APIKey != "" {
			return newOpenAI(cfg)
		}
		return NewRulesBackend(), nil
	}
	return nil, errUnknownProvider(cfg.Provider)
}

func newOpenAI(cfg BackendConfig) (Backend, error) {
	b, err := NewOpenAIBackend(cfg)
	if err != nil {
		return nil, err
	}
	return b, nil
}
