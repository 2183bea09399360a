package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/retry"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You drive a web browser on an online shopping site to find discounted products. " +
	"Answer with exactly one line in the form: action: <name>, value: <number>, reason: <short reason>."

// OpenAIBackend calls an OpenAI-compatible chat completion endpoint
type OpenAIBackend struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIBackend creates a backend. The base URL falls back to
// OPENAI_BASE_URL so compatible local servers work without flags.
func NewOpenAIBackend(cfg BackendConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, engine.ConfigError("oracle", "OpenAI API key is required (set OPENAI_API_KEY or run `dealcrawl auth set-key`)", nil)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are done by the adapter so they show up in its logs
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	log.Debug().Str("model", model).Str("base_url", baseURL).Msg("OpenAI backend configured")

	return &OpenAIBackend{
		client:      openai.NewClient(opts...),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns "openai"
func (b *OpenAIBackend) Name() string { return ProviderOpenAI }

// Model returns the configured model id
func (b *OpenAIBackend) Model() string { return b.model }

// Generate sends prompt as a single user turn
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(b.temperature),
	}
	if b.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(b.maxTokens))
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status := retry.NewStatusError(apiErr.StatusCode, apiErr.Message)
			return "", engine.OracleError("generate", "chat completion failed", status)
		}
		return "", engine.OracleError("generate", "chat completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", engine.OracleError("generate", "no choices in response", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", engine.OracleError("generate", "empty response", nil)
	}

	log.Debug().
		Str("model", b.model).
		Int64("prompt_tokens", resp.Usage.PromptTokens).
		Int64("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Oracle answered")

	return content, nil
}

func errUnknownProvider(name string) error {
	return engine.ConfigError("oracle", fmt.Sprintf("unknown oracle provider %q (want auto, openai or rules)", name), nil)
}
