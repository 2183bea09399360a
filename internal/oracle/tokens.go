package oracle

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// TokenCounter measures and trims text in model tokens
type TokenCounter interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
}

// TiktokenCounter counts with the model's BPE encoding. tiktoken-go fetches
// encodings on first use; when that fails it falls back to EstimateCounter.
type TiktokenCounter struct {
	model string

	once     sync.Once
	enc      *tiktoken.Tiktoken
	fallback EstimateCounter
}

// NewTiktokenCounter creates a counter for model; the encoding loads lazily
func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

func (c *TiktokenCounter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err != nil {
			log.Warn().Err(err).Str("model", c.model).Msg("Token encoding unavailable, estimating")
			return
		}
		c.enc = enc
	})
	return c.enc
}

// Count returns the number of tokens in text
func (c *TiktokenCounter) Count(text string) int {
	enc := c.encoding()
	if enc == nil {
		return c.fallback.Count(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// Truncate keeps the first maxTokens tokens of text
func (c *TiktokenCounter) Truncate(text string, maxTokens int) string {
	enc := c.encoding()
	if enc == nil {
		return c.fallback.Truncate(text, maxTokens)
	}
	if maxTokens <= 0 {
		return ""
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

// EstimateCounter assumes about four characters per token
type EstimateCounter struct{}

const charsPerToken = 4

// Count estimates the token count of text
func (EstimateCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// Truncate keeps roughly maxTokens tokens worth of runes
func (EstimateCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	return truncateRunes(text, maxTokens*charsPerToken)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
