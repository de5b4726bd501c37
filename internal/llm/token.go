package llm

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
)

// TokenCounter measures and trims prompt text in model tokens
type TokenCounter interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
}

// NewTokenCounter returns a tiktoken counter for encoding. When the
// encoding cannot be loaded it falls back to a runes-per-token estimate.
func NewTokenCounter(encoding string, log *logger.Logger) TokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.OrGlobal(log).Warn("tiktoken encoding unavailable, estimating tokens",
			zap.String("encoding", encoding),
			zap.Error(err),
		)
		return EstimateCounter{}
	}
	return &tiktokenCounter{enc: enc}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

func (c *tiktokenCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return c.enc.Decode(tokens[:maxTokens])
}

// runesPerToken is the usual ratio for Latin-script text
const runesPerToken = 4

// EstimateCounter approximates tokens from the rune count
type EstimateCounter struct{}

// Count returns the estimated token count of text
func (EstimateCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + runesPerToken - 1) / runesPerToken
}

// Truncate keeps roughly maxTokens tokens worth of runes
func (EstimateCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * runesPerToken
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
