// Package llm produces the market analysis text from a prompt.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
)

var (
	ErrMissingAPIKey   = errors.New("llm: api key is required")
	ErrEmptyCompletion = errors.New("llm: completion returned no content")
)

// Generator turns a prompt into text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config is the OpenAI-compatible chat endpoint configuration
type Config struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	TokenBudget  int           `mapstructure:"token_budget"` // prompt tokens
	Encoding     string        `mapstructure:"encoding"`
}

// DefaultConfig returns the default generator configuration
func DefaultConfig() *Config {
	return &Config{
		Model:        openai.GPT4oMini,
		SystemPrompt: "Você é um analista de mercado sênior especializado no mercado brasileiro. Responda em português do Brasil.",
		MaxTokens:    4000,
		Temperature:  0.7,
		Timeout:      120 * time.Second,
		TokenBudget:  12000,
		Encoding:     "cl100k_base",
	}
}

// OpenAIGenerator calls a chat completion endpoint
type OpenAIGenerator struct {
	client *openai.Client
	config *Config
	logger *logger.Logger
}

// NewOpenAIGenerator creates a generator; BaseURL may point at any
// OpenAI-compatible endpoint
func NewOpenAIGenerator(cfg *Config, log *logger.Logger) (*OpenAIGenerator, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	l := logger.OrGlobal(log).Named("llm")
	l.Info("openai generator created", zap.String("model", cfg.Model))

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		logger: l,
	}, nil
}

// Generate sends prompt as the user message and returns the first choice
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if g.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: g.config.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.config.Model,
		Messages:    messages,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	g.logger.Info("completion generated",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return content, nil
}
