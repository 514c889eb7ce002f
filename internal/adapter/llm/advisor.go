// Package llm generates restoration advice with a hosted or local language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Config selects and tunes the model.
type Config struct {
	Provider        string
	Model           string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OllamaHost      string
	MaxTokens       int
	Temperature     float64
}

// Advisor implements domain.Advisor on top of a langchaingo model.
type Advisor struct {
	model       llms.Model
	modelName   string
	maxTokens   int
	temperature float64
}

// NewAdvisor creates the model client for cfg.Provider.
func NewAdvisor(cfg Config) (*Advisor, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("openai API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}

	return newAdvisor(model, cfg), nil
}

func newAdvisor(model llms.Model, cfg Config) *Advisor {
	return &Advisor{
		model:       model,
		modelName:   cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Advise renders the recommendation prompt for summary and returns the
// model's answer.
func (a *Advisor) Advise(ctx context.Context, summary domain.RecommendationSummary) (string, error) {
	prompt := domain.BuildRecommendationPrompt(summary)

	opts := []llms.CallOption{llms.WithTemperature(a.temperature)}
	if a.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(a.maxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, a.model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("generate recommendations with %s: %w", a.modelName, err)
	}
	return strings.TrimSpace(text), nil
}

// Model returns the configured model name.
func (a *Advisor) Model() string {
	return a.modelName
}
