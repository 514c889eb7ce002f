package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

// fakeModel records the prompt and options of the last call.
type fakeModel struct {
	reply   string
	err     error
	prompt  string
	options llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&f.options)
	}
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.prompt += text.Text
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func testSummary() domain.RecommendationSummary {
	return domain.RecommendationSummary{
		Severity:         domain.SeverityDegraded,
		DegradationScore: 58.4,
		PrimaryFactors:   []string{domain.FactorMoisture},
		LocationName:     "Machakos terrace 2",
	}
}

func TestAdvisor_Advise(t *testing.T) {
	model := &fakeModel{reply: "\n1. Mulch exposed rows\n"}
	a := newAdvisor(model, Config{Model: "claude-test", MaxTokens: 800, Temperature: 0.4})

	text, err := a.Advise(context.Background(), testSummary())
	require.NoError(t, err)

	assert.Equal(t, "1. Mulch exposed rows", text)
	assert.Contains(t, model.prompt, "Machakos terrace 2")
	assert.Contains(t, model.prompt, "Degradation Severity: Degraded")
	assert.Equal(t, 800, model.options.MaxTokens)
	assert.InDelta(t, 0.4, model.options.Temperature, 1e-9)
	assert.Equal(t, "claude-test", a.Model())
}

func TestAdvisor_Advise_NoMaxTokens(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	a := newAdvisor(model, Config{Model: "llama3"})

	_, err := a.Advise(context.Background(), testSummary())
	require.NoError(t, err)
	assert.Zero(t, model.options.MaxTokens)
}

func TestAdvisor_Advise_Error(t *testing.T) {
	model := &fakeModel{err: errors.New("rate limited")}
	a := newAdvisor(model, Config{Model: "gpt-test"})

	_, err := a.Advise(context.Background(), testSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpt-test")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestNewAdvisor_Validation(t *testing.T) {
	_, err := NewAdvisor(Config{Provider: "bard"})
	assert.ErrorContains(t, err, "unsupported LLM provider")

	_, err = NewAdvisor(Config{Provider: ProviderAnthropic})
	assert.ErrorContains(t, err, "anthropic API key required")

	_, err = NewAdvisor(Config{Provider: ProviderOpenAI})
	assert.ErrorContains(t, err, "openai API key required")
}

func TestNewAdvisor_Ollama(t *testing.T) {
	a, err := NewAdvisor(Config{Provider: ProviderOllama, Model: "llama3", OllamaHost: "http://localhost:11434"})
	require.NoError(t, err)
	assert.Equal(t, "llama3", a.Model())
}
