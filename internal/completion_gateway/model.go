package completion_gateway //nolint:revive // var-naming

import (
	"context"
	"fmt"
	"time"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// Model is a single hosted completion backend. Generate returns the raw
// text payload, which may be empty.
type Model interface {
	Provider() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelFunc) Provider() string { return "func" }

func (f ModelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// ModelConfig configures one backend.
type ModelConfig struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int64
	// Vertex AI, Gemini only
	Project string
	Region  string
	Timeout time.Duration
	Logger  logger.Logger
}

// NewModel builds the backend named by cfg.Provider.
func NewModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiModel(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIModel(cfg)
	case ProviderClaude:
		return NewClaudeModel(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q (supported: %s, %s, %s)",
			cfg.Provider, ProviderGemini, ProviderOpenAI, ProviderClaude)
	}
}
