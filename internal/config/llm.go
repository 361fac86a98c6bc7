package config

import (
	"fmt"
	"time"
)

// LLM provider constants
const (
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// LLMConfig holds LLM provider selection configuration
type LLMConfig struct {
	// Provider specifies which LLM provider to use: "gemini", "openai" or "claude"
	Provider  string        `env:"LLM_PROVIDER" yaml:"provider" default:"gemini"`
	Timeout   time.Duration `env:"LLM_TIMEOUT" yaml:"timeout" default:"30s"`
	MaxTokens int           `env:"LLM_MAX_TOKENS" yaml:"max_tokens" default:"1024"`
	// Placeholder is returned when the model produces no text.
	Placeholder string `env:"LLM_EMPTY_PLACEHOLDER" yaml:"empty_placeholder" default:"(No response)"`
}

func (c LLMConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderClaude:
	default:
		return fmt.Errorf("llm provider must be one of [gemini, openai, claude], got %q", c.Provider)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be greater than 0")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("llm max_tokens must be greater than 0")
	}
	return nil
}

// GeminiConfig holds Google Gemini-specific configuration
type GeminiConfig struct {
	APIKey  string `env:"GEMINI_API_KEY" yaml:"-"`
	Model   string `env:"GEMINI_MODEL" yaml:"model" default:"gemini-2.5-flash"`
	Project string `env:"GOOGLE_CLOUD_PROJECT" yaml:"project"` // Optional: for Vertex AI
	Region  string `env:"GOOGLE_CLOUD_REGION" yaml:"region"`   // Optional: for Vertex AI
}

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	APIKey     string `env:"OPENAI_API_KEY" yaml:"-"`
	Model      string `env:"OPENAI_MODEL" yaml:"model" default:"gpt-4o-mini"`
	APIBaseURL string `env:"OPENAI_API_URL" yaml:"api_base_url"`
}

// AnthropicConfig holds Anthropic-specific configuration
type AnthropicConfig struct {
	APIKey     string `env:"ANTHROPIC_API_KEY" yaml:"-"`
	Model      string `env:"CLAUDE_MODEL" yaml:"model" default:"claude-sonnet-4-5-20250929"`
	APIBaseURL string `env:"ANTHROPIC_API_URL" yaml:"api_base_url"`
}
