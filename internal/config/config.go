// Package config defines the relay's application configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/memory_relay/pkg/config"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Common    config.CommonConfig     `yaml:"common"`
	HTTP      config.HTTPServerConfig `yaml:"http"`
	Telegram  TelegramConfig          `yaml:"telegram"`
	LLM       LLMConfig               `yaml:"llm"`
	Gemini    GeminiConfig            `yaml:"gemini"`
	OpenAI    OpenAIConfig            `yaml:"openai"`
	Anthropic AnthropicConfig         `yaml:"anthropic"`
	Memory    MemoryConfig            `yaml:"memory"`
	FactStore FactStoreConfig         `yaml:"fact_store"`
	Persona   PersonaConfig           `yaml:"persona"`
	Metrics   config.MetricsConfig    `yaml:"metrics"`
	Health    HealthConfig            `yaml:"health"`
}

// Load reads configuration from the optional YAML file at path and the
// environment.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := config.GetConfig(cfg, path, false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c AppConfig) Validate() error {
	var result error

	for _, v := range []config.Validator{c.Common, c.HTTP, c.Metrics, c.Telegram, c.LLM, c.Memory, c.FactStore, c.Persona} {
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	switch c.LLM.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" && c.Gemini.Project == "" {
			result = multierror.Append(result, fmt.Errorf("GEMINI_API_KEY is required when llm provider is gemini"))
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("OPENAI_API_KEY is required when llm provider is openai"))
		}
	case ProviderClaude:
		if c.Anthropic.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("ANTHROPIC_API_KEY is required when llm provider is claude"))
		}
	}

	if c.FactStore.Driver == DriverPostgres {
		if err := c.FactStore.Postgres.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(c.Common.LogLevel)
}

// NewLogger builds the process logger from the common section.
func (c *AppConfig) NewLogger() logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:   c.GetLogLevel(),
		Format:  strings.ToLower(c.Common.LogFormat),
		Service: c.Common.ServiceName,
	})
}

// LogConfig logs the current configuration (without sensitive data)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.Common.ServiceName),
		logger.StringField("http_addr", c.HTTP.Addr()),
		logger.BoolField("telegram_enabled", c.Telegram.Enabled),
		logger.StringField("llm_provider", c.LLM.Provider),
		logger.StringField("llm_model", c.ModelName()),
		logger.DurationField("llm_timeout", c.LLM.Timeout),
		logger.StringField("memory_mode", c.Memory.Mode),
		logger.BoolField("memory_record_failures", c.Memory.RecordFailures),
		logger.StringField("fact_store_driver", c.FactStore.Driver),
		logger.StringField("persona_backend", c.Persona.Backend),
		logger.BoolField("metrics_exposed", c.Metrics.ExposeMetrics),
	)
}

// ModelName is the model configured for the selected provider.
func (c *AppConfig) ModelName() string {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		return c.OpenAI.Model
	case ProviderClaude:
		return c.Anthropic.Model
	default:
		return c.Gemini.Model
	}
}

// Redacted returns a copy safe to print. API keys are already excluded from
// YAML output by their tags.
func (c AppConfig) Redacted() AppConfig {
	if c.Telegram.BotToken != "" {
		c.Telegram.BotToken = redactedValue
	}
	if c.FactStore.Postgres.Password != "" {
		c.FactStore.Postgres.Password = redactedValue
	}
	return c
}

const redactedValue = "********"
