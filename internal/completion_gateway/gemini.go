package completion_gateway //nolint:revive // var-naming

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiModel calls the Gemini API, or Vertex AI when a project and region
// are configured.
type GeminiModel struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGeminiModel(ctx context.Context, cfg ModelConfig) (*GeminiModel, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Project != "" && cfg.Region != "" {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Region
		cfg.Logger.Info("Using Vertex AI backend",
			logger.StringField("project", cfg.Project),
			logger.StringField("region", cfg.Region))
	} else if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	m := &GeminiModel{client: client, model: cfg.Model}
	if cfg.MaxTokens > 0 {
		m.config = &genai.GenerateContentConfig{MaxOutputTokens: int32(cfg.MaxTokens)}
	}
	return m, nil
}

func (m *GeminiModel) Provider() string { return ProviderGemini }

func (m *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), m.config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &CompletionError{Kind: statusKind(apiErr.Code), Provider: ProviderGemini, Err: err}
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			return "", &CompletionError{Kind: statusKind(apiErrPtr.Code), Provider: ProviderGemini, Err: err}
		}
		return "", err
	}
	if resp == nil {
		return "", Malformed(ProviderGemini, errors.New("nil response"))
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", Rejected(ProviderGemini, fmt.Errorf("prompt blocked: %s", fb.BlockReason))
	}
	return resp.Text(), nil
}
