package completion_gateway //nolint:revive // var-naming

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultClaudeModel     = string(anthropic.ModelClaudeSonnet4_5_20250929)
	defaultClaudeMaxTokens = 1024
)

// ClaudeModel calls the Anthropic Messages API.
type ClaudeModel struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewClaudeModel(cfg ModelConfig) (*ClaudeModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultClaudeModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultClaudeMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &ClaudeModel{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (m *ClaudeModel) Provider() string { return ProviderClaude }

func (m *ClaudeModel) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &CompletionError{Kind: statusKind(apiErr.StatusCode), Provider: ProviderClaude, Err: err}
		}
		return "", err
	}
	if msg == nil {
		return "", Malformed(ProviderClaude, errors.New("nil message"))
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
