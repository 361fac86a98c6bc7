package completion_gateway //nolint:revive // var-naming

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIModel calls the Chat Completions API with a single user message.
type OpenAIModel struct {
	client    openai.Client
	model     string
	maxTokens int64
}

func NewOpenAIModel(cfg ModelConfig) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIModel{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (m *OpenAIModel) Provider() string { return ProviderOpenAI }

func (m *OpenAIModel) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if m.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(m.maxTokens)
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &CompletionError{Kind: statusKind(apiErr.StatusCode), Provider: ProviderOpenAI, Err: err}
		}
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", Malformed(ProviderOpenAI, errors.New("response has no choices"))
	}

	choice := completion.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", Rejected(ProviderOpenAI, errors.New("response withheld by content filter"))
	}
	if choice.Message.Refusal != "" {
		return "", Rejected(ProviderOpenAI, errors.New(choice.Message.Refusal))
	}
	return choice.Message.Content, nil
}
