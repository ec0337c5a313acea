package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askdb/askdb/internal/errors"
)

// OpenAIProvider implements Service against the OpenAI chat API
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI-backed completion provider
func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrTypeConfig, "API key is required for the openai provider")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Complete requests a chat completion for the given prompt
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "openai completion failed")
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrTypeGeneration, "openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
