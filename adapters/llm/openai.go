package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/satriahrh/voice-assistant/domain"
)

const (
	ProviderOpenAI     = "openai"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIChat talks to any OpenAI-compatible chat completion endpoint, including
// Mistral's own /v1/chat/completions when an agent id is not available.
type OpenAIChat struct {
	client *openai.Client
	model  string
	apiKey string
}

func NewOpenAIChat(apiKey, baseURL, model string) *OpenAIChat {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIChat{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		apiKey: apiKey,
	}
}

// Complete implements domain.Llm.
func (o *OpenAIChat) Complete(ctx context.Context, utterance string) (string, error) {
	if o.apiKey == "" {
		return "", &domain.UpstreamModelError{Provider: ProviderOpenAI, Message: "OPENAI_API_KEY must be set"}
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: utterance},
		},
	})
	if err != nil {
		return "", toUpstreamError(err)
	}

	return firstChoiceText(resp), nil
}

func toUpstreamError(err error) error {
	upstream := &domain.UpstreamModelError{Provider: ProviderOpenAI, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		upstream.StatusCode = apiErr.HTTPStatusCode
		upstream.Message = apiErr.Message
	case errors.As(err, &reqErr):
		upstream.StatusCode = reqErr.HTTPStatusCode
		upstream.Err = fmt.Errorf("request failed: %w", reqErr.Err)
	}
	return upstream
}
