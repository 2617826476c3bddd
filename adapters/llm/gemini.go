package llm

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/satriahrh/voice-assistant/domain"
)

const (
	ProviderGemini     = "gemini"
	DefaultGeminiModel = "gemini-2.0-flash-001"
)

type GeminiClient struct {
	apiKey string
	model  string

	mu        sync.Mutex
	client    *genai.Client
	newClient func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error)
}

// NewGeminiClient defers client creation to the first call so that a missing
// key surfaces as an upstream error rather than at startup.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{apiKey: apiKey, model: model, newClient: genai.NewClient}
}

// init returns the shared genai client, building it on first use. A failed
// build is not remembered; the next call tries again.
func (g *GeminiClient) init() (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if g.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	client, err := g.newClient(context.Background(), &genai.ClientConfig{
		APIKey:      g.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	g.client = client
	return client, nil
}

// Complete implements domain.Llm.
func (g *GeminiClient) Complete(ctx context.Context, utterance string) (string, error) {
	client, err := g.init()
	if err != nil {
		return "", &domain.UpstreamModelError{Provider: ProviderGemini, Err: err}
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(utterance), nil)
	if err != nil {
		return "", &domain.UpstreamModelError{Provider: ProviderGemini, Err: fmt.Errorf("generate content: %w", err)}
	}

	return resp.Text(), nil
}
