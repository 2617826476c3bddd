package llm

import (
	"fmt"

	"github.com/satriahrh/voice-assistant/domain"
)

// Settings selects and configures the completion backend.
type Settings struct {
	Provider string

	MistralAPIKey  string
	MistralAgentID string
	MistralBaseURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GeminiAPIKey string
	GeminiModel  string
}

// New returns the domain.Llm named by s.Provider. Mistral is the default.
func New(s Settings) (domain.Llm, error) {
	switch s.Provider {
	case "", ProviderMistral:
		return NewMistralAgent(s.MistralAPIKey, s.MistralAgentID, s.MistralBaseURL), nil
	case ProviderOpenAI:
		return NewOpenAIChat(s.OpenAIAPIKey, s.OpenAIBaseURL, s.OpenAIModel), nil
	case ProviderGemini:
		return NewGeminiClient(s.GeminiAPIKey, s.GeminiModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}
