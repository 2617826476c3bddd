package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/satriahrh/voice-assistant/domain"
)

const (
	ProviderMistral       = "mistral"
	DefaultMistralBaseURL = "https://api.mistral.ai"
	agentCompletionsPath  = "/v1/agents/completions"
)

// MistralAgent calls a Mistral hosted agent. The agent completion envelope is
// OpenAI compatible, so the go-openai wire types are reused.
type MistralAgent struct {
	apiKey  string
	agentID string
	baseURL string
	client  *http.Client
}

func NewMistralAgent(apiKey, agentID, baseURL string) *MistralAgent {
	if baseURL == "" {
		baseURL = DefaultMistralBaseURL
	}
	return &MistralAgent{
		apiKey:  apiKey,
		agentID: agentID,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type agentCompletionRequest struct {
	AgentID  string                         `json:"agent_id"`
	Messages []openai.ChatCompletionMessage `json:"messages"`
}

// mistralError covers both error shapes the API returns.
type mistralError struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// Complete implements domain.Llm.
func (m *MistralAgent) Complete(ctx context.Context, utterance string) (string, error) {
	if m.apiKey == "" || m.agentID == "" {
		return "", m.fail(0, "MISTRAL_API_KEY and MISTRAL_AGENT_ID must be set", nil)
	}

	body, err := json.Marshal(agentCompletionRequest{
		AgentID: m.agentID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: utterance},
		},
	})
	if err != nil {
		return "", m.fail(0, "", fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+agentCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return "", m.fail(0, "", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", m.fail(0, "", fmt.Errorf("calling Mistral: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", m.fail(resp.StatusCode, "", fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", m.fail(resp.StatusCode, errorMessage(raw, resp.Status), nil)
	}

	var completion openai.ChatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", m.fail(resp.StatusCode, "", fmt.Errorf("decoding response: %w", err))
	}

	return firstChoiceText(completion), nil
}

func (m *MistralAgent) fail(status int, message string, err error) error {
	return &domain.UpstreamModelError{
		Provider:   ProviderMistral,
		StatusCode: status,
		Message:    message,
		Err:        err,
	}
}

// firstChoiceText extracts the reply text of the first choice, joining text chunks
// when the content comes back as an array.
func firstChoiceText(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	msg := resp.Choices[0].Message
	if msg.Content != "" {
		return msg.Content
	}

	var sb strings.Builder
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func errorMessage(raw []byte, fallback string) string {
	var e mistralError
	if err := json.Unmarshal(raw, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if len(e.Detail) > 0 {
			var detail string
			if json.Unmarshal(e.Detail, &detail) == nil {
				return detail
			}
			return string(e.Detail)
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 512 {
		return text
	}
	return fallback
}
