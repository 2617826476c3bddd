package domain

import "context"

// Llm abstracts any hosted completion provider.
type Llm interface {
	// Complete sends the utterance as the only user turn and returns the raw reply text.
	// An empty string means the provider answered without usable text.
	Complete(ctx context.Context, utterance string) (string, error)
}

// WeatherProvider turns a place name into a ready-to-display sentence about current conditions.
type WeatherProvider interface {
	FetchWeather(ctx context.Context, location string) (string, error)
}

// Transcriber converts raw audio into finalized text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer renders text as speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
)
