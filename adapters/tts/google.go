package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

const DefaultLanguage = "fr-FR"

var ErrEmptyText = errors.New("nothing to synthesize")

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

// GoogleTTS speaks replies as MP3 with Cloud Text-to-Speech.
type GoogleTTS struct {
	language string

	mu         sync.Mutex
	synthesize synthesizeFunc
}

func NewGoogleTTS(language string) *GoogleTTS {
	if language == "" {
		language = DefaultLanguage
	}
	return &GoogleTTS{language: language}
}

func (g *GoogleTTS) init() (synthesizeFunc, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.synthesize != nil {
		return g.synthesize, nil
	}
	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("creating Google tts client: %w", err)
	}
	g.synthesize = func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return client.SynthesizeSpeech(ctx, req)
	}
	return g.synthesize, nil
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	synthesize, err := g.init()
	if err != nil {
		return nil, err
	}

	resp, err := synthesize(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.language,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}

	return resp.GetAudioContent(), nil
}
