package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

const (
	DefaultLanguage   = "fr-FR"
	DefaultSampleRate = 16000
)

var ErrEmptyAudio = errors.New("audio payload is empty")

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// GoogleSpeech transcribes LINEAR16 audio with Cloud Speech-to-Text. The
// client is created on first use so a missing credential only fails calls.
type GoogleSpeech struct {
	language   string
	sampleRate int32

	mu        sync.Mutex
	recognize recognizeFunc
}

func NewGoogleSpeech(language string, sampleRate int) *GoogleSpeech {
	if language == "" {
		language = DefaultLanguage
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &GoogleSpeech{language: language, sampleRate: int32(sampleRate)}
}

func (g *GoogleSpeech) init() (recognizeFunc, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.recognize != nil {
		return g.recognize, nil
	}
	client, err := speech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("creating Google speech client: %w", err)
	}
	g.recognize = func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	}
	return g.recognize, nil
}

// Transcribe returns the best alternative of every result joined by spaces.
// Silence yields an empty transcript, not an error.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	recognize, err := g.init()
	if err != nil {
		return "", err
	}

	resp, err := recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            g.sampleRate,
			LanguageCode:               g.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognizing speech: %w", err)
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
