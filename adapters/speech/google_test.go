package speech

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

func fakeSpeech(fn recognizeFunc) *GoogleSpeech {
	g := NewGoogleSpeech("", 0)
	g.recognize = fn
	return g
}

func TestGoogleSpeech_Transcribe(t *testing.T) {
	var got *speechpb.RecognizeRequest
	g := fakeSpeech(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		got = req
		return &speechpb.RecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "Quel temps fait-il "}, {Transcript: "ignored"}}},
				{Alternatives: nil},
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "à Paris ?"}}},
			},
		}, nil
	})

	text, err := g.Transcribe(context.Background(), []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "Quel temps fait-il à Paris ?" {
		t.Errorf("unexpected transcript: %q", text)
	}

	cfg := got.GetConfig()
	if cfg.GetLanguageCode() != DefaultLanguage || cfg.GetSampleRateHertz() != DefaultSampleRate {
		t.Errorf("unexpected config: %v", cfg)
	}
	if cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("unexpected encoding: %v", cfg.GetEncoding())
	}
}

func TestGoogleSpeech_Silence(t *testing.T) {
	g := fakeSpeech(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return &speechpb.RecognizeResponse{}, nil
	})

	text, err := g.Transcribe(context.Background(), []byte{0x00})
	if err != nil || text != "" {
		t.Errorf("expected empty transcript, got %q, %v", text, err)
	}
}

func TestGoogleSpeech_Errors(t *testing.T) {
	g := fakeSpeech(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return nil, errors.New("quota exceeded")
	})

	if _, err := g.Transcribe(context.Background(), nil); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
	if _, err := g.Transcribe(context.Background(), []byte{0x01}); err == nil {
		t.Error("expected the recognizer error to surface")
	}
}
