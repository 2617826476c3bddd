package tts

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

func TestGoogleTTS_Synthesize(t *testing.T) {
	g := NewGoogleTTS("")
	var got *texttospeechpb.SynthesizeSpeechRequest
	g.synthesize = func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		got = req
		return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("ID3")}, nil
	}

	audio, err := g.Synthesize(context.Background(), "Il fait beau.")
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if !bytes.Equal(audio, []byte("ID3")) {
		t.Errorf("unexpected audio: %q", audio)
	}
	if got.GetVoice().GetLanguageCode() != DefaultLanguage {
		t.Errorf("unexpected language: %s", got.GetVoice().GetLanguageCode())
	}
	if got.GetAudioConfig().GetAudioEncoding() != texttospeechpb.AudioEncoding_MP3 {
		t.Errorf("unexpected encoding: %v", got.GetAudioConfig().GetAudioEncoding())
	}
	if got.GetInput().GetText() != "Il fait beau." {
		t.Errorf("unexpected input: %s", got.GetInput().GetText())
	}
}

func TestGoogleTTS_EmptyText(t *testing.T) {
	g := NewGoogleTTS("fr-FR")
	g.synthesize = func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		t.Fatal("provider should not be called")
		return nil, nil
	}

	if _, err := g.Synthesize(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}
