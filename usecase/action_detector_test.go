package usecase

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/satriahrh/voice-assistant/domain"
)

func TestDetectAction_Weather(t *testing.T) {
	cases := map[string]string{
		"plain":          `{"action":"get_weather","parameters":{"location":"Paris"}}`,
		"padded":         "  \n{\"action\": \"get_weather\", \"parameters\": {\"location\": \" Paris \"}}\n",
		"fenced":         "```json\n{\"action\":\"get_weather\",\"parameters\":{\"location\":\"Paris\"}}\n```",
		"fenced no tag":  "```{\"action\":\"get_weather\",\"parameters\":{\"location\":\"Paris\"}}```",
		"extra params":   `{"action":"get_weather","parameters":{"location":"Paris","unit":"c"}}`,
		"extra top keys": `{"action":"get_weather","parameters":{"location":"Paris"},"reason":"asked"}`,
	}

	for name, completion := range cases {
		t.Run(name, func(t *testing.T) {
			req, ok := DetectAction(completion)
			if !ok {
				t.Fatalf("expected an action for %q", completion)
			}
			if req.Action != domain.ActionGetWeather {
				t.Errorf("unexpected action: %s", req.Action)
			}
			if req.Location() != "Paris" {
				t.Errorf("unexpected location: %q", req.Location())
			}
		})
	}
}

func TestDetectAction_NoAction(t *testing.T) {
	cases := map[string]string{
		"empty":               "",
		"prose":               "Bonjour, comment puis-je vous aider ?",
		"prose with braces":   "Use {curly} braces like this.",
		"unknown action":      `{"action":"play_music","parameters":{"song":"Imagine"}}`,
		"missing action":      `{"parameters":{"location":"Paris"}}`,
		"missing params":      `{"action":"get_weather"}`,
		"null params":         `{"action":"get_weather","parameters":null}`,
		"blank location":      `{"action":"get_weather","parameters":{"location":"   "}}`,
		"numeric location":    `{"action":"get_weather","parameters":{"location":42}}`,
		"action not string":   `{"action":7,"parameters":{"location":"Paris"}}`,
		"array":               `[{"action":"get_weather","parameters":{"location":"Paris"}}]`,
		"truncated":           `{"action":"get_weather","parameters":{"location":"Par`,
		"trailing prose":      `{"action":"get_weather","parameters":{"location":"Paris"}} voilà`,
		"case mismatch":       `{"action":"GET_WEATHER","parameters":{"location":"Paris"}}`,
		"json string":         `"get_weather"`,
		"lonely fence":        "```",
		"prose before json":   `Sure! {"action":"get_weather","parameters":{"location":"Paris"}}`,
		"nested params":       `{"action":"get_weather","parameters":{"location":{"city":"Paris"}}}`,
		"params not object":   `{"action":"get_weather","parameters":"Paris"}`,
		"whitespace only":     " \t\n ",
		"fenced prose":        "```\nhello\n```",
		"fenced other action": "```json\n{\"action\":\"send_email\",\"parameters\":{\"to\":\"a@b.c\"}}\n```",
	}

	for name, completion := range cases {
		t.Run(name, func(t *testing.T) {
			if req, ok := DetectAction(completion); ok {
				t.Errorf("expected no action for %q, got %+v", completion, req)
			}
		})
	}
}

func TestDetectAction_DoesNotPanicOnRandomInput(t *testing.T) {
	alphabet := []rune(`{}[]":,\ abcdefghijklmnopqrstuvwxyzé0123456789` + "`\n\t")
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5000; i++ {
		var sb strings.Builder
		n := rng.Intn(64)
		for j := 0; j < n; j++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		if _, ok := DetectAction(sb.String()); ok {
			t.Fatalf("random input %q was detected as an action", sb.String())
		}
	}
}

func FuzzDetectAction(f *testing.F) {
	f.Add("")
	f.Add("Il fait beau.")
	f.Add(`{"action":"get_weather","parameters":{"location":"Paris"}}`)
	f.Add(`{"action":"play_music","parameters":{}}`)
	f.Add("```json\n{}\n```")

	f.Fuzz(func(t *testing.T, completion string) {
		req, ok := DetectAction(completion)
		if !ok {
			return
		}
		if req.Action != domain.ActionGetWeather {
			t.Fatalf("detected non allow-listed action %q", req.Action)
		}
		if strings.TrimSpace(req.Location()) == "" {
			t.Fatalf("detected weather action without location from %q", completion)
		}
	})
}
