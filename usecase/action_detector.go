package usecase

import (
	"encoding/json"
	"strings"

	"github.com/satriahrh/voice-assistant/domain"
)

const fence = "```"

// DetectAction reports whether a model reply encodes a supported action request.
//
// Anything that is not a JSON object of the form
//
//	{"action": "get_weather", "parameters": {"location": "Paris"}}
//
// is a conversational reply and yields false. Unknown action names, non-string
// parameter values and a blank location are treated the same way.
func DetectAction(completion string) (domain.ActionRequest, bool) {
	body := unwrapFence(strings.TrimSpace(completion))
	if !strings.HasPrefix(body, "{") {
		return domain.ActionRequest{}, false
	}

	var req domain.ActionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return domain.ActionRequest{}, false
	}

	switch req.Action {
	case domain.ActionGetWeather:
		location := strings.TrimSpace(req.Location())
		if location == "" {
			return domain.ActionRequest{}, false
		}
		req.Parameters[domain.ParamLocation] = location
		return req, true
	default:
		return domain.ActionRequest{}, false
	}
}

// unwrapFence strips a single Markdown code fence, with or without a language tag.
func unwrapFence(s string) string {
	if len(s) < 2*len(fence) || !strings.HasPrefix(s, fence) || !strings.HasSuffix(s, fence) {
		return s
	}
	inner := s[len(fence) : len(s)-len(fence)]
	if i := strings.IndexByte(inner, '\n'); i >= 0 && !strings.Contains(inner[:i], "{") {
		inner = inner[i+1:]
	}
	return strings.TrimSpace(inner)
}
