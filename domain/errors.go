package domain

import "fmt"

// InvalidInputError rejects an utterance before any provider is called.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// UpstreamModelError reports a failed call to the language model provider.
// StatusCode is zero when the failure happened before a response was received.
type UpstreamModelError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamModelError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream model error (status %d): %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: upstream model error: %s", e.Provider, msg)
}

func (e *UpstreamModelError) Unwrap() error { return e.Err }

// WeatherLookupError reports a failed weather lookup.
type WeatherLookupError struct {
	Location string
	Err      error
}

func (e *WeatherLookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("weather lookup for %q failed", e.Location)
	}
	return fmt.Sprintf("weather lookup for %q failed: %v", e.Location, e.Err)
}

func (e *WeatherLookupError) Unwrap() error { return e.Err }
