package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/satriahrh/voice-assistant/domain"
)

func TestWeatherAPI_FetchWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/current.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "secret" || q.Get("q") != "Paris" || q.Get("lang") != "fr" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"location":{"name":"Paris"},"current":{"temp_c":20.0,"condition":{"text":"Ensoleillé"}}}`))
	}))
	defer server.Close()

	provider := NewWeatherAPI(Settings{APIKey: "secret", BaseURL: server.URL})
	sentence, err := provider.FetchWeather(context.Background(), "Paris")

	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	want := "La température actuelle à Paris est de 20°C avec Ensoleillé."
	if sentence != want {
		t.Errorf("got %q, want %q", sentence, want)
	}
}

func TestWeatherAPI_EnglishTemplate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"temp_c":20.5,"condition":{"text":"Clear"}}}`))
	}))
	defer server.Close()

	provider := NewWeatherAPI(Settings{APIKey: "secret", BaseURL: server.URL, Lang: "en"})
	sentence, err := provider.FetchWeather(context.Background(), "London")

	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	want := "The current temperature in London is 20.5°C with Clear."
	if sentence != want {
		t.Errorf("got %q, want %q", sentence, want)
	}
}

func TestWeatherAPI_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad key", http.StatusUnauthorized, `{"error":{"code":2006,"message":"API key is invalid."}}`},
		{"unknown location", http.StatusBadRequest, `{"error":{"code":1006,"message":"No matching location found."}}`},
		{"malformed payload", http.StatusOK, `not json`},
		{"missing temperature", http.StatusOK, `{"current":{"condition":{"text":"Clear"}}}`},
		{"server error", http.StatusInternalServerError, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewWeatherAPI(Settings{APIKey: "secret", BaseURL: server.URL})
			_, err := provider.FetchWeather(context.Background(), "Atlantis")

			var lookupErr *domain.WeatherLookupError
			if !errors.As(err, &lookupErr) {
				t.Fatalf("expected WeatherLookupError, got %v", err)
			}
			if lookupErr.Location != "Atlantis" {
				t.Errorf("unexpected location: %s", lookupErr.Location)
			}
			if got := atomic.LoadInt32(&calls); got != 1 {
				t.Errorf("expected exactly one call, got %d", got)
			}
		})
	}
}

func TestWeatherAPI_MissingKey(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	_, err := NewWeatherAPI(Settings{BaseURL: server.URL}).FetchWeather(context.Background(), "Paris")

	var lookupErr *domain.WeatherLookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected WeatherLookupError, got %v", err)
	}
	if calls != 0 {
		t.Error("provider should not be called without a key")
	}
}

func TestWeatherAPI_BreakerOpens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := NewWeatherAPI(Settings{
		APIKey:           "secret",
		BaseURL:          server.URL,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	})

	for i := 0; i < 4; i++ {
		_, err := provider.FetchWeather(context.Background(), "Paris")
		var lookupErr *domain.WeatherLookupError
		if !errors.As(err, &lookupErr) {
			t.Fatalf("call %d: expected WeatherLookupError, got %v", i, err)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("open breaker should short-circuit, upstream saw %d calls", got)
	}
}

func TestWeatherAPI_UnknownLocationsDoNotOpenBreaker(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("q") != "Paris" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
			return
		}
		w.Write([]byte(`{"current":{"temp_c":20.0,"condition":{"text":"Ensoleillé"}}}`))
	}))
	defer server.Close()

	provider := NewWeatherAPI(Settings{
		APIKey:           "secret",
		BaseURL:          server.URL,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	})

	for i := 0; i < 5; i++ {
		_, err := provider.FetchWeather(context.Background(), "Atlantis")
		var lookupErr *domain.WeatherLookupError
		if !errors.As(err, &lookupErr) {
			t.Fatalf("call %d: expected WeatherLookupError, got %v", i, err)
		}
	}

	sentence, err := provider.FetchWeather(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("lookup after client errors failed: %v", err)
	}
	if want := "La température actuelle à Paris est de 20°C avec Ensoleillé."; sentence != want {
		t.Errorf("got %q, want %q", sentence, want)
	}
	if got := atomic.LoadInt32(&calls); got != 6 {
		t.Errorf("every lookup should reach the provider, upstream saw %d calls", got)
	}
}

func TestWeatherAPI_CancelledLookupsDoNotOpenBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"temp_c":20.0,"condition":{"text":"Ensoleillé"}}}`))
	}))
	defer server.Close()

	provider := NewWeatherAPI(Settings{
		APIKey:           "secret",
		BaseURL:          server.URL,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_, err := provider.FetchWeather(cancelled, "Paris")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: expected context.Canceled, got %v", i, err)
		}
	}

	if _, err := provider.FetchWeather(context.Background(), "Paris"); err != nil {
		t.Fatalf("lookup after cancellations failed: %v", err)
	}
}

func TestCountsAsSuccess(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"client error", &domain.WeatherLookupError{Location: "x", Err: &statusError{Code: 400}}, true},
		{"rejected key", &domain.WeatherLookupError{Location: "x", Err: &statusError{Code: 401}}, true},
		{"cancelled", &domain.WeatherLookupError{Location: "x", Err: context.Canceled}, true},
		{"deadline", &domain.WeatherLookupError{Location: "x", Err: context.DeadlineExceeded}, true},
		{"server error", &domain.WeatherLookupError{Location: "x", Err: &statusError{Code: 503}}, false},
		{"transport", &domain.WeatherLookupError{Location: "x", Err: errors.New("connection refused")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countsAsSuccess(tt.err); got != tt.want {
				t.Errorf("countsAsSuccess(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSentence(t *testing.T) {
	tests := []struct {
		lang string
		temp float64
		want string
	}{
		{"fr", 20, "La température actuelle à Lyon est de 20°C avec Nuageux."},
		{"fr", -3.5, "La température actuelle à Lyon est de -3.5°C avec Nuageux."},
		{"en", 12.25, "The current temperature in Lyon is 12.25°C with Nuageux."},
		{"de", 7, "La température actuelle à Lyon est de 7°C avec Nuageux."},
	}
	for _, tt := range tests {
		if got := Sentence(tt.lang, "Lyon", tt.temp, "Nuageux"); got != tt.want {
			t.Errorf("Sentence(%s, %v) = %q, want %q", tt.lang, tt.temp, got, tt.want)
		}
	}
}
