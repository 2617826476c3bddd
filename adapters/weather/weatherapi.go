package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/satriahrh/voice-assistant/domain"
	"github.com/satriahrh/voice-assistant/utils/log"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://api.weatherapi.com/v1"
	DefaultLang    = "fr"

	frenchTemplate  = "La température actuelle à %s est de %s°C avec %s."
	englishTemplate = "The current temperature in %s is %s°C with %s."
)

var errMissingKey = errors.New("weather api key is not configured")

type Settings struct {
	APIKey  string
	BaseURL string
	Lang    string

	// Consecutive failures before the breaker opens. Zero keeps the default of 5.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// WeatherAPI looks up current conditions on weatherapi.com.
type WeatherAPI struct {
	apiKey  string
	baseURL string
	lang    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

type currentResponse struct {
	Current *struct {
		TempC     *float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewWeatherAPI(s Settings) *WeatherAPI {
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	if s.Lang == "" {
		s.Lang = DefaultLang
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 30 * time.Second
	}

	threshold := s.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weatherapi",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.L().Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &WeatherAPI{
		apiKey:  s.APIKey,
		baseURL: strings.TrimRight(s.BaseURL, "/"),
		lang:    s.Lang,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
	}
}

// FetchWeather returns one localized sentence describing the current
// conditions at location. It never retries.
func (w *WeatherAPI) FetchWeather(ctx context.Context, location string) (string, error) {
	if w.apiKey == "" {
		return "", &domain.WeatherLookupError{Location: location, Err: errMissingKey}
	}

	out, err := w.breaker.Execute(func() (interface{}, error) {
		return w.lookup(ctx, location)
	})
	if err != nil {
		var lookupErr *domain.WeatherLookupError
		if errors.As(err, &lookupErr) {
			return "", err
		}
		// open breaker or too many half-open probes
		return "", &domain.WeatherLookupError{Location: location, Err: err}
	}
	return out.(string), nil
}

// statusError is a non-2xx answer from the provider.
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// countsAsSuccess reports whether err leaves the breaker's failure count
// alone. Only transport errors, 5xx and unreadable payloads count against
// the provider; 4xx answers and caller cancellations do not.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var status *statusError
	if errors.As(err, &status) {
		return status.Code < http.StatusInternalServerError
	}
	return false
}

func (w *WeatherAPI) lookup(ctx context.Context, location string) (string, error) {
	fail := func(err error) (string, error) {
		return "", &domain.WeatherLookupError{Location: location, Err: err}
	}

	query := url.Values{}
	query.Set("key", w.apiKey)
	query.Set("q", location)
	query.Set("lang", w.lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/current.json?"+query.Encode(), nil)
	if err != nil {
		return fail(fmt.Errorf("building request: %w", err))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("calling weather provider: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return fail(&statusError{Code: resp.StatusCode, Message: apiErr.Error.Message})
		}
		return fail(&statusError{Code: resp.StatusCode})
	}

	var payload currentResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fail(fmt.Errorf("decoding response: %w", err))
	}
	if payload.Current == nil || payload.Current.TempC == nil {
		return fail(errors.New("response has no current temperature"))
	}

	return Sentence(w.lang, location, *payload.Current.TempC, payload.Current.Condition.Text), nil
}

// Sentence renders the weather template in the given language. Languages
// other than English use the French phrasing.
func Sentence(lang, location string, tempC float64, condition string) string {
	temp := strconv.FormatFloat(tempC, 'f', -1, 64)
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		return fmt.Sprintf(englishTemplate, location, temp, condition)
	}
	return fmt.Sprintf(frenchTemplate, location, temp, condition)
}
