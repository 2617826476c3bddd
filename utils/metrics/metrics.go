// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes.
const (
	OutcomePlain         = "plain"
	OutcomeEmpty         = "empty"
	OutcomeAction        = "action"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeModelError    = "model_error"
	OutcomeWeatherError  = "weather_error"
	OutcomeCancelled     = "cancelled"
	UpstreamModel        = "model"
	UpstreamWeather      = "weather"
	UpstreamSpeech       = "speech"
	UpstreamTextToSpeech = "tts"
)

var (
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_resolutions_total",
		Help: "Utterances resolved, by outcome",
	}, []string{"outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistant_upstream_duration_seconds",
		Help:    "Latency of calls to external providers",
		Buckets: prometheus.DefBuckets,
	}, []string{"upstream"})
)

// ObserveSince records the time elapsed since start for upstream.
func ObserveSince(upstream string, start time.Time) {
	UpstreamDuration.WithLabelValues(upstream).Observe(time.Since(start).Seconds())
}
