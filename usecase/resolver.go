package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voice-assistant/domain"
	"github.com/satriahrh/voice-assistant/utils/log"
	"github.com/satriahrh/voice-assistant/utils/metrics"
)

// ResponseResolver turns one utterance into exactly one reply: either the model's
// own text or, when the model asks for it, the output of an external provider.
type ResponseResolver struct {
	llm     domain.Llm
	weather domain.WeatherProvider
	hasher  domain.Hasher
}

func NewResponseResolver(llm domain.Llm, weather domain.WeatherProvider, hasher domain.Hasher) *ResponseResolver {
	return &ResponseResolver{
		llm:     llm,
		weather: weather,
		hasher:  hasher,
	}
}

// Resolve runs the pipeline for a single utterance. Provider errors are returned
// unchanged; nothing is retried.
func (r *ResponseResolver) Resolve(ctx context.Context, utterance string) (domain.ResolvedResponse, error) {
	if strings.TrimSpace(utterance) == "" {
		metrics.Resolutions.WithLabelValues(metrics.OutcomeInvalidInput).Inc()
		return domain.ResolvedResponse{}, &domain.InvalidInputError{Reason: "message is required"}
	}

	logger := log.WithCtx(ctx).With(zap.String("utterance_sha256", r.hasher.Hash([]byte(utterance))))

	start := time.Now()
	completion, err := r.llm.Complete(ctx, utterance)
	metrics.ObserveSince(metrics.UpstreamModel, start)
	if err != nil {
		metrics.Resolutions.WithLabelValues(metrics.OutcomeModelError).Inc()
		logger.Error("Model completion failed", zap.Error(err))
		return domain.ResolvedResponse{}, err
	}
	// A completion obtained after cancellation is discarded.
	if err := ctx.Err(); err != nil {
		metrics.Resolutions.WithLabelValues(metrics.OutcomeCancelled).Inc()
		logger.Debug("Request cancelled after model completion", zap.Error(err))
		return domain.ResolvedResponse{}, &domain.UpstreamModelError{Provider: "model", Message: "request cancelled", Err: err}
	}
	logger.Debug("Model completion received", zap.Int("completion_len", len(completion)))

	action, ok := DetectAction(completion)
	if !ok {
		logger.Debug("No action detected")
		return r.plainReply(completion), nil
	}
	return r.dispatch(ctx, logger, action, completion)
}

func (r *ResponseResolver) plainReply(completion string) domain.ResolvedResponse {
	if strings.TrimSpace(completion) == "" {
		metrics.Resolutions.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return domain.ResolvedResponse{Message: domain.NoReplyMessage}
	}
	metrics.Resolutions.WithLabelValues(metrics.OutcomePlain).Inc()
	return domain.ResolvedResponse{Message: completion}
}

func (r *ResponseResolver) dispatch(ctx context.Context, logger *zap.Logger, action domain.ActionRequest, completion string) (domain.ResolvedResponse, error) {
	switch action.Action {
	case domain.ActionGetWeather:
		location := action.Location()
		logger.Info("Dispatching weather lookup", zap.String("location", location))

		start := time.Now()
		report, err := r.weather.FetchWeather(ctx, location)
		metrics.ObserveSince(metrics.UpstreamWeather, start)
		if err != nil {
			metrics.Resolutions.WithLabelValues(metrics.OutcomeWeatherError).Inc()
			logger.Warn("Weather lookup failed", zap.String("location", location), zap.Error(err))
			return domain.ResolvedResponse{}, err
		}
		metrics.Resolutions.WithLabelValues(metrics.OutcomeAction).Inc()
		return domain.ResolvedResponse{Message: report}, nil
	default:
		return r.plainReply(completion), nil
	}
}

// Result is one reply produced by Execute.
type Result struct {
	Utterance string
	Response  domain.ResolvedResponse
	Err       error
}

// Execute resolves utterances read from input one at a time and writes one Result
// per utterance to output. It returns when ctx is done or input is closed.
func (r *ResponseResolver) Execute(ctx context.Context, input <-chan string, output chan<- Result) error {
	for {
		select {
		case msg, ok := <-input:
			if !ok {
				return nil
			}
			resp, err := r.Resolve(ctx, msg)
			select {
			case output <- Result{Utterance: msg, Response: resp, Err: err}:
			case <-ctx.Done():
				return nil
			}
		case <-ctx.Done():
			log.WithCtx(ctx).Debug("Resolver loop stopped")
			return nil
		}
	}
}
