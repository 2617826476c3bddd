package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/satriahrh/voice-assistant/adapters/hasher"
	apihttp "github.com/satriahrh/voice-assistant/adapters/http"
	"github.com/satriahrh/voice-assistant/adapters/llm"
	"github.com/satriahrh/voice-assistant/adapters/message_broker"
	"github.com/satriahrh/voice-assistant/adapters/ratelimit"
	"github.com/satriahrh/voice-assistant/adapters/speech"
	"github.com/satriahrh/voice-assistant/adapters/storage"
	"github.com/satriahrh/voice-assistant/adapters/tts"
	"github.com/satriahrh/voice-assistant/adapters/weather"
	"github.com/satriahrh/voice-assistant/adapters/websocket"
	"github.com/satriahrh/voice-assistant/config"
	"github.com/satriahrh/voice-assistant/domain"
	"github.com/satriahrh/voice-assistant/usecase"
	"github.com/satriahrh/voice-assistant/utils/log"
	"go.uber.org/zap"
)

func main() {
	defer log.Sync()
	logger := log.L()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.JWT.Secret == config.DefaultJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the development secret")
	}

	model, err := llm.New(llm.Settings{
		Provider:       cfg.LLM.Provider,
		MistralAPIKey:  cfg.Mistral.APIKey,
		MistralAgentID: cfg.Mistral.AgentID,
		MistralBaseURL: cfg.Mistral.BaseURL,
		OpenAIAPIKey:   cfg.OpenAI.APIKey,
		OpenAIBaseURL:  cfg.OpenAI.BaseURL,
		OpenAIModel:    cfg.OpenAI.Model,
		GeminiAPIKey:   cfg.Gemini.APIKey,
		GeminiModel:    cfg.Gemini.Model,
	})
	if err != nil {
		logger.Fatal("Failed to configure language model", zap.Error(err))
	}

	weatherProvider := weather.NewWeatherAPI(weather.Settings{
		APIKey:           cfg.Weather.APIKey,
		BaseURL:          cfg.Weather.BaseURL,
		Lang:             cfg.Weather.Lang,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
	})

	resolver := usecase.NewResponseResolver(model, weatherProvider, hasher.Fingerprint{Size: 16})

	db, err := storage.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer storage.Close(db)
	auth := usecase.NewAuthService(storage.NewUserRepository(db), cfg.JWT.Secret, cfg.JWT.Expiry)

	broker := newMessageBroker(cfg.NATS.URL)
	defer broker.Close()

	handler := apihttp.NewHandler(resolver, auth, broker)
	if cfg.Speech.Enabled {
		handler.WithSpeech(
			speech.NewGoogleSpeech(cfg.Speech.Language, cfg.Speech.SampleRate),
			tts.NewGoogleTTS(cfg.Speech.Language),
		)
	}

	wsServer := websocket.NewServer(resolver, broker, cfg.CORS.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := wsServer.Listen(ctx); err != nil {
			logger.Error("Exchange listener failed", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(apihttp.RequestContext)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.WithCtx(c.Request().Context()).Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		Store: newRateLimitStore(cfg.Redis.URL, cfg.RateLimit.PerMinute),
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		MaxAge: 86400,
	}))
	e.Use(middleware.BodyLimit("10M"))

	handler.Routes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ws := e.Group("/ws")
	ws.Use(handler.JWTMiddleware)
	ws.GET("", wsServer.Handler)

	go func() {
		logger.Info("Starting server",
			zap.String("addr", cfg.Address()),
			zap.String("llm_provider", cfg.LLM.Provider),
			zap.Bool("speech", cfg.Speech.Enabled))
		if err := e.Start(cfg.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newMessageBroker(natsURL string) domain.MessageBroker {
	if natsURL != "" {
		broker, err := message_broker.NewNATSMessageBroker(natsURL)
		if err == nil {
			return broker
		}
		log.L().Warn("NATS unavailable, using in-process broker", zap.Error(err))
	}
	return message_broker.NewChannelMessageBroker()
}

func newRateLimitStore(redisURL string, perMinute int) middleware.RateLimiterStore {
	if redisURL != "" {
		client, err := ratelimit.NewRedisClient(redisURL)
		if err == nil {
			return ratelimit.NewRedisStore(client, perMinute)
		}
		log.L().Warn("Redis unavailable, rate limiting per process", zap.Error(err))
	}
	return ratelimit.NewMemoryStore(perMinute)
}
