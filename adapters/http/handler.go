package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/satriahrh/voice-assistant/domain"
	"github.com/satriahrh/voice-assistant/usecase"
	"github.com/satriahrh/voice-assistant/utils/log"
	"github.com/satriahrh/voice-assistant/utils/metrics"
	"go.uber.org/zap"
)

const (
	MaxAudioSize = 10 * 1024 * 1024

	ServiceName = "voice-assistant"
)

// Resolver produces the reply for one utterance.
type Resolver interface {
	Resolve(ctx context.Context, utterance string) (domain.ResolvedResponse, error)
}

// Authenticator manages accounts and tokens.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ParseToken(token string) (*usecase.Claims, error)
}

type Handler struct {
	resolver      Resolver
	auth          Authenticator
	messageBroker domain.MessageBroker
	transcriber   domain.Transcriber
	synthesizer   domain.Synthesizer
}

type MessageRequest struct {
	Message string `json:"message"`
}

type AudioResponse struct {
	Message    string `json:"message"`
	Transcript string `json:"transcript"`
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Message string `json:"message"`
}

func NewHandler(resolver Resolver, auth Authenticator, messageBroker domain.MessageBroker) *Handler {
	return &Handler{
		resolver:      resolver,
		auth:          auth,
		messageBroker: messageBroker,
	}
}

// WithSpeech enables the voice endpoints.
func (h *Handler) WithSpeech(transcriber domain.Transcriber, synthesizer domain.Synthesizer) *Handler {
	h.transcriber = transcriber
	h.synthesizer = synthesizer
	return h
}

// Routes registers the public API on e.
func (h *Handler) Routes(e *echo.Echo) {
	e.GET("/health", h.HealthCheck)

	auth := e.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)

	message := e.Group("/message", h.OptionalJWT)
	message.POST("", h.HandleMessage)
	if h.transcriber != nil {
		message.POST("/audio", h.HandleAudio)
	}
	if h.synthesizer != nil {
		message.POST("/speech", h.HandleSpeech)
	}

	// legacy path used by earlier web clients
	e.POST("/context", h.HandleMessage, h.OptionalJWT)
}

// HandleMessage resolves {"message": ...} into {"message": ...}.
func (h *Handler) HandleMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	resp, err := h.resolve(c, req.Message)
	if err != nil {
		return h.resolveError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleAudio transcribes a raw LINEAR16 body and resolves the transcript.
func (h *Handler) HandleAudio(c echo.Context) error {
	ctx := c.Request().Context()

	audio, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxAudioSize))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read audio"})
	}
	if len(audio) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "audio is required"})
	}

	start := time.Now()
	transcript, err := h.transcriber.Transcribe(ctx, audio)
	metrics.ObserveSince(metrics.UpstreamSpeech, start)
	if err != nil {
		log.WithCtx(ctx).Error("Transcription failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	if strings.TrimSpace(transcript) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no speech recognized"})
	}

	resp, err := h.resolve(c, transcript)
	if err != nil {
		return h.resolveError(c, err)
	}
	return c.JSON(http.StatusOK, AudioResponse{Message: resp.Message, Transcript: transcript})
}

// HandleSpeech resolves {"message": ...} and answers with the spoken reply.
func (h *Handler) HandleSpeech(c echo.Context) error {
	ctx := c.Request().Context()

	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	resp, err := h.resolve(c, req.Message)
	if err != nil {
		return h.resolveError(c, err)
	}

	start := time.Now()
	audio, err := h.synthesizer.Synthesize(ctx, resp.Message)
	metrics.ObserveSince(metrics.UpstreamTextToSpeech, start)
	if err != nil {
		log.WithCtx(ctx).Error("Speech synthesis failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

func (h *Handler) resolve(c echo.Context, utterance string) (domain.ResolvedResponse, error) {
	ctx := c.Request().Context()
	resp, err := h.resolver.Resolve(ctx, utterance)

	var invalid *domain.InvalidInputError
	if !errors.As(err, &invalid) {
		h.publishExchange(ctx, utterance, resp, err)
	}
	return resp, err
}

func (h *Handler) resolveError(c echo.Context, err error) error {
	var invalid *domain.InvalidInputError
	if errors.As(err, &invalid) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalid.Reason})
	}

	log.WithCtx(c.Request().Context()).Error("Failed to resolve message", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func (h *Handler) publishExchange(ctx context.Context, utterance string, resp domain.ResolvedResponse, resolveErr error) {
	if h.messageBroker == nil {
		return
	}

	exchange := domain.ExchangeMessage{
		RequestID: log.RequestID(ctx),
		UserID:    log.UserID(ctx),
		Messages:  []domain.ChatMessage{{Role: domain.UserRole, Content: utterance}},
		Timestamp: time.Now().UTC(),
		Success:   resolveErr == nil,
	}
	if resolveErr != nil {
		exchange.Error = resolveErr.Error()
	} else {
		exchange.Messages = append(exchange.Messages, domain.ChatMessage{Role: domain.AssistantRole, Content: resp.Message})
	}

	payload, err := json.Marshal(exchange)
	if err != nil {
		log.WithCtx(ctx).Error("Error marshaling exchange message", zap.Error(err))
		return
	}
	if err := h.messageBroker.Publish(ctx, domain.ExchangeTopic, "", payload); err != nil {
		// the reply is still returned to the caller
		log.WithCtx(ctx).Warn("Error publishing exchange", zap.Error(err))
	}
}

func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   ServiceName,
	})
}
