package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/satriahrh/voice-assistant/domain"
	"github.com/satriahrh/voice-assistant/usecase"
	"github.com/satriahrh/voice-assistant/utils/log"
	"go.uber.org/zap"
)

// Resolver turns a stream of utterances into replies, one at a time.
type Resolver interface {
	Execute(ctx context.Context, input <-chan string, output chan<- usecase.Result) error
}

type Server struct {
	upgrader      websocket.Upgrader
	resolver      Resolver
	messageBroker domain.MessageBroker
	hub           *Hub
}

// NewServer accepts browsers whose Origin is in allowedOrigins; "*" allows any.
func NewServer(resolver Resolver, messageBroker domain.MessageBroker, allowedOrigins []string) *Server {
	return &Server{
		upgrader:      websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		resolver:      resolver,
		messageBroker: messageBroker,
		hub:           NewHub(),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Listen relays published exchanges to every connected client until ctx is done.
func (s *Server) Listen(ctx context.Context) error {
	messages, err := s.messageBroker.Subscribe(ctx, domain.ExchangeTopic, "")
	if err != nil {
		return err
	}

	log.WithCtx(ctx).Info("🎧 WebSocket server listening to exchanges")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.relay(ctx, msg)
		case <-ctx.Done():
			log.WithCtx(ctx).Info("🔒 Exchange listener stopped")
			return nil
		}
	}
}

func (s *Server) relay(ctx context.Context, msg domain.Message) {
	var exchange domain.ExchangeMessage
	if err := json.Unmarshal(msg.Payload, &exchange); err != nil {
		log.WithCtx(ctx).Error("❌ Failed to unmarshal exchange message", zap.Error(err))
		return
	}

	data, err := json.Marshal(ExchangeFrame{Type: FrameExchange, ExchangeMessage: exchange})
	if err != nil {
		log.WithCtx(ctx).Error("❌ Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	sent := s.hub.Broadcast(data)
	log.WithCtx(ctx).Debug("📤 Broadcasted exchange to WebSocket clients",
		zap.String("request_id", exchange.RequestID),
		zap.Int("clients", sent))
}
