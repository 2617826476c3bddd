package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/satriahrh/voice-assistant/domain"
	"github.com/satriahrh/voice-assistant/usecase"
	"github.com/satriahrh/voice-assistant/utils/log"
	"go.uber.org/zap"
)

const (
	FrameUtterance = "utterance"
	FrameReply     = "reply"
	FrameError     = "error"
	FrameExchange  = "exchange"
)

// Frame is the JSON envelope exchanged with browsers.
type Frame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExchangeFrame relays an exchange resolved elsewhere.
type ExchangeFrame struct {
	Type string `json:"type"`
	domain.ExchangeMessage
}

var errSendBufferFull = errors.New("client send buffer is full")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

type Client struct {
	conn       *websocket.Conn
	send       chan []byte
	utterances chan string
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
	closed     bool
}

func NewClient(conn *websocket.Conn, userID, deviceID string) *Client {
	ctx := log.ContextWithUserID(context.Background(), userID)
	ctx = log.ContextWithDeviceID(ctx, deviceID)
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		utterances: make(chan string, 16),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the read, write and resolve loops. Utterances from one client
// are resolved strictly in arrival order.
func (c *Client) Run(resolver Resolver) {
	c.setupHandlers()

	go c.readPump()
	go c.writePump()
	go c.resolveLoop(resolver)
}

func (c *Client) setupHandlers() {
	c.conn.SetCloseHandler(func(code int, text string) error {
		log.WithCtx(c.ctx).Debug("WebSocket connection closed", zap.Int("code", code), zap.String("text", text))
		c.Close()
		return nil
	})

	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) Context() context.Context {
	return c.ctx
}

func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.WithCtx(c.ctx).Error("WebSocket error", zap.Error(err))
			}
			return
		}

		text, ok := parseUtterance(message)
		if !ok {
			c.sendFrame(Frame{Type: FrameError, Error: "unsupported frame"})
			continue
		}

		select {
		case c.utterances <- text:
		case <-c.ctx.Done():
			return
		}
	}
}

// parseUtterance accepts an utterance frame or a bare text frame. Blank text
// is passed on so the resolver rejects it like any other caller.
func parseUtterance(message []byte) (string, bool) {
	trimmed := strings.TrimSpace(string(message))
	if !strings.HasPrefix(trimmed, "{") {
		return string(message), true
	}

	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		return string(message), true
	}
	if frame.Type != "" && frame.Type != FrameUtterance {
		return "", false
	}
	return frame.Text, true
}

func (c *Client) resolveLoop(resolver Resolver) {
	results := make(chan usecase.Result)
	go func() {
		defer close(results)
		if err := resolver.Execute(c.ctx, c.utterances, results); err != nil {
			log.WithCtx(c.ctx).Error("Resolver loop failed", zap.Error(err))
		}
	}()

	for res := range results {
		if res.Err != nil {
			c.sendFrame(Frame{Type: FrameError, Error: res.Err.Error()})
			continue
		}
		c.sendFrame(Frame{Type: FrameReply, Message: res.Response.Message})
	}
}

func (c *Client) sendFrame(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.WithCtx(c.ctx).Error("Failed to marshal frame", zap.Error(err))
		return
	}
	if err := c.SendMessage(data); err != nil {
		log.WithCtx(c.ctx).Debug("Dropped frame", zap.String("type", frame.Type), zap.Error(err))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithCtx(c.ctx).Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.WithCtx(c.ctx).Debug("Failed to send ping", zap.Error(err))
				return
			}

		case <-c.ctx.Done():
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// SendMessage queues message for delivery. A client that cannot keep up is
// disconnected.
func (c *Client) SendMessage(message []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return websocket.ErrCloseSent
	}

	select {
	case c.send <- message:
		c.mu.RUnlock()
		return nil
	default:
		c.mu.RUnlock()
		c.Close()
		return errSendBufferFull
	}
}
