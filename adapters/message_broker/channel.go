package message_broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/satriahrh/voice-assistant/domain"
	"github.com/satriahrh/voice-assistant/utils/log"
	"go.uber.org/zap"
)

var ErrBrokerClosed = errors.New("message broker is closed")

const subscriberBuffer = 100

// ChannelMessageBroker fans published messages out to every in-process
// subscriber of a topic and routing key.
type ChannelMessageBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Message]struct{}
	closed      bool
}

func NewChannelMessageBroker() *ChannelMessageBroker {
	return &ChannelMessageBroker{
		subscribers: make(map[string]map[chan domain.Message]struct{}),
	}
}

func makeKey(topic, routingKey string) string {
	return topic + ":" + routingKey
}

// Publish delivers message to current subscribers. A subscriber whose buffer
// is full misses the message; publishing never blocks on a slow reader.
func (b *ChannelMessageBroker) Publish(ctx context.Context, topic string, routingKey string, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	msg := domain.Message{
		Topic:      topic,
		RoutingKey: routingKey,
		Payload:    message,
		Timestamp:  time.Now(),
	}

	delivered := 0
	for ch := range b.subscribers[makeKey(topic, routingKey)] {
		select {
		case ch <- msg:
			delivered++
		default:
			log.WithCtx(ctx).Warn("Subscriber buffer full, dropping message",
				zap.String("topic", topic),
				zap.String("routingKey", routingKey))
		}
	}

	log.WithCtx(ctx).Debug("📤 Message published to topic",
		zap.String("topic", topic),
		zap.String("routingKey", routingKey),
		zap.Int("payload_size", len(message)),
		zap.Int("delivered", delivered))
	return nil
}

// Subscribe returns a channel that receives messages until ctx is done or the
// broker is closed. The channel is closed in both cases.
func (b *ChannelMessageBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	key := makeKey(topic, routingKey)
	ch := make(chan domain.Message, subscriberBuffer)
	if b.subscribers[key] == nil {
		b.subscribers[key] = make(map[chan domain.Message]struct{})
	}
	b.subscribers[key][ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.unsubscribe(key, ch)
	}()

	log.WithCtx(ctx).Info("📡 Subscribed to topic", zap.String("topic", topic), zap.String("routingKey", routingKey))
	return ch, nil
}

func (b *ChannelMessageBroker) unsubscribe(key string, ch chan domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[key]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(b.subscribers, key)
	}
}

func (b *ChannelMessageBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for key, subs := range b.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, key)
	}

	log.L().Info("🔒 Message broker closed")
	return nil
}

// SubscriberCount reports live subscribers for a topic and routing key.
func (b *ChannelMessageBroker) SubscriberCount(topic, routingKey string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[makeKey(topic, routingKey)])
}
