package message_broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/satriahrh/voice-assistant/domain"
	"github.com/satriahrh/voice-assistant/utils/log"
	"go.uber.org/zap"
)

// NATSMessageBroker carries exchanges between processes over NATS subjects.
// The subject is the topic, suffixed with ".<routingKey>" when one is given.
type NATSMessageBroker struct {
	conn      *nats.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func NewNATSMessageBroker(url string) (*NATSMessageBroker, error) {
	nc, err := nats.Connect(url, nats.Name("voice-assistant"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.L().Info("Successfully connected to NATS", zap.String("url", url))
	return &NATSMessageBroker{conn: nc, done: make(chan struct{})}, nil
}

func subject(topic, routingKey string) string {
	if routingKey == "" {
		return topic
	}
	return topic + "." + routingKey
}

func (b *NATSMessageBroker) Publish(ctx context.Context, topic string, routingKey string, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.conn.IsClosed() {
		return ErrBrokerClosed
	}
	if err := b.conn.Publish(subject(topic, routingKey), message); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject(topic, routingKey), err)
	}
	return nil
}

func (b *NATSMessageBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Message, error) {
	raw := make(chan *nats.Msg, subscriberBuffer)
	sub, err := b.conn.ChanSubscribe(subject(topic, routingKey), raw)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject(topic, routingKey), err)
	}

	out := make(chan domain.Message, subscriberBuffer)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case m := <-raw:
				msg := domain.Message{
					Topic:      topic,
					RoutingKey: routingKey,
					Payload:    m.Data,
					Timestamp:  time.Now(),
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				case <-b.done:
					return
				}
			}
		}
	}()

	log.WithCtx(ctx).Info("📡 Subscribed to NATS subject", zap.String("subject", subject(topic, routingKey)))
	return out, nil
}

func (b *NATSMessageBroker) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
		}
	})
	return nil
}
