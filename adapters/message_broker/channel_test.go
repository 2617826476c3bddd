package message_broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satriahrh/voice-assistant/domain"
)

func expectMessage(t *testing.T, ch <-chan domain.Message, payload string) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before a message arrived")
		}
		if string(msg.Payload) != payload {
			t.Errorf("got payload %q, want %q", msg.Payload, payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("no message with payload %q", payload)
	}
}

func TestChannelMessageBroker_FanOut(t *testing.T) {
	broker := NewChannelMessageBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := broker.Subscribe(ctx, domain.ExchangeTopic, "")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	second, err := broker.Subscribe(ctx, domain.ExchangeTopic, "")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := broker.Publish(context.Background(), domain.ExchangeTopic, "", []byte("hello")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	expectMessage(t, first, "hello")
	expectMessage(t, second, "hello")
}

func TestChannelMessageBroker_RoutingKeysAreIsolated(t *testing.T) {
	broker := NewChannelMessageBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userA, _ := broker.Subscribe(ctx, domain.ExchangeTopic, "user-a")
	userB, _ := broker.Subscribe(ctx, domain.ExchangeTopic, "user-b")

	broker.Publish(context.Background(), domain.ExchangeTopic, "user-a", []byte("for a"))

	expectMessage(t, userA, "for a")
	select {
	case msg := <-userB:
		t.Errorf("user-b should not receive %q", msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChannelMessageBroker_PublishWithoutSubscribers(t *testing.T) {
	broker := NewChannelMessageBroker()
	defer broker.Close()

	if err := broker.Publish(context.Background(), "nobody", "", []byte("x")); err != nil {
		t.Errorf("publishing to an empty topic should succeed: %v", err)
	}
}

func TestChannelMessageBroker_FullBufferDoesNotBlock(t *testing.T) {
	broker := NewChannelMessageBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker.Subscribe(ctx, "slow", "")

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			broker.Publish(context.Background(), "slow", "", []byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestChannelMessageBroker_UnsubscribeOnCancel(t *testing.T) {
	broker := NewChannelMessageBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := broker.Subscribe(ctx, "t", "")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected the channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after cancel")
	}

	if n := broker.SubscriberCount("t", ""); n != 0 {
		t.Errorf("expected no subscribers, got %d", n)
	}
}

func TestChannelMessageBroker_Close(t *testing.T) {
	broker := NewChannelMessageBroker()
	ch, _ := broker.Subscribe(context.Background(), "t", "")

	if err := broker.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed")
	}
	if err := broker.Publish(context.Background(), "t", "", nil); !errors.Is(err, ErrBrokerClosed) {
		t.Errorf("expected ErrBrokerClosed, got %v", err)
	}
	if _, err := broker.Subscribe(context.Background(), "t", ""); !errors.Is(err, ErrBrokerClosed) {
		t.Errorf("expected ErrBrokerClosed, got %v", err)
	}
	if err := broker.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}
}

func TestSubject(t *testing.T) {
	if got := subject("assistant.exchanges", ""); got != "assistant.exchanges" {
		t.Errorf("got %s", got)
	}
	if got := subject("assistant.exchanges", "u1"); got != "assistant.exchanges.u1" {
		t.Errorf("got %s", got)
	}
}
