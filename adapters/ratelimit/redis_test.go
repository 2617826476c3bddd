package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (c *memoryCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func TestRedisStore_Allow(t *testing.T) {
	c := &memoryCounter{counts: map[string]int64{}}
	store := newStore(c, 3)
	now := time.Date(2025, 1, 1, 10, 0, 5, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if ok, _ := store.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := store.Allow("10.0.0.1"); ok {
		t.Error("fourth request in the window should be denied")
	}
	if ok, _ := store.Allow("10.0.0.2"); !ok {
		t.Error("other identifiers have their own budget")
	}

	now = now.Add(time.Minute)
	if ok, _ := store.Allow("10.0.0.1"); !ok {
		t.Error("a new window should reset the budget")
	}
}

func TestRedisStore_FailsOpen(t *testing.T) {
	store := newStore(&memoryCounter{err: errors.New("connection refused")}, 1)

	ok, err := store.Allow("10.0.0.1")
	if !ok || err != nil {
		t.Errorf("expected the request through on counter failure, got %v, %v", ok, err)
	}
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore(2)

	allowed := 0
	for i := 0; i < 5; i++ {
		if ok, _ := store.Allow("10.0.0.1"); ok {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("expected a burst of 2, got %d", allowed)
	}
}
