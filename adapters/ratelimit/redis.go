package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/satriahrh/voice-assistant/utils/log"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const window = time.Minute

type counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisCounter struct {
	client *redis.Client
}

func (c redisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RedisStore counts requests per identifier in fixed one-minute windows
// shared by every replica. A Redis outage lets requests through.
type RedisStore struct {
	counter   counter
	perMinute int64
	prefix    string
	timeout   time.Duration
	now       func() time.Time
}

var _ middleware.RateLimiterStore = (*RedisStore)(nil)

func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.L().Info("Successfully connected to Redis")
	return client, nil
}

func NewRedisStore(client *redis.Client, perMinute int) *RedisStore {
	return newStore(redisCounter{client: client}, perMinute)
}

func newStore(c counter, perMinute int) *RedisStore {
	if perMinute <= 0 {
		perMinute = 20
	}
	return &RedisStore{
		counter:   c,
		perMinute: int64(perMinute),
		prefix:    "ratelimit:",
		timeout:   200 * time.Millisecond,
		now:       time.Now,
	}
}

func (s *RedisStore) Allow(identifier string) (bool, error) {
	bucket := s.now().Truncate(window).Unix()
	key := s.prefix + identifier + ":" + strconv.FormatInt(bucket, 10)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.counter.Incr(ctx, key, window)
	if err != nil {
		log.L().Warn("Rate limit counter unavailable, allowing request",
			zap.String("identifier", identifier), zap.Error(err))
		return true, nil
	}
	return n <= s.perMinute, nil
}

// NewMemoryStore is the single-process fallback: a token bucket refilled at
// perMinute tokens per minute with a burst of perMinute.
func NewMemoryStore(perMinute int) middleware.RateLimiterStore {
	if perMinute <= 0 {
		perMinute = 20
	}
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / window.Seconds()),
		Burst:     perMinute,
		ExpiresIn: 3 * window,
	})
}
