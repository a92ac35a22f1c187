package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"trustboard/internal/verification/models"
)

const defaultKeyPrefix = "trustboard:result:"

// RedisCache shares results across instances. Redis expires keys on its own;
// the TTL is still checked on read so clock skew never serves a stale entry.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	clock  func() time.Time
	logger *slog.Logger
}

type RedisOption func(*RedisCache)

func WithRedisClock(clock func() time.Time) RedisOption {
	return func(c *RedisCache) { c.clock = clock }
}

func WithKeyPrefix(prefix string) RedisOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

func WithLogger(logger *slog.Logger) RedisOption {
	return func(c *RedisCache) { c.logger = logger }
}

func NewRedis(client redis.Cmdable, opts ...RedisOption) *RedisCache {
	c := &RedisCache{client: client, prefix: defaultKeyPrefix, clock: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.VerificationResult, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || !entry.Valid(key) {
		c.logger.WarnContext(ctx, "evicting corrupted cache entry", "fingerprint", key)
		c.evict(ctx, key)
		return nil, ErrNotFound
	}
	if entry.Expired(c.clock()) {
		c.evict(ctx, key)
		return nil, ErrNotFound
	}
	return entry.Result, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result *models.VerificationResult, ttl time.Duration) error {
	if ttl <= 0 {
		return errInvalidTTL
	}
	if result == nil {
		return errors.New("cache result is required")
	}
	raw, err := json.Marshal(models.CacheEntry{
		Key:      key,
		Result:   result,
		StoredAt: c.clock(),
		TTL:      ttl,
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) evict(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache eviction failed", "fingerprint", key, "error", err)
	}
}
