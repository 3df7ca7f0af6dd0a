package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JSONCache stores JSON-encoded values of T under "<prefix>:<key>".
// A nil client or a non-positive TTL disables it; every method is then a no-op.
type JSONCache[T any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewJSONCache[T any](rdb *redis.Client, prefix string, ttl time.Duration) *JSONCache[T] {
	return &JSONCache[T]{rdb: rdb, prefix: prefix, ttl: ttl, logger: zap.L().Named("cache")}
}

func (c *JSONCache[T]) Enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// Key returns the Redis key for k.
func (c *JSONCache[T]) Key(k string) string {
	return c.prefix + ":" + k
}

// Get returns the cached value. Misses, read errors and undecodable entries all report false.
func (c *JSONCache[T]) Get(ctx context.Context, k string) (*T, bool) {
	if !c.Enabled() {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.Key(k)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Cache read failed", zap.String("key", c.Key(k)), zap.Error(err))
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", c.Key(k)), zap.Error(err))
		_ = c.rdb.Del(ctx, c.Key(k)).Err()
		return nil, false
	}
	return &v, true
}

// Set writes v under each of keys.
func (c *JSONCache[T]) Set(ctx context.Context, v *T, keys ...string) {
	if !c.Enabled() || v == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Cache encode failed", zap.Error(err))
		return
	}
	pipe := c.rdb.Pipeline()
	for _, k := range keys {
		if k != "" {
			pipe.Set(ctx, c.Key(k), raw, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Cache write failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Invalidate deletes the entries for keys. Empty keys are ignored.
func (c *JSONCache[T]) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil {
		return
	}
	var redisKeys []string
	for _, k := range keys {
		if k != "" {
			redisKeys = append(redisKeys, c.Key(k))
		}
	}
	if len(redisKeys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, redisKeys...).Err(); err != nil {
		c.logger.Warn("Cache invalidation failed", zap.Strings("keys", redisKeys), zap.Error(err))
	}
}
