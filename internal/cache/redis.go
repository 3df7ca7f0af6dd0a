package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	connectAttempts = 3
	pingTimeout     = 3 * time.Second
)

// ConnectRedis opens the client shared by the listing cache, the task queue and
// the mock email sink. The first ping is retried so workers started alongside
// Redis in compose do not crash-loop.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			zap.L().Info("Connected to Redis", zap.String("addr", addr), zap.Int("db", db))
			return rdb, nil
		}
		zap.L().Warn("Redis ping failed", zap.String("addr", addr), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < connectAttempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
}

// DisconnectRedis closes client. A nil client is ignored.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	return nil
}
