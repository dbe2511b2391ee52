package locking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "classplan:lock:"

// releaseScript deletes a key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisSlotLocker serialises callers across processes sharing a Redis.
type RedisSlotLocker struct {
	client *redis.Client
	config Config
	logger *slog.Logger
}

// NewRedisSlotLocker creates a Redis-backed locker.
func NewRedisSlotLocker(client *redis.Client, config Config, logger *slog.Logger) *RedisSlotLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSlotLocker{
		client: client,
		config: config.withDefaults(),
		logger: logger,
	}
}

// Acquire takes every key with SET NX PX, polling while a key is held.
func (l *RedisSlotLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	token := uuid.NewString()
	deadline := time.Now().Add(l.config.Wait)

	held := make([]string, 0, len(keys))
	release := func() {
		// Release must run even when the caller's context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := releaseScript.Run(releaseCtx, l.client, []string{held[i]}, token).Err(); err != nil {
				l.logger.Warn("failed to release slot lock", "key", held[i], "error", err)
			}
		}
	}

	for _, key := range keys {
		fullKey := keyPrefix + key
		if err := l.acquireOne(ctx, fullKey, token, deadline); err != nil {
			release()
			return nil, err
		}
		held = append(held, fullKey)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *RedisSlotLocker) acquireOne(ctx context.Context, key, token string, deadline time.Time) error {
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.config.TTL).Result()
		if err != nil {
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}

		if time.Now().Add(l.config.RetryInterval).After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.config.RetryInterval):
		}
	}
}
