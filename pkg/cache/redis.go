// Package cache keeps serialized entries in Redis in front of the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/unowned-ai/daybook/pkg/entries"
)

const keyPrefix = "daybook:entry:"

// Key is the Redis key holding the entry with the given uuid.
func Key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

// RedisCache stores each entry as a hash with its JSON under "data".
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache connects to addrs, a comma separated list. One address gives
// a plain client, several give a cluster client.
func NewRedisCache(addrs string, ttl time.Duration) *RedisCache {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: strings.Split(addrs, ","),

		PoolSize:     20,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})
	return NewRedisCacheWithClient(client, ttl)
}

func NewRedisCacheWithClient(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, id uuid.UUID) (entries.SerializedEntry, bool, error) {
	raw, err := c.client.HGet(ctx, Key(id), "data").Result()
	if errors.Is(err, redis.Nil) {
		return entries.SerializedEntry{}, false, nil
	}
	if err != nil {
		return entries.SerializedEntry{}, false, err
	}

	var e entries.SerializedEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return entries.SerializedEntry{}, false, fmt.Errorf("failed to unmarshal cached entry %s: %w", id, err)
	}
	return e, true, nil
}

func (c *RedisCache) Set(ctx context.Context, e entries.SerializedEntry) error {
	id, err := uuid.Parse(e.UUID)
	if err != nil {
		return fmt.Errorf("cannot cache entry with uuid %q: %w", e.UUID, err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	key := Key(id)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"data":      string(data),
		"cached_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, Key(id)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
