package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a redis client, allowing the
// counters to be shared across service replicas. INCR and the TTL guard run
// in a single pipeline so concurrent increments for the same key stay
// atomic.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: "ratelimit:",
	}
}

func (s *RedisStore) key(key string) string {
	return s.keyPrefix + key
}

// IncrementAndGet atomically increments the counter for key. The window TTL
// is attached on the first increment only (NX), so later increments never
// extend the window.
func (s *RedisStore) IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := s.key(key)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.TTL(ctx, k)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	return incr.Val(), ttl.Val(), nil
}

// Get returns the current counter value and remaining TTL for key.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	k := s.key(key)

	pipe := s.client.Pipeline()
	get := pipe.Get(ctx, k)
	ttl := pipe.TTL(ctx, k)

	if _, err := pipe.Exec(ctx); err != nil {
		if err == redis.Nil {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	current, err := get.Int64()
	if err != nil {
		return 0, 0, err
	}

	return current, ttl.Val(), nil
}

// Delete removes the counter for key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
