package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares cached values between server replicas. Values are
// stored as JSON under a common key prefix.
type RedisCache[T any] struct {
	client  *redis.Client
	ctx     context.Context
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func NewRedisCache[T any](client *redis.Client, prefix string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{
		client:  client,
		ctx:     context.Background(),
		prefix:  prefix,
		ttl:     ttl,
		timeout: 2 * time.Second,
	}
}

func (r *RedisCache[T]) key(k string) string {
	return r.prefix + k
}

func (r *RedisCache[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("Redis cache get failed", "key", key, "error", err)
		}
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("Redis cache entry undecodable", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func (r *RedisCache[T]) Set(key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Redis cache entry unencodable", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()
	if err := r.client.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		slog.Warn("Redis cache set failed", "key", key, "error", err)
	}
}

func (r *RedisCache[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		slog.Warn("Redis cache delete failed", "key", key, "error", err)
	}
}

// Size counts keys under the cache prefix.
func (r *RedisCache[T]) Size() int {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		slog.Warn("Redis cache scan failed", "error", err)
	}
	return n
}
