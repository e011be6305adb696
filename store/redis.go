package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is used when [RedisConfig.Prefix] is empty.
const DefaultRedisPrefix = "lendctl"

// RedisConfig configures a [Redis] store.
type RedisConfig struct {
	Prefix    string
	Namespace string
	// TTL bounds how long values live in Redis. Zero keeps them until removed.
	TTL time.Duration
}

// Redis is a [Store] on a shared Redis deployment. Keys are laid out as
// <prefix>:<namespace>:<key>.
type Redis struct {
	redis     redis.UniversalClient
	prefix    string
	namespace string
	ttl       time.Duration
}

// NewRedis returns a [Redis] store over client.
func NewRedis(client redis.UniversalClient, cfg RedisConfig) *Redis {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "default"
	}
	return &Redis{redis: client, prefix: prefix, namespace: ns, ttl: cfg.TTL}
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + r.namespace + ":" + key
}

// Get implements [Store].
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, nil
}

// Set implements [Store].
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.redis.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Remove implements [Store].
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
