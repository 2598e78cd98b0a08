package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the connection to a Redis server.
type RedisConfig struct {
	// Addr is host:port, or a redis:// URL.
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key. Clear only removes keys under it.
	Prefix string
	// TTL is the default expiry; zero keeps entries until deleted.
	TTL     time.Duration
	Backoff Backoff
}

// Redis is a [Cache] backed by a Redis server. It is intended as the shared
// second tier behind an [LRU].
type Redis struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	backoff Backoff
}

// NewRedis connects to the server described by cfg and pings it.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	var opts *redis.Options
	if strings.Contains(cfg.Addr, "://") {
		var err error
		if opts, err = redis.ParseURL(cfg.Addr); err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	} else {
		opts = &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisFromClient(client, cfg), nil
}

// NewRedisFromClient wraps an existing client. Connection fields of cfg are
// ignored.
func NewRedisFromClient(client *redis.Client, cfg RedisConfig) *Redis {
	b := cfg.Backoff
	if b.Attempts == 0 {
		b = DefaultBackoff
	}
	return &Redis{client: client, prefix: cfg.Prefix, ttl: cfg.TTL, backoff: b}
}

func (r *Redis) key(k string) string { return r.prefix + k }

// Get implements [Cache]. Transient connection errors are retried.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := RetryWithBackoff(ctx, r.backoff, func() error {
		b, err := r.client.Get(ctx, r.key(key)).Bytes()
		if err != nil {
			return classify(err)
		}
		data = b
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// Set implements [Cache].
func (r *Redis) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	err := RetryWithBackoff(ctx, r.backoff, func() error {
		return classify(r.client.Set(ctx, r.key(key), data, ttl).Err())
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements [Cache].
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every key under the configured prefix. With an empty
// prefix it does nothing rather than flush the whole database.
func (r *Redis) Clear(ctx context.Context) error {
	if r.prefix == "" {
		return nil
	}
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
