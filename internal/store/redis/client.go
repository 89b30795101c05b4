// Package redis caches daily bar series in Redis behind a circuit breaker.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// ClientConfig configures the Redis connection.
type ClientConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Dial creates a Redis client and pings the server.
func Dial(ctx context.Context, cfg ClientConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// errCacheMiss is returned by kv.Get when the key does not exist.
var errCacheMiss = errors.New("redis: cache miss")

// kv is the subset of Redis used by BarCache.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type goredisKV struct {
	client *goredis.Client
}

func (g goredisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := g.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, errCacheMiss
	}
	return b, err
}

func (g goredisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.client.Set(ctx, key, value, ttl).Err()
}
