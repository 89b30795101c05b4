package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/internal/marketdata"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

const (
	defaultTTL          = 6 * time.Hour
	defaultMaxFailures  = 5
	defaultResetTimeout = 10 * time.Second
	keyPrefix           = "bars:"
)

// CacheConfig configures a BarCache.
type CacheConfig struct {
	TTL          time.Duration // default 6h
	MaxFailures  int           // breaker trip threshold, default 5
	ResetTimeout time.Duration // breaker cool-down, default 10s
	Logger       zerolog.Logger

	// OnStateChange is called on breaker transitions (for metrics).
	OnStateChange func(from, to State)
}

// BarCache is a read-through marketdata.Source that keeps fetched series in Redis.
// Every Redis call goes through a CircuitBreaker. Redis errors never fail a
// request: the wrapped source is consulted instead.
type BarCache struct {
	kv      kv
	next    marketdata.Source
	ttl     time.Duration
	breaker *CircuitBreaker
	log     zerolog.Logger
}

// NewBarCache wraps next with a Redis cache on client.
func NewBarCache(client *goredis.Client, next marketdata.Source, cfg CacheConfig) *BarCache {
	return newBarCache(goredisKV{client: client}, next, cfg)
}

func newBarCache(store kv, next marketdata.Source, cfg CacheConfig) *BarCache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}

	log := cfg.Logger.With().Str("component", "bar-cache").Logger()
	cb := NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout)
	cb.IsFailure = func(err error) bool { return !errors.Is(err, errCacheMiss) }
	cb.OnStateChange = func(from, to State) {
		log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker transition")
		if cfg.OnStateChange != nil {
			cfg.OnStateChange(from, to)
		}
	}

	return &BarCache{
		kv:      store,
		next:    next,
		ttl:     cfg.TTL,
		breaker: cb,
		log:     log,
	}
}

// Breaker exposes the circuit breaker for health checks.
func (c *BarCache) Breaker() *CircuitBreaker { return c.breaker }

// Key returns the cache key for a request: bars:{SYMBOL}:{from}:{to}.
func Key(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, strings.ToUpper(symbol),
		from.Format(model.DateLayout), to.Format(model.DateLayout))
}

// Bars implements marketdata.Source.
func (c *BarCache) Bars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	key := Key(symbol, from, to)

	if bars, ok := c.get(ctx, key); ok {
		c.log.Debug().Str("key", key).Int("bars", len(bars)).Msg("cache hit")
		return bars, nil
	}

	bars, err := c.next.Bars(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		c.set(ctx, key, bars)
	}
	return bars, nil
}

func (c *BarCache) get(ctx context.Context, key string) ([]model.Bar, bool) {
	var raw []byte
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		raw, err = c.kv.Get(ctx, key)
		return err
	})
	switch {
	case errors.Is(err, errCacheMiss):
		return nil, false
	case err != nil:
		c.log.Debug().Err(err).Str("key", key).Msg("cache read skipped")
		return nil, false
	}

	var bars []model.Bar
	if err := json.Unmarshal(raw, &bars); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("corrupt cache entry")
		return nil, false
	}
	return bars, true
}

func (c *BarCache) set(ctx context.Context, key string, bars []model.Bar) {
	data, err := json.Marshal(bars)
	if err != nil {
		c.log.Warn().Err(err).Msg("marshal bars")
		return
	}
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.kv.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("cache write skipped")
	}
}
