package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/config"
	"github.com/dorjee9/algotrade-simple/internal/marketdata"
	"github.com/dorjee9/algotrade-simple/internal/marketdata/csvfeed"
	"github.com/dorjee9/algotrade-simple/internal/marketdata/yahoo"
	"github.com/dorjee9/algotrade-simple/internal/metrics"
	"github.com/dorjee9/algotrade-simple/internal/notification"
	redisstore "github.com/dorjee9/algotrade-simple/internal/store/redis"
	sqlitestore "github.com/dorjee9/algotrade-simple/internal/store/sqlite"
)

// Infra holds the long-lived collaborators built from a Config.
// Store and Redis are nil when not configured or unavailable.
type Infra struct {
	Store     *sqlitestore.Store
	Redis     *goredis.Client
	Cache     *redisstore.BarCache
	Warehouse *marketdata.Warehouse
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Source    marketdata.Source
	Service   *Service
}

// Open wires storage, data sources, metrics and notification for cfg.
// SQLite is required for data_source=sqlite; otherwise a failing store or
// Redis is logged and skipped.
func Open(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, log zerolog.Logger) (*Infra, error) {
	inf := &Infra{
		Metrics: metrics.New(reg),
		Health:  metrics.NewHealthStatus(),
	}
	observe := inf.Metrics.ObserveFetch

	if cfg.SQLitePath != "" {
		st, err := openStore(cfg.SQLitePath, log)
		if err != nil {
			if cfg.DataSource == config.SourceSQLite {
				return nil, err
			}
			log.Warn().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite unavailable, runs will not be stored")
		} else {
			inf.Store = st
			inf.Health.SetSQLiteOK(true)
		}
	}
	if inf.Store == nil {
		if cfg.DataSource == config.SourceSQLite {
			return nil, errors.New("service: data_source=sqlite needs sqlite_path")
		}
		inf.Health.SetSQLiteEnabled(false)
	}

	var src marketdata.Source
	switch cfg.DataSource {
	case config.SourceCSV:
		src = marketdata.Instrument("csv", csvfeed.NewFile(cfg.CSVPath), observe)
	case config.SourceSQLite:
		inf.Warehouse = marketdata.NewWarehouse(inf.Store, nil, log)
		src = marketdata.Instrument("sqlite", inf.Warehouse, observe)
	default:
		upstream := marketdata.Instrument("yahoo", yahoo.NewClient(cfg.YahooURL), observe)
		if inf.Store != nil {
			inf.Warehouse = marketdata.NewWarehouse(inf.Store, upstream, log)
			src = marketdata.Instrument("warehouse", inf.Warehouse, observe)
		} else {
			src = upstream
		}
	}

	if cfg.RedisAddr != "" {
		inf.Health.SetRedisEnabled(true)
		client, err := redisstore.Dial(ctx, redisstore.ClientConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, bar cache disabled")
		} else {
			inf.Redis = client
			inf.Cache = redisstore.NewBarCache(client, src, redisstore.CacheConfig{
				TTL:    cfg.RedisTTL,
				Logger: log,
				OnStateChange: func(_, to redisstore.State) {
					inf.Metrics.SetBreakerState(int(to))
				},
			})
			src = inf.Cache
		}
	}
	inf.Source = src

	var notifier notification.Notifier = notification.NewLogNotifier(log)
	if cfg.WebhookURL != "" {
		notifier = notification.Multi{notifier, notification.NewWebhookNotifier(cfg.WebhookURL)}
	}

	opts := Options{
		Source:   src,
		Notifier: notifier,
		Metrics:  inf.Metrics,
		Health:   inf.Health,
		Logger:   log,
	}
	if inf.Store != nil {
		opts.Runs = inf.Store
	}
	inf.Service = New(opts)
	return inf, nil
}

func openStore(path string, log zerolog.Logger) (*sqlitestore.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	return sqlitestore.Open(path, log)
}

// StartHealthChecks probes the configured backends every interval until ctx ends.
func (inf *Infra) StartHealthChecks(ctx context.Context, interval time.Duration) {
	var db *sql.DB
	if inf.Store != nil {
		db = inf.Store.DB()
	}
	inf.Health.StartLivenessChecker(ctx, inf.Redis, db, interval)
}

// Close releases the store and the Redis client.
func (inf *Infra) Close() error {
	var errs []error
	if inf.Redis != nil {
		errs = append(errs, inf.Redis.Close())
	}
	if inf.Store != nil {
		errs = append(errs, inf.Store.Close())
	}
	return errors.Join(errs...)
}
