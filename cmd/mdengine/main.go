// cmd/mdengine syncs daily bars from Yahoo Finance into the SQLite bar store,
// so later backtests can run with data_source=sqlite.
//
// Usage:
//
//	go run ./cmd/mdengine --symbols=AAPL,MSFT --start=2015-01-01 --end=2025-01-01
//	go run ./cmd/mdengine --symbols=AAPL --follow
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/config"
	"github.com/dorjee9/algotrade-simple/internal/logger"
	"github.com/dorjee9/algotrade-simple/internal/marketdata"
	"github.com/dorjee9/algotrade-simple/internal/marketdata/yahoo"
	"github.com/dorjee9/algotrade-simple/internal/markethours"
	"github.com/dorjee9/algotrade-simple/internal/metrics"
	"github.com/dorjee9/algotrade-simple/internal/model"
	sqlitestore "github.com/dorjee9/algotrade-simple/internal/store/sqlite"
)

// settleDelay gives the provider time to publish the final daily bar.
const settleDelay = 20 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "YAML config file (default $CONFIG_PATH)")
	symbols := flag.String("symbols", "", "Comma-separated tickers (default: config symbol)")
	start := flag.String("start", "", "First session, YYYY-MM-DD")
	end := flag.String("end", "", "End date (exclusive), YYYY-MM-DD; default the day after the last closed session")
	dbPath := flag.String("db", "", "SQLite database path")
	every := flag.Duration("every", 0, "Repeat the sync at this interval (0 = once)")
	follow := flag.Bool("follow", false, "Keep running and sync after every session close")
	metricsAddr := flag.String("metrics", "", "Serve /metrics and /healthz on this address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[mdengine] config: %v\n", err)
		return 2
	}
	log := logger.Init("mdengine", cfg.LogLevel)

	if *dbPath != "" {
		cfg.SQLitePath = *dbPath
	}
	if *start != "" {
		cfg.Start = *start
	}
	// Without an explicit end, sync up to the last closed session so an
	// in-progress bar is never stored.
	cfg.End = *end

	list := parseSymbols(*symbols)
	if len(list) == 0 {
		list = []string{marketdata.NormalizeSymbol(cfg.Symbol)}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlitestore.Open(cfg.SQLitePath, log)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite open failed")
		return 1
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	upstream := marketdata.Instrument("yahoo", yahoo.NewClient(cfg.YahooURL), m.ObserveFetch)
	wh := marketdata.NewWarehouse(store, upstream, log)

	if *metricsAddr != "" {
		health := metrics.NewHealthStatus()
		health.SetSQLiteOK(true)
		health.StartLivenessChecker(ctx, nil, store.DB(), 15*time.Second)
		srv := metrics.NewServer(*metricsAddr, reg, health, log)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	failed := syncAll(ctx, wh, list, cfg, log)
	if *every <= 0 && !*follow {
		if failed > 0 {
			return 1
		}
		return 0
	}

	for {
		wait := *every
		if *follow {
			next := markethours.NextClose(time.Now()).Add(settleDelay)
			wait = time.Until(next)
			log.Info().Time("next_sync", next).Msg("waiting for session close")
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("shutting down")
			return 0
		case <-timer.C:
			syncAll(ctx, wh, list, cfg, log)
		}
	}
}

// syncAll syncs every symbol and returns the number of failures.
func syncAll(ctx context.Context, wh *marketdata.Warehouse, symbols []string, cfg *config.Config, log zerolog.Logger) int {
	endDate := cfg.End
	if endDate == "" {
		now := time.Now()
		endDate = markethours.SyncEnd(now).Format(model.DateLayout)
		if markethours.IsMarketOpen(now) {
			log.Info().Msg("session in progress, today's bar is left for the next sync")
		}
	}
	from, to, err := config.ParseRange(cfg.Start, endDate)
	if err != nil {
		log.Error().Err(err).Msg("invalid range")
		return len(symbols)
	}

	failed := 0
	for _, sym := range symbols {
		if ctx.Err() != nil {
			return failed + 1
		}
		n, err := wh.Sync(ctx, sym, from, to)
		if err != nil {
			failed++
			if errors.Is(err, context.Canceled) {
				return failed
			}
			log.Error().Err(err).Str("symbol", sym).Msg("sync failed")
			continue
		}
		log.Info().Str("symbol", sym).Int("bars", n).Msg("sync ok")
	}
	return failed
}

func parseSymbols(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = marketdata.NormalizeSymbol(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
