// cmd/backtest runs the SMA crossover backtest for one symbol and prints the
// ending portfolio value and cumulative return.
//
// Usage:
//
//	go run ./cmd/backtest --symbol=AAPL --start=2022-01-01 --end=2024-12-31 --fast=20 --slow=50
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/config"
	"github.com/dorjee9/algotrade-simple/internal/backtest"
	"github.com/dorjee9/algotrade-simple/internal/logger"
	"github.com/dorjee9/algotrade-simple/internal/marketdata"
	"github.com/dorjee9/algotrade-simple/internal/metrics"
	"github.com/dorjee9/algotrade-simple/internal/report"
	"github.com/dorjee9/algotrade-simple/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "YAML config file (default $CONFIG_PATH)")
	symbol := flag.String("symbol", "", "Ticker to backtest")
	start := flag.String("start", "", "First session, YYYY-MM-DD")
	end := flag.String("end", "", "End date (exclusive), YYYY-MM-DD")
	fast := flag.Int("fast", 0, "Fast SMA window")
	slow := flag.Int("slow", 0, "Slow SMA window")
	cash := flag.Float64("cash", 0, "Initial cash")
	fee := flag.Float64("fee", -1, "Fixed fee per trade")
	slippage := flag.Float64("slippage", -1, "Slippage as a fraction of price (0.0005 = 5 bps)")
	source := flag.String("source", "", "Data source: yahoo | csv | sqlite")
	csvPath := flag.String("csv", "", "CSV file, may contain {symbol}")
	dbPath := flag.String("db", "", "SQLite database path (empty string keeps config)")
	jsonOut := flag.String("json", "", "Write {summary, days} JSON to this file")
	csvOut := flag.String("csv-out", "", "Write the daily series as CSV to this file")
	chartOut := flag.String("chart", "", "Write the equity chart SVG to this file")
	metricsAddr := flag.String("metrics", "", "Serve /metrics and /healthz on this address while running")
	logLevel := flag.String("log-level", "", "debug | info | warn | error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[backtest] config: %v\n", err)
		return 2
	}

	// Flags override config.
	setString(&cfg.Symbol, *symbol)
	setString(&cfg.Start, *start)
	setString(&cfg.End, *end)
	setString(&cfg.DataSource, *source)
	setString(&cfg.CSVPath, *csvPath)
	setString(&cfg.SQLitePath, *dbPath)
	setString(&cfg.JSONPath, *jsonOut)
	setString(&cfg.CSVOut, *csvOut)
	setString(&cfg.ChartPath, *chartOut)
	setString(&cfg.LogLevel, *logLevel)
	if *fast > 0 {
		cfg.FastWindow = *fast
	}
	if *slow > 0 {
		cfg.SlowWindow = *slow
	}
	if *cash > 0 {
		cfg.InitialCash = *cash
	}
	if *fee >= 0 {
		cfg.FeePerTrade = *fee
	}
	if *slippage >= 0 {
		cfg.SlippagePct = *slippage
	}
	if *source == config.SourceCSV && *csvPath == "" && cfg.CSVPath == "" {
		cfg.CSVPath = "data/{symbol}.csv"
	}

	log := logger.Init("backtest", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return 2
	}
	from, to, _ := cfg.Range()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	inf, err := service.Open(ctx, cfg, reg, log)
	if err != nil {
		log.Error().Err(err).Msg("wiring failed")
		return 1
	}
	defer inf.Close()

	if *metricsAddr != "" {
		srv := metrics.NewServer(*metricsAddr, reg, inf.Health, log)
		srv.Start()
		inf.StartHealthChecks(ctx, 15*time.Second)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	out, err := inf.Service.Run(ctx, service.Request{
		Symbol: cfg.Symbol,
		From:   from,
		To:     to,
		Params: cfg.Params(),
	})
	if err != nil {
		switch {
		case errors.Is(err, backtest.ErrNoBars), errors.Is(err, marketdata.ErrNoData):
			log.Warn().Err(err).Str("symbol", cfg.Symbol).Msg("no price data, nothing to report")
			return 3
		case errors.Is(err, backtest.ErrInvalidParams):
			log.Error().Err(err).Msg("invalid parameters")
			return 2
		}
		log.Error().Err(err).Msg("backtest failed")
		return 1
	}

	if err := report.PrintSummary(os.Stdout, out.Result.Summary); err != nil {
		log.Error().Err(err).Msg("print summary")
		return 1
	}
	if err := writeOutputs(cfg, out, log); err != nil {
		log.Error().Err(err).Msg("write outputs")
		return 1
	}
	return 0
}

func writeOutputs(cfg *config.Config, out *service.Outcome, log zerolog.Logger) error {
	res := out.Result
	if cfg.JSONPath != "" {
		if err := report.WriteJSONFile(cfg.JSONPath, report.NewDocument(out.RunID, res)); err != nil {
			return err
		}
		log.Info().Str("path", cfg.JSONPath).Msg("wrote json")
	}
	if cfg.CSVOut != "" {
		if err := report.WriteCSVFile(cfg.CSVOut, res.Days); err != nil {
			return err
		}
		log.Info().Str("path", cfg.CSVOut).Msg("wrote csv")
	}
	if cfg.ChartPath != "" {
		svg, err := report.RenderEquitySVG(res.Summary.Symbol, res.Days,
			report.SVGChartOptions{Baseline: res.Params.InitialCash})
		if err != nil {
			log.Warn().Err(err).Msg("chart skipped")
			return nil
		}
		if err := os.WriteFile(cfg.ChartPath, svg, 0o644); err != nil {
			return err
		}
		log.Info().Str("path", cfg.ChartPath).Msg("wrote chart")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
