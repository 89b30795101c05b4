// cmd/api_gateway serves backtests over HTTP and websocket.
//
// Usage:
//
//	go run ./cmd/api_gateway --addr=:8080
//	curl 'localhost:8080/api/v1/backtest?symbol=AAPL&from=2022-01-01&to=2024-12-31'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dorjee9/algotrade-simple/config"
	"github.com/dorjee9/algotrade-simple/internal/api"
	"github.com/dorjee9/algotrade-simple/internal/gateway"
	"github.com/dorjee9/algotrade-simple/internal/logger"
	"github.com/dorjee9/algotrade-simple/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "YAML config file (default $CONFIG_PATH)")
	addr := flag.String("addr", "", "Listen address (default config api_addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[api_gateway] config: %v\n", err)
		return 2
	}
	if *addr != "" {
		cfg.APIAddr = *addr
	}
	log := logger.Init("api_gateway", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	inf, err := service.Open(ctx, cfg, reg, log)
	if err != nil {
		log.Error().Err(err).Msg("wiring failed")
		return 1
	}
	defer inf.Close()
	inf.StartHealthChecks(ctx, 15*time.Second)

	hub := gateway.NewHub(log)
	hub.OnClientCount = func(n int) { inf.Metrics.StreamClients.Set(float64(n)) }

	var runs api.RunLister
	if inf.Store != nil {
		runs = inf.Store
	}
	srv := api.NewServer(cfg.APIAddr, api.Deps{
		Service:  inf.Service,
		Runs:     runs,
		Hub:      hub,
		Health:   inf.Health,
		Gatherer: reg,
		Defaults: cfg,
		Logger:   log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("api server failed")
			return 1
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
		return 1
	}
	return 0
}
