// Package metrics exposes Prometheus metrics and a health endpoint for the backtester.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dorjee9/algotrade-simple/internal/model"
)

// Metrics holds all Prometheus metrics for backtest runs and data loading.
type Metrics struct {
	RunsTotal   *prometheus.CounterVec // result=ok|invalid|no_data|error
	TradesTotal *prometheus.CounterVec // side=buy|sell
	SkippedBuys prometheus.Counter
	RunDuration prometheus.Histogram
	EndingValue prometheus.Gauge
	ReturnPct   prometheus.Gauge

	// Data loading, labelled by source
	BarsLoaded    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec

	StreamClients prometheus.Gauge

	// Circuit breaker
	BreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	BreakerTrips prometheus.Counter
}

// Run results.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultNoData  = "no_data"
	ResultError   = "error"
)

// New creates all metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Backtest runs by result",
		}, []string{"result"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Simulated trades executed, by side",
		}, []string{"side"}),
		SkippedBuys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_skipped_buys_total",
			Help: "Buy signals skipped because cash could not cover one share",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall time of one simulation (excluding data loading)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		EndingValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_ending_value",
			Help: "Ending portfolio value of the most recent run",
		}),
		ReturnPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_return_pct",
			Help: "Cumulative return in percent of the most recent run",
		}),
		BarsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_bars_loaded_total",
			Help: "Daily bars loaded, by source",
		}, []string{"source"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketdata_fetch_duration_seconds",
			Help:    "Bar loading latency, by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketdata_fetch_errors_total",
			Help: "Failed bar loads, by source",
		}, []string{"source"}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_stream_clients",
			Help: "Open websocket backtest streams",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		BreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.TradesTotal,
		m.SkippedBuys,
		m.RunDuration,
		m.EndingValue,
		m.ReturnPct,
		m.BarsLoaded,
		m.FetchDuration,
		m.FetchErrors,
		m.StreamClients,
		m.BreakerState,
		m.BreakerTrips,
	)

	return m
}

// ObserveRun records a finished simulation.
func (m *Metrics) ObserveRun(s model.Summary, took time.Duration) {
	m.RunsTotal.WithLabelValues(ResultOK).Inc()
	m.TradesTotal.WithLabelValues("buy").Add(float64(s.Buys))
	m.TradesTotal.WithLabelValues("sell").Add(float64(s.Sells))
	m.SkippedBuys.Add(float64(s.SkippedBuys))
	m.RunDuration.Observe(took.Seconds())
	m.EndingValue.Set(s.EndingValue)
	m.ReturnPct.Set(s.CumulativeReturnPct)
}

// ObserveFailure records a run that did not produce a result.
func (m *Metrics) ObserveFailure(result string) {
	m.RunsTotal.WithLabelValues(result).Inc()
}

// ObserveFetch matches marketdata.Observer.
func (m *Metrics) ObserveFetch(source string, bars int, took time.Duration, err error) {
	m.FetchDuration.WithLabelValues(source).Observe(took.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(source).Inc()
		return
	}
	m.BarsLoaded.WithLabelValues(source).Add(float64(bars))
}

// SetBreakerState records a breaker transition. state uses the
// 0=closed, 1=open, 2=half-open encoding.
func (m *Metrics) SetBreakerState(state int) {
	m.BreakerState.Set(float64(state))
	if state == 1 {
		m.BreakerTrips.Inc()
	}
}
