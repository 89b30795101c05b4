// Package service runs backtests end to end: load bars, simulate, then
// record metrics, persist run totals and send the summary alert.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/internal/backtest"
	"github.com/dorjee9/algotrade-simple/internal/logger"
	"github.com/dorjee9/algotrade-simple/internal/marketdata"
	"github.com/dorjee9/algotrade-simple/internal/metrics"
	"github.com/dorjee9/algotrade-simple/internal/model"
	"github.com/dorjee9/algotrade-simple/internal/notification"
	sqlitestore "github.com/dorjee9/algotrade-simple/internal/store/sqlite"
)

// Request is one backtest invocation. To is exclusive.
type Request struct {
	Symbol string          `json:"symbol"`
	From   time.Time       `json:"from"`
	To     time.Time       `json:"to"`
	Params backtest.Params `json:"params"`
}

// Outcome is a finished run.
type Outcome struct {
	RunID  string
	Result *backtest.Result
}

// RunStore persists run totals.
type RunStore interface {
	SaveRun(ctx context.Context, r sqlitestore.RunRecord) error
}

// Options wires a Service. Only Source is required.
type Options struct {
	Source   marketdata.Source
	Runs     RunStore
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus
	Logger   zerolog.Logger
}

// Service is safe for concurrent use if its collaborators are.
type Service struct {
	source   marketdata.Source
	runs     RunStore
	notifier notification.Notifier
	metrics  *metrics.Metrics
	health   *metrics.HealthStatus
	log      zerolog.Logger

	newID func() string
}

// New creates a Service.
func New(opts Options) *Service {
	return &Service{
		source:   opts.Source,
		runs:     opts.Runs,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		health:   opts.Health,
		log:      logger.Component(opts.Logger, "service"),
		newID:    uuid.NewString,
	}
}

// NewRunID returns a fresh run id.
func (s *Service) NewRunID() string { return s.newID() }

// Run executes req under a new run id.
func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	return s.RunWithID(ctx, s.newID(), req)
}

// RunWithID executes req under runID. Failures to persist or notify are
// logged and do not fail the run.
func (s *Service) RunWithID(ctx context.Context, runID string, req Request) (*Outcome, error) {
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx, s.log)
	symbol := marketdata.NormalizeSymbol(req.Symbol)

	if err := req.Params.Validate(); err != nil {
		s.fail(metrics.ResultInvalid)
		return nil, err
	}
	if symbol == "" {
		s.fail(metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: symbol is required", backtest.ErrInvalidParams)
	}
	if !req.To.After(req.From) {
		s.fail(metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: end %s is not after start %s", backtest.ErrInvalidParams,
			req.To.Format(model.DateLayout), req.From.Format(model.DateLayout))
	}

	bars, err := s.source.Bars(ctx, symbol, req.From, req.To)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			s.fail(metrics.ResultNoData)
		} else {
			s.fail(metrics.ResultError)
		}
		return nil, fmt.Errorf("load bars: %w", err)
	}

	start := time.Now()
	res, err := backtest.Run(bars, req.Params)
	took := time.Since(start)
	if err != nil {
		if errors.Is(err, backtest.ErrNoBars) {
			s.fail(metrics.ResultNoData)
		} else {
			s.fail(metrics.ResultError)
		}
		return nil, err
	}
	res.Summary.Symbol = symbol

	if s.metrics != nil {
		s.metrics.ObserveRun(res.Summary, took)
	}
	if s.health != nil {
		s.health.RecordRun(time.Now())
	}

	if log.GetLevel() <= zerolog.DebugLevel {
		for i := range res.Days {
			if res.Days[i].Action == model.ActionSkipInsufficientCash {
				log.Debug().
					Str("date", res.Days[i].Date.Format(model.DateLayout)).
					Float64("cash", res.Days[i].Cash).
					Msg("buy skipped, cash below one share")
			}
		}
	}
	if res.Summary.InsufficientData {
		log.Warn().Int("bars", len(bars)).Int("slow_window", req.Params.SlowWindow).
			Msg("fewer bars than slow window, no signal generated")
	}

	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, sqlitestore.NewRunRecord(runID, req.Params, res.Summary)); err != nil {
			log.Warn().Err(err).Msg("save run failed")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.SummaryAlert(runID, res.Summary)); err != nil {
			log.Warn().Err(err).Msg("notify failed")
		}
	}

	log.Info().
		Str("symbol", symbol).
		Int("days", res.Summary.Days).
		Float64("ending_value", res.Summary.EndingValue).
		Float64("return_pct", res.Summary.CumulativeReturnPct).
		Int("trades", res.Summary.Trades).
		Dur("took", took).
		Msg("backtest complete")

	return &Outcome{RunID: runID, Result: res}, nil
}

func (s *Service) fail(result string) {
	if s.metrics != nil {
		s.metrics.ObserveFailure(result)
	}
}
