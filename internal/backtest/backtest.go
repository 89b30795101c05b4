// Package backtest runs the SMA crossover strategy over a daily bar series.
//
// Run is the single entry point: ordered bars and parameters in, the daily
// series and a summary out. It performs no I/O.
package backtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/dorjee9/algotrade-simple/internal/execution"
	"github.com/dorjee9/algotrade-simple/internal/model"
	"github.com/dorjee9/algotrade-simple/internal/portfolio"
	"github.com/dorjee9/algotrade-simple/internal/strategy"
)

var (
	// ErrInvalidParams is wrapped by every Params.Validate failure.
	ErrInvalidParams = errors.New("backtest: invalid parameters")

	// ErrNoBars is returned when the price series is empty.
	ErrNoBars = errors.New("backtest: no bars")
)

// Params configures one run.
type Params struct {
	FastWindow  int     `json:"fast_window" yaml:"fast_window"`
	SlowWindow  int     `json:"slow_window" yaml:"slow_window"`
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	FeePerTrade float64 `json:"fee_per_trade" yaml:"fee_per_trade"`
	SlippagePct float64 `json:"slippage_pct" yaml:"slippage_pct"`
}

// DefaultParams returns the stock 20/50 setup on a 100k account.
func DefaultParams() Params {
	return Params{
		FastWindow:  20,
		SlowWindow:  50,
		InitialCash: 100000,
		FeePerTrade: 1.0,
		SlippagePct: 0.0005,
	}
}

// Validate checks p before a run.
func (p Params) Validate() error {
	switch {
	case p.FastWindow < 1:
		return fmt.Errorf("%w: fast window %d < 1", ErrInvalidParams, p.FastWindow)
	case p.FastWindow >= p.SlowWindow:
		return fmt.Errorf("%w: fast window %d must be below slow window %d", ErrInvalidParams, p.FastWindow, p.SlowWindow)
	case !(p.InitialCash > 0) || math.IsInf(p.InitialCash, 0):
		return fmt.Errorf("%w: initial cash %v must be positive", ErrInvalidParams, p.InitialCash)
	case !(p.FeePerTrade >= 0):
		return fmt.Errorf("%w: fee %v is negative", ErrInvalidParams, p.FeePerTrade)
	case !(p.SlippagePct >= 0):
		return fmt.Errorf("%w: slippage %v is negative", ErrInvalidParams, p.SlippagePct)
	}
	return nil
}

// Costs returns the execution frictions of p.
func (p Params) Costs() execution.Costs {
	return execution.Costs{FeePerTrade: p.FeePerTrade, SlippagePct: p.SlippagePct}
}

// Result is the output of Run.
type Result struct {
	Params  Params            `json:"params"`
	Signals strategy.Signals  `json:"-"`
	Days    []model.DayResult `json:"days"`
	Summary model.Summary     `json:"summary"`
}

// Run validates p, derives the lagged signal from closes and simulates the
// account. Bars must be in ascending date order with one bar per session.
func Run(bars []model.Bar, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	sig := strategy.NewSMACrossover(p.FastWindow, p.SlowWindow).Generate(model.Closes(bars))

	days := make([]portfolio.Day, len(bars))
	for i := range bars {
		days[i] = portfolio.Day{
			Date:   bars[i].Date,
			Signal: sig.Signal[i],
			Open:   bars[i].Open,
			Close:  bars[i].Close,
		}
	}

	series, final, tally := portfolio.Simulate(days, p.InitialCash, p.Costs())
	ending := series[len(series)-1].PortfolioValue

	return &Result{
		Params:  p,
		Signals: sig,
		Days:    series,
		Summary: model.Summary{
			From:                bars[0].Date,
			To:                  bars[len(bars)-1].Date,
			Days:                len(bars),
			InitialCash:         p.InitialCash,
			EndingValue:         ending,
			CumulativeReturnPct: (ending/p.InitialCash - 1) * 100,
			Trades:              tally.Trades(),
			Buys:                tally.Buys,
			Sells:               tally.Sells,
			SkippedBuys:         tally.SkippedBuys,
			FeesPaid:            tally.FeesPaid,
			FinalPosition:       final.Shares,
			FinalCash:           final.Cash,
			InsufficientData:    len(bars) < p.SlowWindow,
		},
	}, nil
}
