package backtest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorjee9/algotrade-simple/internal/model"
)

var day0 = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

func barsFromCloses(closes []float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Date:  day0.AddDate(0, 0, i),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return bars
}

func stepSeries(flatDays, jumpDays int) []model.Bar {
	closes := make([]float64, 0, flatDays+jumpDays)
	for i := 0; i < flatDays; i++ {
		closes = append(closes, 100)
	}
	for i := 0; i < jumpDays; i++ {
		closes = append(closes, 200)
	}
	return barsFromCloses(closes)
}

func TestRun_JumpScenario(t *testing.T) {
	p := Params{FastWindow: 5, SlowWindow: 20, InitialCash: 10000, FeePerTrade: 1, SlippagePct: 0}
	res, err := Run(stepSeries(60, 10), p)
	require.NoError(t, err)

	for i := 0; i < 61; i++ {
		assert.Equal(t, model.ActionNone, res.Days[i].Action, "day %d", i)
		assert.Equal(t, 10000.0, res.Days[i].PortfolioValue, "day %d", i)
	}
	buy := res.Days[61]
	assert.Equal(t, model.ActionBuy, buy.Action)
	assert.Equal(t, int64(50), buy.Position)
	assert.InDelta(t, -1.0, buy.Cash, 1e-9)

	s := res.Summary
	assert.Equal(t, 1, s.Trades)
	assert.Equal(t, 1, s.Buys)
	assert.Equal(t, 0, s.Sells)
	assert.InDelta(t, s.FinalCash+float64(s.FinalPosition)*200, s.EndingValue, 1e-9)
	assert.InDelta(t, 9999.0, s.EndingValue, 1e-9)
	assert.InDelta(t, -0.01, s.CumulativeReturnPct, 1e-9)
	assert.False(t, s.InsufficientData)
}

func TestRun_JumpScenario_ExitsWhenAveragesConverge(t *testing.T) {
	// 20 days after the jump both averages equal 200, so raw drops to 0.
	p := Params{FastWindow: 5, SlowWindow: 20, InitialCash: 10000, FeePerTrade: 1, SlippagePct: 0}
	res, err := Run(stepSeries(60, 30), p)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Signals.Raw[79])
	assert.Equal(t, model.ActionSell, res.Days[80].Action)
	assert.Equal(t, 2, res.Summary.Trades)
	// 10000 - 10001 + 50*200 - 1
	assert.InDelta(t, 9998.0, res.Summary.EndingValue, 1e-9)
}

func TestRun_ShortSeries(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	res, err := Run(barsFromCloses(closes), DefaultParams())
	require.NoError(t, err)

	s := res.Summary
	assert.True(t, s.InsufficientData)
	assert.Equal(t, 0, s.Trades)
	assert.Equal(t, 100000.0, s.EndingValue)
	assert.Equal(t, 0.0, s.CumulativeReturnPct)
	assert.Len(t, res.Days, 10)
}

func TestRun_NoBars(t *testing.T) {
	res, err := Run(nil, DefaultParams())
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrNoBars))
}

func TestRun_InvalidParamsBeforeBars(t *testing.T) {
	p := DefaultParams()
	p.FastWindow = 50
	_, err := Run(nil, p)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestParams_Validate(t *testing.T) {
	cases := map[string]func(p *Params){
		"fast equals slow": func(p *Params) { p.FastWindow = p.SlowWindow },
		"fast above slow":  func(p *Params) { p.FastWindow = p.SlowWindow + 1 },
		"fast zero":        func(p *Params) { p.FastWindow = 0 },
		"zero cash":        func(p *Params) { p.InitialCash = 0 },
		"negative cash":    func(p *Params) { p.InitialCash = -1 },
		"negative fee":     func(p *Params) { p.FeePerTrade = -0.5 },
		"negative slip":    func(p *Params) { p.SlippagePct = -0.001 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultParams()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}
	assert.NoError(t, DefaultParams().Validate())
}

func TestRun_Idempotent(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + float64((i*37)%23) - float64(i%50)/3
	}
	bars := barsFromCloses(closes)
	p := Params{FastWindow: 3, SlowWindow: 10, InitialCash: 5000, FeePerTrade: 1, SlippagePct: 0.0005}

	a, err := Run(bars, p)
	require.NoError(t, err)
	b, err := Run(bars, p)
	require.NoError(t, err)

	assert.Equal(t, a.Summary, b.Summary)
	assert.Equal(t, a.Days, b.Days)
	assert.Equal(t, a.Signals, b.Signals)
}

func TestRun_SignalsHeldFlatDuringWarmup(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = float64(200 - i)
		if i > 60 {
			closes[i] = float64(i * 3)
		}
	}
	p := Params{FastWindow: 10, SlowWindow: 30, InitialCash: 1000, FeePerTrade: 0, SlippagePct: 0}
	res, err := Run(barsFromCloses(closes), p)
	require.NoError(t, err)

	for i := 0; i < p.SlowWindow-1; i++ {
		assert.Equal(t, 0, res.Days[i].Signal, "day %d", i)
	}
	assert.Greater(t, res.Summary.Buys, 0)
}

func TestRun_SkipsUnaffordableBuy(t *testing.T) {
	closes := []float64{5, 5, 6, 7, 8, 9}
	p := Params{FastWindow: 1, SlowWindow: 2, InitialCash: 4, FeePerTrade: 0, SlippagePct: 0}
	res, err := Run(barsFromCloses(closes), p)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Summary.Trades)
	assert.Greater(t, res.Summary.SkippedBuys, 0)
	assert.Equal(t, 4.0, res.Summary.EndingValue)
}
