package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/dorjee9/algotrade-simple/internal/execution"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

func day(signal int, open, close float64) Day {
	return Day{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Signal: signal, Open: open, Close: close}
}

func TestStep_FlatBuy(t *testing.T) {
	costs := execution.Costs{FeePerTrade: 2, SlippagePct: 0.01}
	next, action := Step(State{Cash: 1000}, day(1, 100, 105), costs)

	if action != model.ActionBuy {
		t.Fatalf("expected BUY, got %s", action)
	}
	// floor(1000 / 101) = 9
	if next.Shares != 9 {
		t.Fatalf("expected 9 shares, got %d", next.Shares)
	}
	// BUY conservation: cash_before - cash_after == shares*open*(1+slip) + fee
	want := 9*100*1.01 + 2
	if got := 1000 - next.Cash; math.Abs(got-want) > 1e-9 {
		t.Fatalf("cash spent: got %.6f want %.6f", got, want)
	}
}

func TestStep_InvestedSell(t *testing.T) {
	costs := execution.Costs{FeePerTrade: 2, SlippagePct: 0.01}
	next, action := Step(State{Cash: 5, Shares: 9}, day(0, 120, 118), costs)

	if action != model.ActionSell {
		t.Fatalf("expected SELL, got %s", action)
	}
	if !next.Flat() {
		t.Fatalf("expected flat after sell, shares=%d", next.Shares)
	}
	// SELL conservation: cash_after - cash_before == shares*open*(1-slip) - fee
	want := 9*120*0.99 - 2
	if got := next.Cash - 5; math.Abs(got-want) > 1e-9 {
		t.Fatalf("proceeds: got %.6f want %.6f", got, want)
	}
}

func TestStep_Holds(t *testing.T) {
	costs := execution.Costs{FeePerTrade: 1}

	s := State{Cash: 50, Shares: 3}
	if next, action := Step(s, day(1, 10, 11), costs); next != s || action != model.ActionNone {
		t.Fatalf("invested+1 should hold, got %+v %s", next, action)
	}
	s = State{Cash: 50}
	if next, action := Step(s, day(0, 10, 11), costs); next != s || action != model.ActionNone {
		t.Fatalf("flat+0 should hold, got %+v %s", next, action)
	}
}

func TestStep_SkipInsufficientCash(t *testing.T) {
	s := State{Cash: 99}
	next, action := Step(s, day(1, 100, 100), execution.Costs{FeePerTrade: 1})
	if action != model.ActionSkipInsufficientCash {
		t.Fatalf("expected skip, got %s", action)
	}
	if next != s {
		t.Fatalf("state must not change on skip: %+v", next)
	}
}

func TestSimulate_SharesChangeOnlyOnTransitions(t *testing.T) {
	signals := []int{0, 1, 1, 0, 0, 1, 0, 1, 1, 1, 0}
	days := make([]Day, len(signals))
	for i, sig := range signals {
		p := 100 + float64(i)
		days[i] = day(sig, p, p+0.5)
	}

	res, final, tally := Simulate(days, 10000, execution.Costs{FeePerTrade: 1, SlippagePct: 0.0005})
	if len(res) != len(days) {
		t.Fatalf("expected %d results, got %d", len(days), len(res))
	}

	prevShares := int64(0)
	for i, r := range res {
		changed := r.Position != prevShares
		traded := r.Action == model.ActionBuy || r.Action == model.ActionSell
		if changed != traded {
			t.Fatalf("day %d: shares changed=%v but action=%s", i, changed, r.Action)
		}
		if r.Action == model.ActionBuy && prevShares != 0 {
			t.Fatalf("day %d: buy while invested", i)
		}
		if r.Action == model.ActionSell && r.Position != 0 {
			t.Fatalf("day %d: partial sell", i)
		}
		if want := r.Cash + float64(r.Position)*r.Close; r.PortfolioValue != want {
			t.Fatalf("day %d: value %.6f, want %.6f", i, r.PortfolioValue, want)
		}
		prevShares = r.Position
	}

	if tally.Buys != 3 || tally.Sells != 3 {
		t.Fatalf("expected 3 buys and 3 sells, got %d/%d", tally.Buys, tally.Sells)
	}
	if tally.Trades() != 6 || tally.FeesPaid != 6 {
		t.Fatalf("unexpected tally %+v", tally)
	}
	if !final.Flat() {
		t.Fatalf("expected flat at end, shares=%d", final.Shares)
	}
}

func TestSimulate_FillPriceIncludesSlippage(t *testing.T) {
	days := []Day{day(1, 100, 100), day(0, 110, 110)}
	res, _, _ := Simulate(days, 1000, execution.Costs{SlippagePct: 0.01})

	if math.Abs(res[0].FillPrice-101) > 1e-9 {
		t.Fatalf("buy fill: got %.6f", res[0].FillPrice)
	}
	if math.Abs(res[1].FillPrice-108.9) > 1e-9 {
		t.Fatalf("sell fill: got %.6f", res[1].FillPrice)
	}
}

func TestSimulate_OpenPositionMarkedAtLastClose(t *testing.T) {
	days := []Day{day(0, 10, 10), day(1, 10, 12), day(1, 13, 15)}
	res, final, tally := Simulate(days, 100, execution.Costs{})

	if final.Shares != 10 || tally.Sells != 0 {
		t.Fatalf("expected open position of 10, got %+v %+v", final, tally)
	}
	if last := res[len(res)-1]; last.PortfolioValue != 150 {
		t.Fatalf("expected 150 marked at close, got %.2f", last.PortfolioValue)
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	days := make([]Day, 200)
	for i := range days {
		p := 50 + 10*math.Sin(float64(i)/7)
		days[i] = day(i/9%2, p, p*1.003)
	}
	costs := execution.Costs{FeePerTrade: 1, SlippagePct: 0.0005}

	a, _, ta := Simulate(days, 100000, costs)
	b, _, tb := Simulate(days, 100000, costs)
	if ta != tb {
		t.Fatalf("tallies differ: %+v vs %+v", ta, tb)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("day %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
