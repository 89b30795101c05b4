package execution

import (
	"math"
	"testing"
)

func TestCosts_AffordableShares(t *testing.T) {
	c := Costs{FeePerTrade: 1, SlippagePct: 0.0005}
	// 100000 / (150 * 1.0005) = 666.22...
	if got := c.AffordableShares(100000, 150); got != 666 {
		t.Fatalf("expected 666 shares, got %d", got)
	}
	if got := c.AffordableShares(99, 100); got != 0 {
		t.Fatalf("expected 0 shares when price exceeds cash, got %d", got)
	}
}

func TestCosts_AffordableShares_InvalidPrice(t *testing.T) {
	c := Costs{}
	for _, open := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		if got := c.AffordableShares(1000, open); got != 0 {
			t.Errorf("open=%v: expected 0 shares, got %d", open, got)
		}
	}
}

func TestCosts_BuyConservesCash(t *testing.T) {
	c := Costs{FeePerTrade: 1, SlippagePct: 0.001}
	f := c.Buy(10, 200)

	wantPx := 200 * 1.001
	if math.Abs(f.FillPrice-wantPx) > 1e-9 {
		t.Fatalf("fill price: got %.6f want %.6f", f.FillPrice, wantPx)
	}
	if want := -(10*wantPx + 1); math.Abs(f.CashDelta-want) > 1e-9 {
		t.Fatalf("cash delta: got %.6f want %.6f", f.CashDelta, want)
	}
}

func TestCosts_SellConservesCash(t *testing.T) {
	c := Costs{FeePerTrade: 1, SlippagePct: 0.001}
	f := c.Sell(10, 200)

	wantPx := 200 * 0.999
	if math.Abs(f.FillPrice-wantPx) > 1e-9 {
		t.Fatalf("fill price: got %.6f want %.6f", f.FillPrice, wantPx)
	}
	if want := 10*wantPx - 1; math.Abs(f.CashDelta-want) > 1e-9 {
		t.Fatalf("cash delta: got %.6f want %.6f", f.CashDelta, want)
	}
}

func TestCosts_ZeroFrictionRoundTrip(t *testing.T) {
	c := Costs{}
	buy := c.Buy(7, 50)
	sell := c.Sell(7, 50)
	if buy.CashDelta+sell.CashDelta != 0 {
		t.Fatalf("expected flat round trip, got %.6f", buy.CashDelta+sell.CashDelta)
	}
}
