// Package execution prices simulated fills at the session open.
//
// Buys fill above the open and sells below it by a proportional slippage,
// and every executed trade pays a flat fee.
package execution

import "math"

// Costs holds the per-trade frictions of a simulated account.
type Costs struct {
	FeePerTrade float64 `json:"fee_per_trade"` // flat, charged once per executed trade
	SlippagePct float64 `json:"slippage_pct"`  // fraction of price, e.g. 0.0005 = 5 bps
}

// Fill represents a simulated order fill.
type Fill struct {
	Shares    int64   `json:"shares"`
	FillPrice float64 `json:"fill_price"` // open adjusted for slippage
	Fee       float64 `json:"fee"`
	CashDelta float64 `json:"cash_delta"` // negative on buys, positive on sells
}

// BuyPrice is the effective per-share price paid when buying at open.
func (c Costs) BuyPrice(open float64) float64 {
	return open * (1 + c.SlippagePct)
}

// SellPrice is the effective per-share price received when selling at open.
func (c Costs) SellPrice(open float64) float64 {
	return open * (1 - c.SlippagePct)
}

// AffordableShares returns how many whole shares cash buys at open.
// The fee is not reserved; a fill that leaves cash slightly negative is accepted.
func (c Costs) AffordableShares(cash, open float64) int64 {
	px := c.BuyPrice(open)
	if !(px > 0) || !(cash > 0) {
		return 0
	}
	n := math.Floor(cash / px)
	if n >= 1<<62 {
		return 0
	}
	return int64(n)
}

// Buy fills shares at open. The returned CashDelta is the full cost including fee.
func (c Costs) Buy(shares int64, open float64) Fill {
	px := c.BuyPrice(open)
	return Fill{
		Shares:    shares,
		FillPrice: px,
		Fee:       c.FeePerTrade,
		CashDelta: -(float64(shares)*px + c.FeePerTrade),
	}
}

// Sell fills shares at open. The returned CashDelta is proceeds net of fee.
func (c Costs) Sell(shares int64, open float64) Fill {
	px := c.SellPrice(open)
	return Fill{
		Shares:    shares,
		FillPrice: px,
		Fee:       c.FeePerTrade,
		CashDelta: float64(shares)*px - c.FeePerTrade,
	}
}
