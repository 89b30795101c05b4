// Package portfolio simulates a single-symbol long/flat account one day at a time.
//
// The account is either FLAT (no shares) or fully INVESTED. Trades happen at
// the session open and the account is marked at the session close.
package portfolio

import (
	"time"

	"github.com/dorjee9/algotrade-simple/internal/execution"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

// State is the account between two trading days.
type State struct {
	Cash   float64 `json:"cash"`
	Shares int64   `json:"shares"` // 0 = flat
}

// Flat reports whether no shares are held.
func (s State) Flat() bool { return s.Shares == 0 }

// Value marks the account at price.
func (s State) Value(mark float64) float64 {
	return s.Cash + float64(s.Shares)*mark
}

// Day is the input for one simulated session.
type Day struct {
	Date   time.Time
	Signal int // 1 = hold long, 0 = stay flat
	Open   float64
	Close  float64
}

// Step applies one day's signal to s and returns the new state and the action taken.
// It has no side effects.
//
//	FLAT     + 1 → BUY at open (or SKIP_INSUFFICIENT_CASH)
//	FLAT     + 0 → none
//	INVESTED + 0 → SELL at open
//	INVESTED + 1 → none
func Step(s State, day Day, costs execution.Costs) (State, model.Action) {
	switch {
	case s.Flat() && day.Signal == 1:
		shares := costs.AffordableShares(s.Cash, day.Open)
		if shares < 1 {
			return s, model.ActionSkipInsufficientCash
		}
		fill := costs.Buy(shares, day.Open)
		return State{Cash: s.Cash + fill.CashDelta, Shares: shares}, model.ActionBuy

	case !s.Flat() && day.Signal == 0:
		fill := costs.Sell(s.Shares, day.Open)
		return State{Cash: s.Cash + fill.CashDelta, Shares: 0}, model.ActionSell
	}
	return s, model.ActionNone
}
