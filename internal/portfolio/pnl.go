package portfolio

import (
	"github.com/dorjee9/algotrade-simple/internal/execution"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

// Tally holds the running trade totals of a simulation.
type Tally struct {
	Buys        int     `json:"buys"`
	Sells       int     `json:"sells"`
	SkippedBuys int     `json:"skipped_buys"`
	FeesPaid    float64 `json:"fees_paid"`
}

// Trades returns the number of executed trades.
func (t Tally) Trades() int { return t.Buys + t.Sells }

func (t *Tally) record(action model.Action, fee float64) {
	switch action {
	case model.ActionBuy:
		t.Buys++
		t.FeesPaid += fee
	case model.ActionSell:
		t.Sells++
		t.FeesPaid += fee
	case model.ActionSkipInsufficientCash:
		t.SkippedBuys++
	}
}

// Simulate folds Step over days in order starting from a flat account holding
// initialCash. It returns one DayResult per day, the final state and the totals.
// Any position still open after the last day is left open and marked at its close.
func Simulate(days []Day, initialCash float64, costs execution.Costs) ([]model.DayResult, State, Tally) {
	state := State{Cash: initialCash}
	var tally Tally
	out := make([]model.DayResult, len(days))

	for i, day := range days {
		var action model.Action
		state, action = Step(state, day, costs)
		tally.record(action, costs.FeePerTrade)

		var fillPrice float64
		switch action {
		case model.ActionBuy:
			fillPrice = costs.BuyPrice(day.Open)
		case model.ActionSell:
			fillPrice = costs.SellPrice(day.Open)
		}

		out[i] = model.DayResult{
			Date:           day.Date,
			Signal:         day.Signal,
			Action:         action,
			FillPrice:      fillPrice,
			Close:          day.Close,
			Cash:           state.Cash,
			Position:       state.Shares,
			PortfolioValue: state.Value(day.Close),
		}
	}
	return out, state, tally
}
