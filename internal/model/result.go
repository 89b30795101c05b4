package model

import "time"

// Action is what the simulator did on a given day.
type Action string

const (
	ActionNone Action = "NONE"
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	// ActionSkipInsufficientCash marks a BUY signal that could not afford a single share.
	ActionSkipInsufficientCash Action = "SKIP_INSUFFICIENT_CASH"
)

// DayResult is one row of the simulated daily series.
type DayResult struct {
	Date           time.Time `json:"date"`
	Signal         int       `json:"signal"`          // 0 = flat, 1 = hold long
	Action         Action    `json:"action"`          // trade executed at the open, if any
	FillPrice      float64   `json:"fill_price"`      // effective execution price incl. slippage (0 if no trade)
	Close          float64   `json:"close"`           // mark price
	Cash           float64   `json:"cash"`            // cash after the day's trade
	Position       int64     `json:"position"`        // shares held after the day's trade
	PortfolioValue float64   `json:"portfolio_value"` // cash + position * close
}

// Summary holds the running totals of one backtest run.
type Summary struct {
	Symbol              string    `json:"symbol,omitempty"`
	From                time.Time `json:"from"`
	To                  time.Time `json:"to"`
	Days                int       `json:"days"`
	InitialCash         float64   `json:"initial_cash"`
	EndingValue         float64   `json:"ending_value"`
	CumulativeReturnPct float64   `json:"cumulative_return_pct"`
	Trades              int       `json:"trades"`
	Buys                int       `json:"buys"`
	Sells               int       `json:"sells"`
	SkippedBuys         int       `json:"skipped_buys"`
	FeesPaid            float64   `json:"fees_paid"`
	FinalPosition       int64     `json:"final_position"`
	FinalCash           float64   `json:"final_cash"`
	InsufficientData    bool      `json:"insufficient_data"` // fewer bars than the slow window
}
