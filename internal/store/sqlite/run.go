package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dorjee9/algotrade-simple/internal/backtest"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

// RunRecord is the stored summary of one backtest run. Per-day rows and
// individual fills are not persisted.
type RunRecord struct {
	RunID       string          `json:"run_id"`
	Symbol      string          `json:"symbol"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Params      backtest.Params `json:"params"`
	Days        int             `json:"days"`
	EndingValue float64         `json:"ending_value"`
	ReturnPct   float64         `json:"return_pct"`
	Trades      int             `json:"trades"`
	SkippedBuys int             `json:"skipped_buys"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewRunRecord builds a RunRecord from a finished run.
func NewRunRecord(runID string, p backtest.Params, s model.Summary) RunRecord {
	return RunRecord{
		RunID:       runID,
		Symbol:      s.Symbol,
		From:        s.From,
		To:          s.To,
		Params:      p,
		Days:        s.Days,
		EndingValue: s.EndingValue,
		ReturnPct:   s.CumulativeReturnPct,
		Trades:      s.Trades,
		SkippedBuys: s.SkippedBuys,
	}
}

func (r RunRecord) paramsJSON() (string, error) {
	b, err := json.Marshal(r.Params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(b), nil
}
