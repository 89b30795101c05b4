package notification

import (
	"fmt"

	"github.com/dorjee9/algotrade-simple/internal/model"
)

// SummaryAlert formats a finished run. Losing runs are raised as warnings.
func SummaryAlert(runID string, s model.Summary) Alert {
	level := AlertInfo
	if s.EndingValue < s.InitialCash {
		level = AlertWarning
	}
	msg := fmt.Sprintf("Ending Value: %.2f | Cumulative Return: %.2f %% | Trades: %d",
		s.EndingValue, s.CumulativeReturnPct, s.Trades)
	if s.InsufficientData {
		msg += " | insufficient data for slow window"
	}
	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("Backtest %s %s..%s", s.Symbol, s.From.Format(model.DateLayout), s.To.Format(model.DateLayout)),
		Message: msg,
		Fields: map[string]any{
			"run_id":         runID,
			"symbol":         s.Symbol,
			"ending_value":   s.EndingValue,
			"return_pct":     s.CumulativeReturnPct,
			"trades":         s.Trades,
			"skipped_buys":   s.SkippedBuys,
			"final_position": s.FinalPosition,
		},
	}
}
