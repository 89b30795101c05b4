// Package report renders backtest results for people and for other tools:
// a console summary box, JSON, a daily CSV series and an SVG equity chart.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dorjee9/algotrade-simple/internal/model"
)

const boxWidth = 38

// Round2 rounds v half away from zero to two decimals.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Money formats v with two decimals and thousands separators, e.g. 102,345.67.
func Money(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	f, _ := d.Float64()
	return message.NewPrinter(language.English).Sprintf("%.2f", f)
}

// Headline writes the two result lines every run prints:
//
//	Ending Value: 102345.67
//	Cumulative Return: 2.35 %
func Headline(w io.Writer, s model.Summary) error {
	ending := decimal.NewFromFloat(s.EndingValue).Round(2)
	ret := decimal.NewFromFloat(s.CumulativeReturnPct).Round(2)
	_, err := fmt.Fprintf(w, "Ending Value: %s\nCumulative Return: %s %%\n",
		ending.StringFixed(2), ret.StringFixed(2))
	return err
}

// PrintSummary writes the boxed run summary followed by the headline lines.
func PrintSummary(w io.Writer, s model.Summary) error {
	p := message.NewPrinter(language.English)

	title := "BACKTEST COMPLETE"
	if s.Symbol != "" {
		title = s.Symbol + " BACKTEST"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("╔" + strings.Repeat("═", boxWidth) + "╗\n")
	b.WriteString("║" + center(title, boxWidth) + "║\n")
	b.WriteString("╠" + strings.Repeat("═", boxWidth) + "╣\n")
	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("║  %-17s %-18s║\n", label+":", value))
	}
	if !s.From.IsZero() {
		row("From", s.From.Format(model.DateLayout))
		row("To", s.To.Format(model.DateLayout))
	}
	row("Days", p.Sprintf("%d", s.Days))
	row("Initial cash", Money(s.InitialCash))
	row("Ending value", Money(s.EndingValue))
	row("Return", decimal.NewFromFloat(s.CumulativeReturnPct).Round(2).StringFixed(2)+" %")
	row("Trades", fmt.Sprintf("%d (%dB/%dS)", s.Trades, s.Buys, s.Sells))
	row("Skipped buys", fmt.Sprintf("%d", s.SkippedBuys))
	row("Fees paid", Money(s.FeesPaid))
	row("Final position", p.Sprintf("%d", s.FinalPosition))
	row("Final cash", Money(s.FinalCash))
	if s.InsufficientData {
		row("Note", "no crossover data")
	}
	b.WriteString("╚" + strings.Repeat("═", boxWidth) + "╝\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	return Headline(w, s)
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
