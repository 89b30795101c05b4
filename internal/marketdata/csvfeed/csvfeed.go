// Package csvfeed reads daily bars from CSV files in the Yahoo Finance
// download layout: Date,Open,High,Low,Close[,Adj Close],Volume.
package csvfeed

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/dorjee9/algotrade-simple/internal/marketdata"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

// SymbolPlaceholder in a file path is replaced by the requested symbol.
const SymbolPlaceholder = "{symbol}"

// File is a marketdata.Source reading one CSV per symbol.
type File struct {
	path string
}

// NewFile creates a source for path, e.g. "data/AAPL.csv" or "data/{symbol}.csv".
func NewFile(path string) *File {
	return &File{path: path}
}

// Bars implements marketdata.Source.
func (f *File) Bars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.ReplaceAll(f.path, SymbolPlaceholder, marketdata.NormalizeSymbol(symbol))
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvfeed: %w", err)
	}
	defer fh.Close()

	bars, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("csvfeed %s: %w", path, err)
	}
	return marketdata.Normalize(bars, from, to), nil
}

var columnTypes = map[string]series.Type{
	"Date":      series.String,
	"Open":      series.Float,
	"High":      series.Float,
	"Low":       series.Float,
	"Close":     series.Float,
	"Adj Close": series.Float,
	"Volume":    series.Float,
}

// Read parses a CSV stream. Rows with an unparsable date or a missing open or
// close are skipped. Missing high/low fall back to the open.
func Read(r io.Reader) ([]model.Bar, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithTypes(columnTypes),
		dataframe.NaNValues([]string{"null", "NaN", "NA", ""}),
	)
	if df.Err != nil {
		return nil, df.Err
	}

	names := map[string]bool{}
	for _, n := range df.Names() {
		names[n] = true
	}
	for _, req := range []string{"Date", "Open", "Close"} {
		if !names[req] {
			return nil, fmt.Errorf("missing column %q", req)
		}
	}

	dates := df.Col("Date").Records()
	opens := df.Col("Open").Float()
	closes := df.Col("Close").Float()
	highs := optional(df, names, "High")
	lows := optional(df, names, "Low")
	vols := optional(df, names, "Volume")

	bars := make([]model.Bar, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		date, err := parseDate(dates[i])
		if err != nil || math.IsNaN(opens[i]) || math.IsNaN(closes[i]) {
			continue
		}
		b := model.Bar{Date: date, Open: opens[i], Close: closes[i], High: opens[i], Low: opens[i]}
		if highs != nil && !math.IsNaN(highs[i]) {
			b.High = highs[i]
		}
		if lows != nil && !math.IsNaN(lows[i]) {
			b.Low = lows[i]
		}
		if vols != nil && !math.IsNaN(vols[i]) {
			b.Volume = int64(vols[i])
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func optional(df dataframe.DataFrame, names map[string]bool, col string) []float64 {
	if !names[col] {
		return nil
	}
	return df.Col(col).Float()
}

// parseDate accepts YYYY-MM-DD, optionally followed by a time component.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(model.DateLayout) {
		s = s[:len(model.DateLayout)]
	}
	return time.Parse(model.DateLayout, s)
}
