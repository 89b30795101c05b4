// Package marketdata loads daily bars from providers, files and the local warehouse.
package marketdata

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/dorjee9/algotrade-simple/internal/model"
)

// ErrNoData is returned when a source has no bars for the requested range.
var ErrNoData = errors.New("marketdata: no bars in range")

// Source returns daily bars for symbol with from <= date < to, in ascending date order.
type Source interface {
	Bars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error)

func (f SourceFunc) Bars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	return f(ctx, symbol, from, to)
}

// Normalize returns bars sorted by session date, one per date (the last one
// wins), restricted to from <= date < to. A zero from or to leaves that side open.
// Dates are truncated to UTC midnight. The input slice is not modified.
func Normalize(bars []model.Bar, from, to time.Time) []model.Bar {
	out := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		b.Date = model.SessionDate(b.Date)
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !b.Date.Before(to) {
			continue
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	// Collapse duplicates, keeping the later entry.
	n := 0
	for i := range out {
		if n > 0 && out[n-1].Date.Equal(out[i].Date) {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Observer receives one callback per Bars call of an instrumented source.
type Observer func(source string, bars int, took time.Duration, err error)

type instrumented struct {
	name    string
	next    Source
	observe Observer
}

// Instrument wraps src so every call is reported to observe under name.
func Instrument(name string, src Source, observe Observer) Source {
	if observe == nil {
		return src
	}
	return &instrumented{name: name, next: src, observe: observe}
}

func (s *instrumented) Bars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	start := time.Now()
	bars, err := s.next.Bars(ctx, symbol, from, to)
	s.observe(s.name, len(bars), time.Since(start), err)
	return bars, err
}
