package report

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/dorjee9/algotrade-simple/internal/model"
)

const monoFont = `font-family="ui-monospace, Menlo, Monaco, Consolas, monospace"`

// SVGChartOptions sizes the equity chart.
type SVGChartOptions struct {
	Width  int
	Height int
	// Baseline draws a dashed reference line, usually the initial cash. 0 disables it.
	Baseline float64
}

func (o SVGChartOptions) withDefaults() SVGChartOptions {
	if o.Width <= 0 {
		o.Width = 980
	}
	if o.Height <= 0 {
		o.Height = 520
	}
	return o
}

// RenderEquitySVG draws the daily portfolio value as a line chart with BUY and
// SELL markers. At least two days are required.
func RenderEquitySVG(symbol string, days []model.DayResult, opt SVGChartOptions) ([]byte, error) {
	opt = opt.withDefaults()
	if len(days) < 2 {
		return nil, fmt.Errorf("not enough days: %d", len(days))
	}

	minV := math.Inf(1)
	maxV := math.Inf(-1)
	for i := range days {
		v := days[i].PortfolioValue
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if opt.Baseline > 0 {
		minV = math.Min(minV, opt.Baseline)
		maxV = math.Max(maxV, opt.Baseline)
	}
	if math.IsInf(minV, 0) || math.IsInf(maxV, 0) {
		return nil, fmt.Errorf("invalid value range")
	}
	pad := (maxV - minV) * 0.05
	if pad <= 0 {
		pad = math.Max(math.Abs(minV)*0.02, 1)
	}
	minV -= pad
	maxV += pad

	// Layout
	w := float64(opt.Width)
	h := float64(opt.Height)
	mLeft := 80.0
	mRight := 20.0
	mTop := 24.0
	mBottom := 40.0
	plotW := w - mLeft - mRight
	plotH := h - mTop - mBottom
	if plotW <= 10 || plotH <= 10 {
		return nil, fmt.Errorf("invalid chart size")
	}

	valueToY := func(v float64) float64 {
		r := (v - minV) / (maxV - minV)
		r = math.Max(0, math.Min(1, r))
		return mTop + (1.0-r)*plotH
	}
	step := plotW / float64(len(days)-1)
	xAt := func(i int) float64 {
		return mLeft + float64(i)*step
	}

	bg := "#0b1220"
	grid := "rgba(255,255,255,0.08)"
	line := "#38bdf8"
	buy := "#22c55e"
	sell := "#ef4444"
	txt := "rgba(255,255,255,0.85)"

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + strconv.Itoa(opt.Width) + `" height="` + strconv.Itoa(opt.Height) + `" viewBox="0 0 ` + strconv.Itoa(opt.Width) + ` ` + strconv.Itoa(opt.Height) + `">` + "\n")
	buf.WriteString(`<rect x="0" y="0" width="100%" height="100%" fill="` + bg + `"/>` + "\n")

	// Header
	firstD := days[0].Date.Format(model.DateLayout)
	lastD := days[len(days)-1].Date.Format(model.DateLayout)
	title := strings.TrimSpace(symbol)
	if title == "" {
		title = "UNKNOWN"
	}
	buf.WriteString(`<text x="` + fmtFloat(mLeft) + `" y="16" fill="` + txt + `" font-size="14" ` + monoFont + `>` +
		html.EscapeString(title) + ` portfolio value  ` + firstD + ` ~ ` + lastD + `</text>` + "\n")

	// Grid
	for k := 0; k <= 5; k++ {
		y := mTop + (float64(k)/5.0)*plotH
		buf.WriteString(`<line x1="` + fmtFloat(mLeft) + `" y1="` + fmtFloat(y) + `" x2="` + fmtFloat(mLeft+plotW) + `" y2="` + fmtFloat(y) + `" stroke="` + grid + `" stroke-width="1"/>` + "\n")
		v := maxV - (float64(k)/5.0)*(maxV-minV)
		buf.WriteString(`<text x="6" y="` + fmtFloat(y+4) + `" fill="` + txt + `" font-size="12" ` + monoFont + `>` +
			html.EscapeString(fmtValue(v)) + `</text>` + "\n")
	}

	if opt.Baseline > 0 {
		y := valueToY(opt.Baseline)
		buf.WriteString(`<line x1="` + fmtFloat(mLeft) + `" y1="` + fmtFloat(y) + `" x2="` + fmtFloat(mLeft+plotW) + `" y2="` + fmtFloat(y) + `" stroke="rgba(255,255,255,0.45)" stroke-width="1" stroke-dasharray="6 6"/>` + "\n")
	}

	// Equity line
	var pts strings.Builder
	for i := range days {
		v := days[i].PortfolioValue
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if pts.Len() > 0 {
			pts.WriteByte(' ')
		}
		pts.WriteString(fmtFloat(xAt(i)) + "," + fmtFloat(valueToY(v)))
	}
	buf.WriteString(`<polyline fill="none" stroke="` + line + `" stroke-width="1.5" points="` + pts.String() + `"/>` + "\n")

	// Trade markers
	for i := range days {
		var col string
		switch days[i].Action {
		case model.ActionBuy:
			col = buy
		case model.ActionSell:
			col = sell
		default:
			continue
		}
		buf.WriteString(`<circle cx="` + fmtFloat(xAt(i)) + `" cy="` + fmtFloat(valueToY(days[i].PortfolioValue)) + `" r="3.5" fill="` + col + `"><title>` +
			string(days[i].Action) + ` ` + days[i].Date.Format(model.DateLayout) + `</title></circle>` + "\n")
	}

	// Footer dates
	buf.WriteString(`<text x="` + fmtFloat(mLeft) + `" y="` + fmtFloat(mTop+plotH+mBottom-12) + `" fill="` + txt + `" font-size="12" ` + monoFont + `>` + firstD + `</text>` + "\n")
	buf.WriteString(`<text x="` + fmtFloat(mLeft+plotW-70) + `" y="` + fmtFloat(mTop+plotH+mBottom-12) + `" fill="` + txt + `" font-size="12" ` + monoFont + `>` + lastD + `</text>` + "\n")

	buf.WriteString(`</svg>` + "\n")
	return buf.Bytes(), nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}

func fmtValue(v float64) string {
	if math.Abs(v) >= 1000 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
