package model

import "time"

// DateLayout is the calendar-day format used for bar dates on the wire and in storage.
const DateLayout = "2006-01-02"

// Bar is one daily trading session for a single symbol.
// Prices are float64 in the instrument's quote currency.
type Bar struct {
	Date   time.Time `json:"date"` // session date (UTC midnight)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// SessionDate truncates t to midnight UTC of its calendar day.
func SessionDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Closes extracts the close prices of bars, in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Close
	}
	return out
}
