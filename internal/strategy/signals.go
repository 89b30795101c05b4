// Package strategy turns a daily close series into a lagged long/flat position signal.
//
// A Strategy consumes closes in chronological order and returns the full signal
// series. The signal for day i is derived only from data up to day i-1.
package strategy

// Strategy is the interface for signal generators.
type Strategy interface {
	// Name returns the strategy name (e.g., "SMA_Crossover_20_50").
	Name() string

	// Generate derives the signal series for closes.
	Generate(closes []float64) Signals
}

// Signals holds every stage of signal derivation as parallel slices,
// one entry per input close.
type Signals struct {
	Fast   []float64 // fast average; 0 before warmup
	Slow   []float64 // slow average; 0 before warmup
	Ready  []bool    // true once both averages are defined
	Raw    []int     // 1 if fast > slow on that day
	Signal []int     // Raw lagged by one day; position to hold when trading that day
}

// Len returns the number of days covered.
func (s Signals) Len() int { return len(s.Signal) }

// Crossovers returns the indexes where Signal flips from 0 to 1.
func (s Signals) Crossovers() []int {
	var out []int
	for i := 1; i < len(s.Signal); i++ {
		if s.Signal[i-1] == 0 && s.Signal[i] == 1 {
			out = append(out, i)
		}
	}
	return out
}

// Lag shifts raw by one day. The first day is always 0.
func Lag(raw []int) []int {
	out := make([]int, len(raw))
	for i := 1; i < len(raw); i++ {
		out[i] = raw[i-1]
	}
	return out
}
