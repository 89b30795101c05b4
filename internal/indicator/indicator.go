// Package indicator provides technical indicator calculations over daily closes.
//
// Indicators are fed one price at a time in chronological order and expose the
// current value once enough data has been accumulated.
package indicator

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_20").
	Name() string

	// Update feeds the next close price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Peek computes what Value() would be if price were added next,
	// WITHOUT mutating internal state.
	Peek(price float64) float64
}

// Point is one indicator reading aligned with an input price.
// Value is meaningless when Ready is false.
type Point struct {
	Value float64 `json:"value"`
	Ready bool    `json:"ready"`
}

// Series runs ind over prices and returns one Point per price.
func Series(ind Indicator, prices []float64) []Point {
	out := make([]Point, len(prices))
	for i, p := range prices {
		ind.Update(p)
		out[i] = Point{Value: ind.Value(), Ready: ind.Ready()}
	}
	return out
}
