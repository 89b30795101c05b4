package strategy

import (
	"fmt"

	"github.com/dorjee9/algotrade-simple/internal/indicator"
)

// SMACrossover is a long/flat trend filter.
//
// Raw signal is 1 while the fast SMA is strictly above the slow SMA and 0
// otherwise, including days where either average is still warming up.
// Equal averages count as 0.
type SMACrossover struct {
	name       string
	fastPeriod int
	slowPeriod int
}

// NewSMACrossover creates a new SMA crossover strategy.
// fastPeriod < slowPeriod (e.g., 20 and 50). Parameters are validated by the caller.
func NewSMACrossover(fastPeriod, slowPeriod int) *SMACrossover {
	return &SMACrossover{
		name:       fmt.Sprintf("SMA_Crossover_%d_%d", fastPeriod, slowPeriod),
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

func (s *SMACrossover) Name() string {
	return s.name
}

// Generate computes both averages, the raw comparison and the lagged signal.
// A series shorter than the slow period yields all-zero signals.
func (s *SMACrossover) Generate(closes []float64) Signals {
	n := len(closes)
	fast := indicator.Series(indicator.NewSMA(s.fastPeriod), closes)
	slow := indicator.Series(indicator.NewSMA(s.slowPeriod), closes)

	out := Signals{
		Fast:  make([]float64, n),
		Slow:  make([]float64, n),
		Ready: make([]bool, n),
		Raw:   make([]int, n),
	}
	for i := 0; i < n; i++ {
		if fast[i].Ready {
			out.Fast[i] = fast[i].Value
		}
		if slow[i].Ready {
			out.Slow[i] = slow[i].Value
		}
		out.Ready[i] = fast[i].Ready && slow[i].Ready
		if out.Ready[i] && out.Fast[i] > out.Slow[i] {
			out.Raw[i] = 1
		}
	}
	out.Signal = Lag(out.Raw)
	return out
}
