package indicator

import "strconv"

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer and a running sum, so each Update is
// amortized O(1). The sum is re-derived from the buffer once per lap, and a
// window holding a single repeated price averages to exactly that price.
type SMA struct {
	period  int
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
	last    float64 // most recent price
	run     int     // trailing count of prices equal to last
}

// NewSMA creates a new SMA indicator with the given period.
// Periods below 1 are clamped to 1.
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return "SMA_" + strconv.Itoa(s.period) }

// Period returns the window length.
func (s *SMA) Period() int { return s.period }

func (s *SMA) Update(price float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = price
	s.sum += price
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.idx == 0 {
		s.sum = 0
		for _, v := range s.buf {
			s.sum += v
		}
	}

	if s.count > 1 && price == s.last {
		s.run++
	} else {
		s.run = 1
	}
	s.last = price

	switch {
	case s.count < s.period:
	case s.run >= s.period:
		s.current = price
	default:
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// Peek computes what Value() would be with an additional price without mutating state.
func (s *SMA) Peek(price float64) float64 {
	if s.count < s.period {
		// Not fully ready: partial average including this price
		return (s.sum + price) / float64(s.count+1)
	}
	// Preview: replace the oldest value (at idx) with new price
	return (s.sum - s.buf[s.idx] + price) / float64(s.period)
}

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	s.sum = 0
	s.current = 0
	s.last = 0
	s.run = 0
	for i := range s.buf {
		s.buf[i] = 0
	}
}
