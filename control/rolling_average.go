package control

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RollingAverage is a fixed-window mean filter.
//
// Samples live in a ring buffer with a running sum so AddInput and Output
// are O(1).
type RollingAverage struct {
	buf  []float64
	head int // index of the oldest sample
	n    int
	sum  float64
}

// NewRollingAverage creates a filter holding at most size samples. A size
// below one is treated as one.
func NewRollingAverage(size int) *RollingAverage {
	if size < 1 {
		size = 1
	}
	return &RollingAverage{buf: make([]float64, size)}
}

// AddInput appends a sample, evicting the oldest once the window is full.
// A non-finite running sum is rebuilt from the held samples, so a NaN or Inf
// stops affecting Output once it leaves the window.
func (r *RollingAverage) AddInput(value float64) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = value
		r.n++
		r.sum += value
	} else {
		r.sum += value - r.buf[r.head]
		r.buf[r.head] = value
		r.head = (r.head + 1) % len(r.buf)
	}
	if math.IsNaN(r.sum) || math.IsInf(r.sum, 0) {
		r.sum = 0
		for i := 0; i < r.n; i++ {
			r.sum += r.buf[(r.head+i)%len(r.buf)]
		}
	}
}

// Output returns the mean of the held samples, or 0 when empty.
func (r *RollingAverage) Output() float64 {
	if r.n == 0 {
		return 0
	}
	return r.sum / float64(r.n)
}

// Len returns the number of held samples.
func (r *RollingAverage) Len() int { return r.n }

// Cap returns the window size.
func (r *RollingAverage) Cap() int { return len(r.buf) }

// Sum returns the running sum of the held samples.
func (r *RollingAverage) Sum() float64 { return r.sum }

// Samples returns the held samples, oldest first.
func (r *RollingAverage) Samples() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// StdDev returns the sample standard deviation of the window, 0 with fewer
// than two samples.
func (r *RollingAverage) StdDev() float64 {
	if r.n < 2 {
		return 0
	}
	return stat.StdDev(r.Samples(), nil)
}

// Reset drops all samples.
func (r *RollingAverage) Reset() {
	r.head, r.n, r.sum = 0, 0, 0
}
