// Package smoothing provides the bounded moving-average filter applied to
// per-frame joint angles.
package smoothing

import (
	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the number of recent samples averaged.
const DefaultWindow = 5

// MovingAverage keeps the most recent Window samples in arrival order.
// The oldest sample is evicted once the window is full. It is not safe
// for concurrent use; the rep counter drives it from a single goroutine.
type MovingAverage struct {
	window int
	values []float64
}

// NewMovingAverage returns an empty filter. A window below 1 is treated
// as 1 (no smoothing).
func NewMovingAverage(window int) *MovingAverage {
	if window < 1 {
		window = 1
	}
	return &MovingAverage{window: window, values: make([]float64, 0, window)}
}

// Push appends v, evicting the oldest sample when the window is full.
func (m *MovingAverage) Push(v float64) {
	if len(m.values) == m.window {
		copy(m.values, m.values[1:])
		m.values = m.values[:m.window-1]
	}
	m.values = append(m.values, v)
}

// Mean returns the arithmetic mean of the buffered samples. ok is false
// when nothing has been pushed yet; callers must not use the value then.
// A NaN sample in the window makes the mean NaN until it is evicted.
func (m *MovingAverage) Mean() (mean float64, ok bool) {
	if len(m.values) == 0 {
		return 0, false
	}
	return stat.Mean(m.values, nil), true
}

// Len returns the number of buffered samples, never more than Window.
func (m *MovingAverage) Len() int {
	return len(m.values)
}

// Window returns the filter capacity.
func (m *MovingAverage) Window() int {
	return m.window
}

// Values returns a copy of the buffered samples, oldest first.
func (m *MovingAverage) Values() []float64 {
	out := make([]float64, len(m.values))
	copy(out, m.values)
	return out
}
