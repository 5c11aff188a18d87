package smoothing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverageEmpty(t *testing.T) {
	t.Parallel()

	m := NewMovingAverage(DefaultWindow)
	_, ok := m.Mean()
	assert.False(t, ok, "mean of an empty window is undefined")
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 5, m.Window())
}

func TestMovingAverageWindowFloor(t *testing.T) {
	t.Parallel()

	for _, w := range []int{-3, 0, 1} {
		m := NewMovingAverage(w)
		assert.Equal(t, 1, m.Window())
		m.Push(10)
		m.Push(20)
		mean, ok := m.Mean()
		require.True(t, ok)
		assert.Equal(t, 20.0, mean)
	}
}

func TestMovingAverageEviction(t *testing.T) {
	t.Parallel()

	m := NewMovingAverage(5)
	steps := []struct {
		push float64
		mean float64
	}{
		{170, 170},
		{170, 170},
		{170, 170},
		{100, 152.5},
		{100, 142},
		{170, 142}, // first 170 evicted
		{170, 142},
		{100, 128},
	}
	for i, s := range steps {
		m.Push(s.push)
		got, ok := m.Mean()
		require.True(t, ok)
		assert.InDelta(t, s.mean, got, 1e-9, "step %d", i)
		assert.LessOrEqual(t, m.Len(), 5)
	}
	assert.Equal(t, []float64{100, 100, 170, 170, 100}, m.Values())
}

func TestMovingAverageBoundProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for _, window := range []int{1, 2, 5, 9} {
		m := NewMovingAverage(window)
		var pushed []float64
		for i := 0; i < 200; i++ {
			v := rng.Float64() * 180
			m.Push(v)
			pushed = append(pushed, v)

			require.LessOrEqual(t, m.Len(), window)
			start := len(pushed) - window
			if start < 0 {
				start = 0
			}
			tail := pushed[start:]
			require.Equal(t, tail, m.Values())

			var sum float64
			for _, x := range tail {
				sum += x
			}
			got, _ := m.Mean()
			require.InDelta(t, sum/float64(len(tail)), got, 1e-9)
		}
	}
}

func TestMovingAverageNaNPollution(t *testing.T) {
	t.Parallel()

	m := NewMovingAverage(3)
	m.Push(100)
	m.Push(math.NaN())
	got, _ := m.Mean()
	assert.True(t, math.IsNaN(got))

	m.Push(110)
	m.Push(120) // NaN still buffered
	got, _ = m.Mean()
	assert.True(t, math.IsNaN(got))

	m.Push(130) // NaN evicted
	got, _ = m.Mean()
	assert.InDelta(t, 120, got, 1e-9)
}

func TestValuesIsACopy(t *testing.T) {
	t.Parallel()

	m := NewMovingAverage(2)
	m.Push(1)
	v := m.Values()
	v[0] = 99
	assert.Equal(t, []float64{1}, m.Values())
}
