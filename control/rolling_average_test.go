package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingAverageEmpty(t *testing.T) {
	r := NewRollingAverage(5)
	assert.Equal(t, 0.0, r.Output())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0.0, r.StdDev())
}

func TestRollingAverageWindow(t *testing.T) {
	r := NewRollingAverage(5)
	for _, v := range []float64{1, 2, 3, 4, 5, 6} {
		r.AddInput(v)
	}

	require.Equal(t, 5, r.Len())
	assert.Equal(t, []float64{2, 3, 4, 5, 6}, r.Samples())
	assert.InDelta(t, 4.0, r.Output(), 1e-12)
}

func TestRollingAveragePartialWindow(t *testing.T) {
	r := NewRollingAverage(5)
	r.AddInput(2)
	r.AddInput(4)
	assert.InDelta(t, 3.0, r.Output(), 1e-12)
}

func TestRollingAverageSumInvariant(t *testing.T) {
	r := NewRollingAverage(3)
	for i := 0; i < 50; i++ {
		r.AddInput(float64(i%7) - 2.5)

		var sum float64
		for _, v := range r.Samples() {
			sum += v
		}
		assert.LessOrEqual(t, r.Len(), r.Cap())
		assert.InDelta(t, sum, r.Sum(), 1e-9)
	}
}

func TestRollingAverageRecoversFromNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		r := NewRollingAverage(5)
		r.AddInput(1)
		r.AddInput(bad)
		for i := 0; i < 5; i++ {
			r.AddInput(2)
		}

		want := 0.0
		for _, v := range r.Samples() {
			want += v
		}
		assert.Equal(t, want, r.Sum())
		assert.InDelta(t, 2, r.Output(), 1e-12)
	}
}

func TestRollingAverageMinimumSize(t *testing.T) {
	r := NewRollingAverage(0)
	r.AddInput(3)
	r.AddInput(9)
	assert.Equal(t, 1, r.Cap())
	assert.Equal(t, 9.0, r.Output())
}

func TestRollingAverageStdDev(t *testing.T) {
	r := NewRollingAverage(4)
	for _, v := range []float64{2, 4, 4, 6} {
		r.AddInput(v)
	}
	// sample variance of {2,4,4,6} is 8/3
	assert.InDelta(t, 1.632993, r.StdDev(), 1e-6)
}

func TestRollingAverageReset(t *testing.T) {
	r := NewRollingAverage(2)
	r.AddInput(10)
	r.AddInput(20)
	r.Reset()
	assert.Equal(t, 0.0, r.Output())

	r.AddInput(1)
	assert.Equal(t, 1.0, r.Output())
}
