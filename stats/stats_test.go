package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/GLAO/errors"
	"github.com/teranos/GLAO/opd"
)

func TestReduce(t *testing.T) {
	m, err := opd.New(1, 4, []float64{3, -3, 99, 3}, []bool{true, true, false, true})
	require.NoError(t, err)

	metric, err := Reduce(m)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, metric.RMS, 1e-12)
	assert.InDelta(t, 1.0, metric.Mean, 1e-12)
	assert.InDelta(t, 6.0, metric.PV, 1e-12)
}

func TestReduceEmptyFrame(t *testing.T) {
	m, err := opd.New(2, 2, make([]float64, 4), make([]bool, 4))
	require.NoError(t, err)
	_, err = Reduce(m)
	assert.True(t, errors.Is(err, errors.ErrEmptyFrame))
}

func TestAccumulatorBasics(t *testing.T) {
	acc := NewAccumulator(false)
	for _, x := range []float64{1, 2, 3, 4} {
		acc.Add(x)
	}
	assert.Equal(t, int64(4), acc.Count())
	assert.InDelta(t, 2.5, acc.Mean(), 1e-12)
	// RMS = sqrt((1+4+9+16)/4)
	assert.InDelta(t, math.Sqrt(7.5), acc.RMS(), 1e-12)

	s, err := acc.Series()
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.Count)
	assert.InDelta(t, 1.0, s.Min, 1e-12)
	assert.InDelta(t, 4.0, s.Max, 1e-12)
	assert.Nil(t, s.P50)
}

func TestAccumulatorEmpty(t *testing.T) {
	acc := NewAccumulator(false)
	_, err := acc.Series()
	assert.True(t, errors.Is(err, errors.ErrEmptyFrame))
}

func TestAccumulatorPercentiles(t *testing.T) {
	acc := NewAccumulator(true)
	for i := 1; i <= 100; i++ {
		acc.Add(float64(i))
	}
	s, err := acc.Series()
	require.NoError(t, err)
	require.NotNil(t, s.P50)
	require.NotNil(t, s.P95)
	assert.InDelta(t, 50.0, *s.P50, 1.0)
	assert.InDelta(t, 95.0, *s.P95, 1.0)
}

// Aggregation must be invariant to chunking: any partition of the series
// merged in any order matches the single-pass result within 1e-9
// relative.
func TestMergeChunkInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 10000)
	for i := range values {
		values[i] = rng.NormFloat64()*1e-7 + 5e-7 // nm-scale wavefront errors
	}

	single := NewAccumulator(true)
	for _, x := range values {
		single.Add(x)
	}
	want, err := single.Series()
	require.NoError(t, err)

	for _, chunks := range []int{2, 3, 7, 64} {
		partials := make([]*Accumulator, chunks)
		for i := range partials {
			partials[i] = NewAccumulator(true)
		}
		for i, x := range values {
			partials[i%chunks].Add(x)
		}
		// merge in reverse order to exercise commutativity
		merged := NewAccumulator(true)
		for i := chunks - 1; i >= 0; i-- {
			merged.Merge(partials[i])
		}
		got, err := merged.Series()
		require.NoError(t, err)

		assert.Equal(t, want.Count, got.Count, "chunks=%d", chunks)
		assert.InEpsilon(t, want.Mean, got.Mean, 1e-9, "chunks=%d", chunks)
		assert.InEpsilon(t, want.RMS, got.RMS, 1e-9, "chunks=%d", chunks)
		assert.Equal(t, want.Min, got.Min, "chunks=%d", chunks)
		assert.Equal(t, want.Max, got.Max, "chunks=%d", chunks)
		assert.InEpsilon(t, *want.P50, *got.P50, 1e-9, "chunks=%d", chunks)
	}
}

func TestMergeIntoEmpty(t *testing.T) {
	a := NewAccumulator(true)
	b := NewAccumulator(true)
	b.Add(1)
	b.Add(3)
	a.Merge(b)
	assert.Equal(t, int64(2), a.Count())
	assert.InDelta(t, 2.0, a.Mean(), 1e-12)

	// the merged copy must not alias b's retained values
	a.Add(5)
	assert.Equal(t, int64(2), b.Count())
	assert.Len(t, b.values, 2)
}

func TestAggregate(t *testing.T) {
	metrics := []Metric{{RMS: 3}, {RMS: 4}}
	s, err := Aggregate(metrics, false)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(12.5), s.RMS, 1e-12)
}
