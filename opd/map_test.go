package opd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/GLAO/errors"
)

func TestNewShapeChecks(t *testing.T) {
	_, err := New(2, 2, []float64{1, 2, 3}, make([]bool, 4))
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))

	_, err = New(2, 2, make([]float64, 4), make([]bool, 3))
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))

	m, err := New(2, 2, make([]float64, 4), make([]bool, 4))
	require.NoError(t, err)
	assert.Equal(t, 0, m.ValidCount())
}

func TestFromNaN(t *testing.T) {
	nan := math.NaN()
	m, err := FromNaN(2, 2, []float64{1, nan, 3, nan})
	require.NoError(t, err)
	assert.Equal(t, 2, m.ValidCount())
	assert.Equal(t, []float64{1, 3}, m.Valid())
}

func TestStatistics(t *testing.T) {
	m, err := New(1, 4,
		[]float64{3, -3, 99, 3},
		[]bool{true, true, false, true})
	require.NoError(t, err)

	mean, err := m.Mean()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mean, 1e-12)

	rms, err := m.RMS()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, rms, 1e-12)

	pv, err := m.PV()
	require.NoError(t, err)
	assert.InDelta(t, 6.0, pv, 1e-12)

	v, err := m.Var()
	require.NoError(t, err)
	std, err := m.Std()
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(v), std, 1e-12)
}

func TestEmptyFrame(t *testing.T) {
	m, err := New(2, 2, make([]float64, 4), make([]bool, 4))
	require.NoError(t, err)

	_, err = m.Mean()
	assert.True(t, errors.Is(err, errors.ErrEmptyFrame))
	_, err = m.RMS()
	assert.True(t, errors.Is(err, errors.ErrEmptyFrame))
	_, err = m.PV()
	assert.True(t, errors.Is(err, errors.ErrEmptyFrame))
	assert.True(t, errors.Is(m.ZeroMean(), errors.ErrEmptyFrame))
}

func TestZeroMean(t *testing.T) {
	m, err := New(1, 3, []float64{1, 2, 3}, []bool{true, true, true})
	require.NoError(t, err)
	require.NoError(t, m.ZeroMean())

	mean, err := m.Mean()
	require.NoError(t, err)
	assert.InDelta(t, 0.0, mean, 1e-12)
	assert.InDelta(t, -1.0, m.Data[0], 1e-12)
}

func TestMaskWith(t *testing.T) {
	m, err := New(1, 4, []float64{1, 2, 3, 4}, []bool{true, true, true, false})
	require.NoError(t, err)

	require.NoError(t, m.MaskWith([]bool{true, false, true, true}))
	assert.Equal(t, []bool{true, false, true, false}, m.Mask)

	err = m.MaskWith([]bool{true})
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))
}

func TestSubAtValid(t *testing.T) {
	m, err := New(1, 4, []float64{1, 2, 3, 4}, []bool{true, false, true, true})
	require.NoError(t, err)

	require.NoError(t, m.SubAtValid([]float64{1, 3, 4}))
	assert.InDelta(t, 0.0, m.Data[0], 1e-12)
	assert.InDelta(t, 2.0, m.Data[1], 1e-12) // invalid pixel untouched
	assert.InDelta(t, 0.0, m.Data[2], 1e-12)
	assert.InDelta(t, 0.0, m.Data[3], 1e-12)

	err = m.SubAtValid([]float64{1})
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))
}

func TestCloneIsDeep(t *testing.T) {
	m, err := New(1, 2, []float64{1, 2}, []bool{true, true})
	require.NoError(t, err)
	c := m.Clone()
	c.Data[0] = 99
	c.Mask[1] = false
	assert.Equal(t, 1.0, m.Data[0])
	assert.True(t, m.Mask[1])
}
