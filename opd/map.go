// Package opd provides optical-path-difference maps and the array source
// adapter that streams them out of simulation archives.
//
// A Map is a 2D grid of wavefront samples with a validity mask. Pixels
// outside the exit pupil (stored as NaN by the CFD simulation) are masked
// out and excluded from every statistic and fit; they are never
// zero-filled.
package opd

import (
	"math"

	"github.com/teranos/GLAO/errors"
)

// Map is a spatial OPD map: row-major samples plus a validity mask of the
// same shape. Mask[i] == true marks a usable pixel.
type Map struct {
	Rows int
	Cols int
	Data []float64
	Mask []bool
}

// New builds a Map from data and mask, validating that both match the
// grid shape.
func New(rows, cols int, data []float64, mask []bool) (*Map, error) {
	n := rows * cols
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch, "non-positive grid shape %dx%d", rows, cols)
	}
	if len(data) != n {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch, "data length %d, want %dx%d=%d", len(data), rows, cols, n)
	}
	if len(mask) != n {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch, "mask length %d, want %d", len(mask), n)
	}
	return &Map{Rows: rows, Cols: cols, Data: data, Mask: mask}, nil
}

// FromNaN builds a Map from raw simulation data where invalid pixels are
// stored as NaN. The NaNs are folded into the mask.
func FromNaN(rows, cols int, data []float64) (*Map, error) {
	mask := make([]bool, len(data))
	for i, v := range data {
		mask[i] = !math.IsNaN(v)
	}
	return New(rows, cols, data, mask)
}

// Clone returns a deep copy of the map.
func (m *Map) Clone() *Map {
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	mask := make([]bool, len(m.Mask))
	copy(mask, m.Mask)
	return &Map{Rows: m.Rows, Cols: m.Cols, Data: data, Mask: mask}
}

// ValidCount returns the number of usable pixels.
func (m *Map) ValidCount() int {
	n := 0
	for _, ok := range m.Mask {
		if ok {
			n++
		}
	}
	return n
}

// Valid returns the compact vector of valid-pixel values, in row-major
// order. The result is freshly allocated.
func (m *Map) Valid() []float64 {
	out := make([]float64, 0, m.ValidCount())
	for i, ok := range m.Mask {
		if ok {
			out = append(out, m.Data[i])
		}
	}
	return out
}

// Mean returns the mean over valid pixels. Fails with ErrEmptyFrame when
// the frame has zero valid pixels.
func (m *Map) Mean() (float64, error) {
	sum, n := 0.0, 0
	for i, ok := range m.Mask {
		if ok {
			sum += m.Data[i]
			n++
		}
	}
	if n == 0 {
		return 0, errors.WithStack(errors.ErrEmptyFrame)
	}
	return sum / float64(n), nil
}

// Var returns the variance over valid pixels.
func (m *Map) Var() (float64, error) {
	mean, err := m.Mean()
	if err != nil {
		return 0, err
	}
	sum, n := 0.0, 0
	for i, ok := range m.Mask {
		if ok {
			d := m.Data[i] - mean
			sum += d * d
			n++
		}
	}
	return sum / float64(n), nil
}

// Std returns the standard deviation over valid pixels.
func (m *Map) Std() (float64, error) {
	v, err := m.Var()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// RMS returns sqrt(mean of squared valid samples).
func (m *Map) RMS() (float64, error) {
	sum, n := 0.0, 0
	for i, ok := range m.Mask {
		if ok {
			sum += m.Data[i] * m.Data[i]
			n++
		}
	}
	if n == 0 {
		return 0, errors.WithStack(errors.ErrEmptyFrame)
	}
	return math.Sqrt(sum / float64(n)), nil
}

// PV returns the peak-to-valley range over valid pixels.
func (m *Map) PV() (float64, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for i, ok := range m.Mask {
		if ok {
			v := m.Data[i]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
			n++
		}
	}
	if n == 0 {
		return 0, errors.WithStack(errors.ErrEmptyFrame)
	}
	return hi - lo, nil
}

// ZeroMean subtracts the valid-pixel mean from every valid pixel. The CFD
// OPD maps carry a piston term that is removed before modal projection.
func (m *Map) ZeroMean() error {
	mean, err := m.Mean()
	if err != nil {
		return err
	}
	for i, ok := range m.Mask {
		if ok {
			m.Data[i] -= mean
		}
	}
	return nil
}

// MaskWith intersects the map's mask with a basis footprint of the same
// shape. Pixels outside the footprint become invalid.
func (m *Map) MaskWith(footprint []bool) error {
	if len(footprint) != len(m.Mask) {
		return errors.Wrapf(errors.ErrSchemaMismatch, "footprint length %d, want %d", len(footprint), len(m.Mask))
	}
	for i := range m.Mask {
		m.Mask[i] = m.Mask[i] && footprint[i]
	}
	return nil
}

// SubAtValid subtracts the compact vector values from the map's valid
// pixels in row-major order. values must have exactly ValidCount entries.
func (m *Map) SubAtValid(values []float64) error {
	j := 0
	for i, ok := range m.Mask {
		if !ok {
			continue
		}
		if j >= len(values) {
			return errors.Wrapf(errors.ErrSchemaMismatch, "value vector too short: %d", len(values))
		}
		m.Data[i] -= values[j]
		j++
	}
	if j != len(values) {
		return errors.Wrapf(errors.ErrSchemaMismatch, "value vector length %d, want %d", len(values), j)
	}
	return nil
}
