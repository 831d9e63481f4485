package stats

import (
	"math"

	"github.com/teranos/GLAO/errors"
)

// SpectrumAccumulator accumulates per-mode squared modal coefficients and
// total frame power across a series. Like Accumulator it merges
// associatively so modal spectra can be reduced in parallel.
type SpectrumAccumulator struct {
	n      int64
	sumSq  []float64 // per-mode Σ c²
	sumVar float64   // Σ frame variance
}

// NewSpectrumAccumulator returns an empty accumulator for nModes modes.
func NewSpectrumAccumulator(nModes int) *SpectrumAccumulator {
	return &SpectrumAccumulator{sumSq: make([]float64, nModes)}
}

// Add folds one frame's modal coefficients and total variance in.
func (s *SpectrumAccumulator) Add(coefs []float64, frameVar float64) error {
	if len(coefs) != len(s.sumSq) {
		return errors.Wrapf(errors.ErrSchemaMismatch,
			"%d coefficients for %d-mode spectrum", len(coefs), len(s.sumSq))
	}
	for k, c := range coefs {
		s.sumSq[k] += c * c
	}
	s.sumVar += frameVar
	s.n++
	return nil
}

// Merge folds another spectrum accumulator into this one.
func (s *SpectrumAccumulator) Merge(o *SpectrumAccumulator) error {
	if len(o.sumSq) != len(s.sumSq) {
		return errors.Wrapf(errors.ErrSchemaMismatch,
			"merging %d-mode spectrum into %d-mode spectrum", len(o.sumSq), len(s.sumSq))
	}
	for k, v := range o.sumSq {
		s.sumSq[k] += v
	}
	s.sumVar += o.sumVar
	s.n += o.n
	return nil
}

// Count returns the number of accumulated frames.
func (s *SpectrumAccumulator) Count() int64 { return s.n }

// MeanSquares returns the series-mean squared coefficient per mode.
func (s *SpectrumAccumulator) MeanSquares() []float64 {
	out := make([]float64, len(s.sumSq))
	if s.n == 0 {
		return out
	}
	for k, v := range s.sumSq {
		out[k] = v / float64(s.n)
	}
	return out
}

// MeanVar returns the series-mean total frame variance.
func (s *SpectrumAccumulator) MeanVar() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sumVar / float64(s.n)
}

// ResidualRSS returns, for each k, the RMS wavefront error left after
// correcting the first k+1 modes: sqrt(|meanVar − Σ_{i≤k} mean c²_i|).
// The absolute value guards against small negative values from
// floating-point cancellation when the basis captures nearly all power.
func (s *SpectrumAccumulator) ResidualRSS() []float64 {
	meanVar := s.MeanVar()
	out := make([]float64, len(s.sumSq))
	cum := 0.0
	for k, ms := range s.MeanSquares() {
		cum += ms
		out[k] = math.Sqrt(math.Abs(meanVar - cum))
	}
	return out
}
