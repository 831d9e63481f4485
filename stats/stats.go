// Package stats reduces OPD frames to scalar metrics and aggregates them
// across a time series.
//
// Aggregation runs through an explicit accumulator value combined with an
// associative, commutative merge, so chunked parallel reduction yields
// the same result as a single pass. The declared reproducibility
// tolerance across chunkings and worker counts is 1e-9 relative.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/teranos/GLAO/errors"
	"github.com/teranos/GLAO/opd"
)

// Metric holds the scalar metrics of one frame, computed over valid
// pixels only.
type Metric struct {
	RMS  float64
	Mean float64
	PV   float64
}

// Reduce computes the per-frame metrics of a map. Fails with
// ErrEmptyFrame when the frame has zero valid pixels; callers decide
// whether to skip the frame or abort the series.
func Reduce(m *opd.Map) (Metric, error) {
	rms, err := m.RMS()
	if err != nil {
		return Metric{}, err
	}
	mean, err := m.Mean()
	if err != nil {
		return Metric{}, err
	}
	pv, err := m.PV()
	if err != nil {
		return Metric{}, err
	}
	return Metric{RMS: rms, Mean: mean, PV: pv}, nil
}

// Accumulator accumulates per-frame RMS values in Welford form (count,
// running mean, running M2) so partial accumulators merge without order
// sensitivity or catastrophic cancellation over long series.
type Accumulator struct {
	n    int64
	mean float64
	m2   float64
	min  float64
	max  float64

	values []float64 // retained for percentiles when keepValues is set
	keep   bool
}

// NewAccumulator returns an empty accumulator. With keepValues the
// accumulator retains every metric so the series can report percentiles.
func NewAccumulator(keepValues bool) *Accumulator {
	return &Accumulator{min: math.Inf(1), max: math.Inf(-1), keep: keepValues}
}

// Add folds one per-frame value into the accumulator.
func (a *Accumulator) Add(x float64) {
	a.n++
	delta := x - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (x - a.mean)
	if x < a.min {
		a.min = x
	}
	if x > a.max {
		a.max = x
	}
	if a.keep {
		a.values = append(a.values, x)
	}
}

// Merge folds another accumulator into this one. The operation is
// associative and commutative (Chan et al. parallel variance update), so
// the final aggregate is independent of chunking.
func (a *Accumulator) Merge(b *Accumulator) {
	if b.n == 0 {
		return
	}
	if a.n == 0 {
		*a = *b
		// keep the retained slice independent of b
		if b.keep {
			a.values = append([]float64(nil), b.values...)
		}
		return
	}
	tot := a.n + b.n
	delta := b.mean - a.mean
	a.m2 += b.m2 + delta*delta*float64(a.n)*float64(b.n)/float64(tot)
	a.mean += delta * float64(b.n) / float64(tot)
	a.n = tot
	if b.min < a.min {
		a.min = b.min
	}
	if b.max > a.max {
		a.max = b.max
	}
	if a.keep {
		a.values = append(a.values, b.values...)
	}
}

// Count returns the number of accumulated frames.
func (a *Accumulator) Count() int64 { return a.n }

// Mean returns the arithmetic mean of the accumulated values.
func (a *Accumulator) Mean() float64 { return a.mean }

// RMS returns the second-moment combination sqrt(mean of squares) of the
// accumulated per-frame values. This is the series-level wavefront error,
// not an arithmetic mean of RMS values.
func (a *Accumulator) RMS() float64 {
	if a.n == 0 {
		return 0
	}
	return math.Sqrt(a.m2/float64(a.n) + a.mean*a.mean)
}

// Series converts the accumulator into series-level statistics.
func (a *Accumulator) Series() (Series, error) {
	if a.n == 0 {
		return Series{}, errors.Wrap(errors.ErrEmptyFrame, "no frames aggregated")
	}
	s := Series{
		Count: a.n,
		Mean:  a.mean,
		RMS:   a.RMS(),
		Min:   a.min,
		Max:   a.max,
	}
	if a.keep && len(a.values) > 0 {
		// Sorting makes the percentiles independent of merge order.
		sorted := append([]float64(nil), a.values...)
		sort.Float64s(sorted)
		p50 := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		p95 := stat.Quantile(0.95, stat.Empirical, sorted, nil)
		s.P50 = &p50
		s.P95 = &p95
	}
	return s, nil
}

// Series is the aggregate of a frame-metric sequence.
type Series struct {
	Count int64    `json:"count"`
	Mean  float64  `json:"mean"`
	RMS   float64  `json:"rms"`
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
	P50   *float64 `json:"p50,omitempty"`
	P95   *float64 `json:"p95,omitempty"`
}

// Aggregate reduces a metric sequence in one pass. Parallel callers use
// per-worker Accumulators and Merge instead.
func Aggregate(metrics []Metric, keepValues bool) (Series, error) {
	acc := NewAccumulator(keepValues)
	for _, m := range metrics {
		acc.Add(m.RMS)
	}
	return acc.Series()
}
