// Package modal provides the modal basis and the least-squares fitter
// that decomposes OPD maps onto it.
//
// A Basis is a fixed, immutable set of spatial modes sampled on the same
// grid as the OPD frames. It is built once per run and shared read-only
// across all parallel fitting workers; the design matrix for its own
// footprint is cached, and a row-masked copy is rebuilt whenever a frame
// carries a different validity mask. Fitting against a stale mask would
// silently corrupt coefficients, so the rebuild is a correctness
// requirement, not an optimization.
package modal

import (
	"archive/zip"
	"math"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/teranos/GLAO/errors"
	"github.com/teranos/GLAO/opd"
)

// DefaultCondThreshold is the condition-number limit past which a design
// matrix is rejected as degenerate.
const DefaultCondThreshold = 1e8

// Generator samples one basis mode on the full grid in row-major order.
// mode is the 0-based index within the basis.
type Generator func(mode, rows, cols int) []float64

// Option configures Build.
type Option func(*options)

type options struct {
	normalize     bool
	condThreshold float64
}

// WithNormalize requests unit-RMS normalization of each mode over the
// footprint pixels.
func WithNormalize() Option {
	return func(o *options) { o.normalize = true }
}

// WithCondThreshold overrides the condition-number threshold used for
// both basis validation and per-frame fits.
func WithCondThreshold(v float64) Option {
	return func(o *options) { o.condThreshold = v }
}

// Basis is an ordered, immutable set of modes on one grid.
type Basis struct {
	rows, cols int
	nModes     int
	footprint  []bool
	modes      [][]float64 // full-grid samples, zero outside footprint
	design     *mat.Dense  // valid-pixel × mode matrix for footprint
	condThresh float64
}

// Build samples nModes modes from the generator on a rows×cols grid,
// restricted to the footprint mask, and validates the resulting design
// matrix. Fails with ErrInvalidBasis when any two modes are numerically
// degenerate on the grid (condition number past the threshold).
func Build(rows, cols, nModes int, footprint []bool, gen Generator, opts ...Option) (*Basis, error) {
	o := options{condThreshold: DefaultCondThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	if nModes <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidBasis, "mode count %d", nModes)
	}
	if len(footprint) != rows*cols {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch, "footprint length %d, want %d", len(footprint), rows*cols)
	}

	nValid := 0
	for _, ok := range footprint {
		if ok {
			nValid++
		}
	}
	if nValid < nModes {
		return nil, errors.Wrapf(errors.ErrInvalidBasis,
			"footprint has %d valid pixels for %d modes", nValid, nModes)
	}

	modes := make([][]float64, nModes)
	for k := 0; k < nModes; k++ {
		sample := gen(k, rows, cols)
		if len(sample) != rows*cols {
			return nil, errors.Wrapf(errors.ErrInvalidBasis, "mode %d sampled %d pixels, want %d", k, len(sample), rows*cols)
		}
		for i, ok := range footprint {
			if !ok {
				sample[i] = 0
			}
		}
		if o.normalize {
			normalizeRMS(sample, footprint, nValid)
		}
		modes[k] = sample
	}

	b := &Basis{
		rows:       rows,
		cols:       cols,
		nModes:     nModes,
		footprint:  footprint,
		modes:      modes,
		condThresh: o.condThreshold,
	}
	b.design = b.designFor(footprint, nValid)

	if cond, ok := conditionNumber(b.design); !ok || cond > b.condThresh {
		return nil, errors.Wrapf(errors.ErrInvalidBasis,
			"design matrix condition number %.3g exceeds %.3g", cond, b.condThresh)
	}
	return b, nil
}

// normalizeRMS scales a mode to unit RMS over the footprint pixels.
func normalizeRMS(sample []float64, footprint []bool, nValid int) {
	ss := 0.0
	for i, ok := range footprint {
		if ok {
			ss += sample[i] * sample[i]
		}
	}
	rms := math.Sqrt(ss / float64(nValid))
	if rms == 0 {
		return
	}
	for i, ok := range footprint {
		if ok {
			sample[i] /= rms
		}
	}
}

// Rows returns the grid row count.
func (b *Basis) Rows() int { return b.rows }

// Cols returns the grid column count.
func (b *Basis) Cols() int { return b.cols }

// NModes returns the number of modes.
func (b *Basis) NModes() int { return b.nModes }

// Footprint returns the basis pupil mask. Callers must not mutate it.
func (b *Basis) Footprint() []bool { return b.footprint }

// Mode returns the full-grid sample of mode k. Callers must not mutate it.
func (b *Basis) Mode(k int) []float64 { return b.modes[k] }

// DesignMatrix returns the cached valid-pixel × mode matrix for the
// basis's own footprint.
func (b *Basis) DesignMatrix() *mat.Dense { return b.design }

// designFor assembles the design matrix for an arbitrary validity mask.
func (b *Basis) designFor(mask []bool, nValid int) *mat.Dense {
	a := mat.NewDense(nValid, b.nModes, nil)
	r := 0
	for i, ok := range mask {
		if !ok {
			continue
		}
		for k := 0; k < b.nModes; k++ {
			a.Set(r, k, b.modes[k][i])
		}
		r++
	}
	return a
}

// Reconstruct builds the full-grid map Σ coefs[k]·mode_k over the
// footprint. Pixels outside the footprint are invalid.
func (b *Basis) Reconstruct(coefs []float64) (*opd.Map, error) {
	if len(coefs) != b.nModes {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch, "%d coefficients for %d modes", len(coefs), b.nModes)
	}
	data := make([]float64, b.rows*b.cols)
	for k, c := range coefs {
		mode := b.modes[k]
		for i, ok := range b.footprint {
			if ok {
				data[i] += c * mode[i]
			}
		}
	}
	mask := make([]bool, len(b.footprint))
	copy(mask, b.footprint)
	return opd.New(b.rows, b.cols, data, mask)
}

// conditionNumber computes sigma_max/sigma_min of a matrix. ok is false
// when the factorization fails or the matrix is exactly singular.
func conditionNumber(a *mat.Dense) (float64, bool) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return math.Inf(1), false
	}
	values := svd.Values(nil)
	smallest := values[len(values)-1]
	if smallest == 0 {
		return math.Inf(1), false
	}
	return values[0] / smallest, true
}

// LoadNpz loads a precomputed modal basis (e.g. Karhunen-Loève matrices
// exported by the instrument model) from an npz archive. The archive
// holds "modes", an nModes × nPoint matrix of compact valid-pixel
// samples, and "mask", the rows×cols grid footprint stored as 0/1.
func LoadNpz(path string, opts ...Option) (*Basis, error) {
	var maskGrid []float64
	var maskRows, maskCols int
	if err := withNpyEntry(path, "mask", func(r *npyio.Reader) error {
		shape := r.Header.Descr.Shape
		if len(shape) != 2 {
			return errors.Wrapf(errors.ErrSchemaMismatch, "%s: mask has rank %d, want 2", path, len(shape))
		}
		maskRows, maskCols = shape[0], shape[1]
		return r.Read(&maskGrid)
	}); err != nil {
		return nil, err
	}

	footprint := make([]bool, len(maskGrid))
	nValid := 0
	for i, v := range maskGrid {
		if v != 0 {
			footprint[i] = true
			nValid++
		}
	}

	var modesFlat []float64
	var nModes, nPoint int
	if err := withNpyEntry(path, "modes", func(r *npyio.Reader) error {
		shape := r.Header.Descr.Shape
		if len(shape) != 2 {
			return errors.Wrapf(errors.ErrSchemaMismatch, "%s: modes has rank %d, want 2", path, len(shape))
		}
		nModes, nPoint = shape[0], shape[1]
		return r.Read(&modesFlat)
	}); err != nil {
		return nil, err
	}
	if nPoint != nValid {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch,
			"%s: modes sampled on %d points, mask has %d valid pixels", path, nPoint, nValid)
	}

	gen := func(mode, rows, cols int) []float64 {
		out := make([]float64, rows*cols)
		row := modesFlat[mode*nPoint : (mode+1)*nPoint]
		j := 0
		for i, ok := range footprint {
			if ok {
				out[i] = row[j]
				j++
			}
		}
		return out
	}
	return Build(maskRows, maskCols, nModes, footprint, gen, opts...)
}

// withNpyEntry opens one named array inside an npz archive.
func withNpyEntry(path, name string, fn func(*npyio.Reader) error) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return errors.Wrapf(errors.ErrArraySourceIO, "opening %s: %v", path, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name+".npy" && f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(errors.ErrArraySourceIO, "%s: opening entry %q: %v", path, f.Name, err)
		}
		defer rc.Close()
		r, err := npyio.NewReader(rc)
		if err != nil {
			return errors.Wrapf(errors.ErrArraySourceIO, "%s: parsing entry %q: %v", path, f.Name, err)
		}
		return fn(r)
	}
	return errors.Wrapf(errors.ErrArraySourceIO, "%s: no array named %q", path, name)
}

// SpectrumSlope fits a line to log(mean squared coefficient) versus
// log(mode index) and returns its slope η. The slope characterizes how
// fast modal power falls off with mode number.
func SpectrumSlope(meanSquares []float64) (float64, error) {
	if len(meanSquares) < 2 {
		return 0, errors.Wrapf(errors.ErrInvalidBasis, "spectrum slope needs at least 2 modes, got %d", len(meanSquares))
	}
	xs := make([]float64, 0, len(meanSquares))
	ys := make([]float64, 0, len(meanSquares))
	for i, c2 := range meanSquares {
		if c2 <= 0 {
			continue
		}
		xs = append(xs, math.Log(float64(i+1)))
		ys = append(ys, math.Log(c2))
	}
	if len(xs) < 2 {
		return 0, errors.Wrapf(errors.ErrInvalidBasis, "spectrum slope needs at least 2 positive mean squares")
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta, nil
}
