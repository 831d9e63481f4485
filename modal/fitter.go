package modal

import (
	"gonum.org/v1/gonum/mat"

	"github.com/teranos/GLAO/errors"
	"github.com/teranos/GLAO/opd"
)

// FitResult holds the modal coefficients (in basis order) and the spatial
// residual left after subtracting the reconstruction. The residual
// inherits the effective validity mask of the fit; invalid pixels stay
// invalid, never zero.
type FitResult struct {
	Coefficients []float64
	Residual     *opd.Map
}

// Fit projects the map onto the basis by ordinary least squares over the
// pixels valid in both the map and the basis footprint. The solve goes
// through an SVD, never an explicit inverse.
//
// Error kinds:
//   - ErrUnderdeterminedFit when valid pixels < mode count
//   - ErrIllConditionedFit when the masked design matrix's condition
//     number exceeds the basis threshold
func (b *Basis) Fit(m *opd.Map) (*FitResult, error) {
	if m.Rows != b.rows || m.Cols != b.cols {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch,
			"map is %dx%d, basis grid is %dx%d", m.Rows, m.Cols, b.rows, b.cols)
	}

	// Effective mask: pixels valid in the frame and inside the footprint.
	mask := make([]bool, len(m.Mask))
	nValid := 0
	sameAsFootprint := true
	for i := range mask {
		mask[i] = m.Mask[i] && b.footprint[i]
		if mask[i] {
			nValid++
		}
		if mask[i] != b.footprint[i] {
			sameAsFootprint = false
		}
	}
	if nValid == 0 {
		return nil, errors.WithStack(errors.ErrEmptyFrame)
	}
	if nValid < b.nModes {
		return nil, errors.Wrapf(errors.ErrUnderdeterminedFit,
			"%d valid pixels for %d modes", nValid, b.nModes)
	}

	// The cached design matrix is only valid for the footprint mask; any
	// other mask gets a freshly masked matrix.
	design := b.design
	if !sameAsFootprint {
		design = b.designFor(mask, nValid)
	}

	var svd mat.SVD
	if !svd.Factorize(design, mat.SVDThin) {
		return nil, errors.Wrapf(errors.ErrIllConditionedFit, "SVD factorization failed")
	}
	values := svd.Values(nil)
	smallest := values[len(values)-1]
	if smallest == 0 || values[0]/smallest > b.condThresh {
		cond := values[0] / smallest
		return nil, errors.Wrapf(errors.ErrIllConditionedFit,
			"condition number %.3g exceeds %.3g", cond, b.condThresh)
	}

	// Right-hand side: the frame's valid pixels under the effective mask.
	rhs := mat.NewVecDense(nValid, nil)
	r := 0
	for i, ok := range mask {
		if ok {
			rhs.SetVec(r, m.Data[i])
			r++
		}
	}

	var coefVec mat.VecDense
	svd.SolveVecTo(&coefVec, rhs, b.nModes)

	coefs := make([]float64, b.nModes)
	copy(coefs, coefVec.RawVector().Data)

	// Residual: frame minus reconstruction, strictly at valid pixels.
	var recon mat.VecDense
	recon.MulVec(design, &coefVec)

	resData := make([]float64, len(m.Data))
	copy(resData, m.Data)
	r = 0
	for i, ok := range mask {
		if ok {
			resData[i] -= recon.AtVec(r)
			r++
		}
	}
	residual, err := opd.New(m.Rows, m.Cols, resData, mask)
	if err != nil {
		return nil, err
	}
	return &FitResult{Coefficients: coefs, Residual: residual}, nil
}
