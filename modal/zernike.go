package modal

import (
	"math"
)

// nollToZernike converts a Noll index j (1-based, piston = 1) into the
// radial degree n and signed azimuthal order m. Positive m is the cosine
// term, negative m the sine term.
func nollToZernike(j int) (n, m int) {
	n = int((-1 + math.Sqrt(float64(8*(j-1)+1))) / 2)
	p := j - n*(n+1)/2
	k := n % 2
	m = ((p+k)/2)*2 - k
	if m != 0 && j%2 != 0 {
		m = -m
	}
	return n, m
}

// radial evaluates the Zernike radial polynomial R_n^|m| at rho.
func radial(n, m int, rho float64) float64 {
	if m < 0 {
		m = -m
	}
	sum := 0.0
	for k := 0; k <= (n-m)/2; k++ {
		c := factorial(n-k) / (factorial(k) * factorial((n+m)/2-k) * factorial((n-m)/2-k))
		if k%2 != 0 {
			c = -c
		}
		sum += c * math.Pow(rho, float64(n-2*k))
	}
	return sum
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// DiskFootprint returns the unit-disk pupil mask for a grid: pixels whose
// normalized radius is <= 1.
func DiskFootprint(rows, cols int) []bool {
	mask := make([]bool, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x, y := unitCoords(r, c, rows, cols)
			mask[r*cols+c] = x*x+y*y <= 1
		}
	}
	return mask
}

// unitCoords maps a pixel to [-1, 1] coordinates with the disk inscribed
// in the grid.
func unitCoords(r, c, rows, cols int) (x, y float64) {
	x = 2*float64(c)/float64(cols-1) - 1
	y = 2*float64(r)/float64(rows-1) - 1
	return x, y
}

// Zernike returns a mode generator producing Zernike polynomials in Noll
// ordering, starting at the given Noll index (use 2 to skip piston on
// zero-meaned maps). Mode index 0 maps to startNoll.
func Zernike(startNoll int) Generator {
	return func(mode, rows, cols int) []float64 {
		j := startNoll + mode
		n, m := nollToZernike(j)
		out := make([]float64, rows*cols)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				x, y := unitCoords(r, c, rows, cols)
				rho := math.Hypot(x, y)
				if rho > 1 {
					continue
				}
				theta := math.Atan2(y, x)
				v := radial(n, m, rho)
				switch {
				case m > 0:
					v *= math.Cos(float64(m) * theta)
				case m < 0:
					v *= math.Sin(float64(-m) * theta)
				}
				out[r*cols+c] = v
			}
		}
		return out
	}
}
