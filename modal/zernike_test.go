package modal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNollToZernike(t *testing.T) {
	cases := []struct{ j, n, m int }{
		{1, 0, 0},
		{2, 1, 1},
		{3, 1, -1},
		{4, 2, 0},
		{5, 2, -2},
		{6, 2, 2},
		{7, 3, -1},
		{8, 3, 1},
		{9, 3, -3},
		{10, 3, 3},
		{11, 4, 0},
	}
	for _, c := range cases {
		n, m := nollToZernike(c.j)
		assert.Equal(t, c.n, n, "j=%d", c.j)
		assert.Equal(t, c.m, m, "j=%d", c.j)
	}
}

func TestRadial(t *testing.T) {
	// R_0^0 = 1, R_1^1 = rho, R_2^0 = 2rho^2 - 1
	assert.InDelta(t, 1.0, radial(0, 0, 0.3), 1e-12)
	assert.InDelta(t, 0.7, radial(1, 1, 0.7), 1e-12)
	assert.InDelta(t, 2*0.5*0.5-1, radial(2, 0, 0.5), 1e-12)
}

func TestDiskFootprint(t *testing.T) {
	fp := DiskFootprint(9, 9)
	// center inside, corners outside
	assert.True(t, fp[4*9+4])
	assert.False(t, fp[0])
	assert.False(t, fp[8*9+8])
}

func TestZernikeGeneratorPiston(t *testing.T) {
	gen := Zernike(1)
	sample := gen(0, 8, 8)
	for i, v := range sample {
		x, y := unitCoords(i/8, i%8, 8, 8)
		if x*x+y*y <= 1 {
			assert.InDelta(t, 1.0, v, 1e-12, "pixel %d", i)
		}
	}
}

func TestZernikeTiltIsOdd(t *testing.T) {
	// Noll 2 is x-tilt: antisymmetric across the vertical axis.
	gen := Zernike(2)
	n := 9
	sample := gen(0, n, n)
	mid := n / 2
	for c := 0; c < n; c++ {
		left, right := sample[mid*n+c], sample[mid*n+(n-1-c)]
		if math.Abs(left) > 0 {
			assert.InDelta(t, -left, right, 1e-12)
		}
	}
}
