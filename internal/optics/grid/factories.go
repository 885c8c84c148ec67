package grid

import (
	"fmt"
	"math"
)

// NewPupilGrid constructs an n x n sample-centered grid spanning `diameter`
// per side. This is the standard grid on which apertures are evaluated.
func NewPupilGrid(n int, diameter float64) (*Grid, error) {
	return NewCentered(n, diameter)
}

// NewFFTGrid returns the conjugate frequency grid of a spatial grid, as
// produced by an FFT zero-padded by the integer factor q and cropped to the
// fraction fov of the full frequency range. Frequencies are angular (rad/m):
// dk = 2*pi / (q*n*dx). The zero-frequency sample is always on the grid.
func NewFFTGrid(g *Grid, q int, fov float64) (*Grid, error) {
	if q < 1 {
		return nil, fmt.Errorf("fft grid padding factor must be at least 1, got %d", q)
	}
	if fov <= 0 || fov > 1 {
		return nil, fmt.Errorf("fft grid fov must be in (0, 1], got %g", fov)
	}

	padNx := g.Nx * q
	padNy := g.Ny * q
	dkx := 2 * math.Pi / (float64(padNx) * g.Dx)
	dky := 2 * math.Pi / (float64(padNy) * g.Dy)

	mx := cropSize(padNx, fov)
	my := cropSize(padNy, fov)

	return &Grid{
		Nx: mx, Ny: my,
		Dx: dkx, Dy: dky,
		X0: -float64(mx/2) * dkx,
		Y0: -float64(my/2) * dky,
	}, nil
}

func cropSize(n int, fov float64) int {
	m := int(float64(n)*fov + 0.5)
	if m < 1 {
		m = 1
	}
	if m > n {
		m = n
	}
	return m
}

// NewFocalGrid constructs a focal-plane grid with q samples per spatial
// resolution element (lambda*f/D) and a half width of numAiry resolution
// elements. The grid has an odd number of samples per side so the optical
// axis falls exactly on a sample.
func NewFocalGrid(q, numAiry, spatialResolution float64) (*Grid, error) {
	if q < 1 {
		return nil, fmt.Errorf("focal grid q must be at least 1, got %g", q)
	}
	if numAiry <= 0 {
		return nil, fmt.Errorf("focal grid num_airy must be positive, got %g", numAiry)
	}
	if spatialResolution <= 0 {
		return nil, fmt.Errorf("focal grid spatial resolution must be positive, got %g", spatialResolution)
	}

	half := int(q*numAiry + 0.5)
	n := 2*half + 1
	d := spatialResolution / q
	z := -float64(half) * d

	return &Grid{Nx: n, Ny: n, Dx: d, Dy: d, X0: z, Y0: z}, nil
}
