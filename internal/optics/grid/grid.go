package grid

import (
	"fmt"
	"math"
)

// Grid is a regular two-dimensional Cartesian sampling grid. Samples are
// stored row-major: flat index i = iy*Nx + ix. The sample (ix, iy) sits at
// coordinate (X0 + ix*Dx, Y0 + iy*Dy).
type Grid struct {
	Nx, Ny int
	Dx, Dy float64
	X0, Y0 float64
}

// New constructs a regular Cartesian grid and validates its parameters.
func New(nx, ny int, dx, dy, x0, y0 float64) (*Grid, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("grid dims must be positive, got %dx%d", nx, ny)
	}
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("grid deltas must be positive, got (%g, %g)", dx, dy)
	}
	return &Grid{Nx: nx, Ny: ny, Dx: dx, Dy: dy, X0: x0, Y0: y0}, nil
}

// NewCentered constructs an n x n grid of total extent `extent` per side,
// sample-centered so that the grid is symmetric about the origin.
func NewCentered(n int, extent float64) (*Grid, error) {
	if n < 1 {
		return nil, fmt.Errorf("grid size must be positive, got %d", n)
	}
	if extent <= 0 {
		return nil, fmt.Errorf("grid extent must be positive, got %g", extent)
	}
	d := extent / float64(n)
	z := -extent/2 + d/2
	return &Grid{Nx: n, Ny: n, Dx: d, Dy: d, X0: z, Y0: z}, nil
}

// Size returns the total number of samples.
func (g *Grid) Size() int { return g.Nx * g.Ny }

// X returns the x coordinate of flat sample i.
func (g *Grid) X(i int) float64 { return g.X0 + float64(i%g.Nx)*g.Dx }

// Y returns the y coordinate of flat sample i.
func (g *Grid) Y(i int) float64 { return g.Y0 + float64(i/g.Nx)*g.Dy }

// At returns both coordinates of flat sample i.
func (g *Grid) At(i int) (x, y float64) { return g.X(i), g.Y(i) }

// Index returns the flat index of sample (ix, iy).
func (g *Grid) Index(ix, iy int) int { return iy*g.Nx + ix }

// R returns the polar radius of flat sample i.
func (g *Grid) R(i int) float64 {
	x, y := g.At(i)
	return math.Hypot(x, y)
}

// Theta returns the polar angle of flat sample i in radians.
func (g *Grid) Theta(i int) float64 {
	x, y := g.At(i)
	return math.Atan2(y, x)
}

// CellArea returns the area of one sampling cell.
func (g *Grid) CellArea() float64 { return g.Dx * g.Dy }

// ExtentX returns the total x extent spanned by the samples.
func (g *Grid) ExtentX() float64 { return float64(g.Nx) * g.Dx }

// ExtentY returns the total y extent spanned by the samples.
func (g *Grid) ExtentY() float64 { return float64(g.Ny) * g.Dy }

// SameShape reports whether two grids have identical dims.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Nx == o.Nx && g.Ny == o.Ny
}

// Equal reports whether two grids describe the same sampling, within a small
// relative tolerance on deltas and offsets.
func (g *Grid) Equal(o *Grid) bool {
	const tol = 1e-12
	if !g.SameShape(o) {
		return false
	}
	close := func(a, b float64) bool {
		scale := math.Max(math.Abs(a), math.Abs(b))
		if scale == 0 {
			return true
		}
		return math.Abs(a-b) <= tol*scale
	}
	return close(g.Dx, o.Dx) && close(g.Dy, o.Dy) && close(g.X0, o.X0) && close(g.Y0, o.Y0)
}

// Supersampled returns a grid covering the same extent with factor-times
// finer sampling per axis.
func (g *Grid) Supersampled(factor int) (*Grid, error) {
	if factor < 1 {
		return nil, fmt.Errorf("supersampling factor must be at least 1, got %d", factor)
	}
	f := float64(factor)
	return &Grid{
		Nx: g.Nx * factor,
		Ny: g.Ny * factor,
		Dx: g.Dx / f,
		Dy: g.Dy / f,
		X0: g.X0 - g.Dx/2 + g.Dx/(2*f),
		Y0: g.Y0 - g.Dy/2 + g.Dy/(2*f),
	}, nil
}

// Scaled returns a copy of the grid with all lengths multiplied by s.
// Useful for converting an FFT frequency grid into focal-plane coordinates.
func (g *Grid) Scaled(s float64) *Grid {
	return &Grid{Nx: g.Nx, Ny: g.Ny, Dx: g.Dx * s, Dy: g.Dy * s, X0: g.X0 * s, Y0: g.Y0 * s}
}
