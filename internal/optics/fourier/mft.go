package fourier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

// cdenseMul computes dst = a * b. mat.CDense has no Mul method, so the
// product goes through the cblas128 Gemm kernel directly.
func cdenseMul(dst, a, b *mat.CDense) {
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, a.RawCMatrix(), b.RawCMatrix(), 0, dst.RawCMatrix())
}

// MFT is a matrix Fourier transform between two arbitrary regular grids.
// Unlike the FFT it needs no zero padding to reach a chosen output sampling:
// the transform is evaluated semi-analytically as two separable matrix
// products, which is how focal-plane sampling at a chosen q is obtained
// directly.
type MFT struct {
	in  *grid.Grid
	out *grid.Grid

	// Forward: F = wy * E * wxT, scaled by the input cell area.
	wy  *mat.CDense // out.Ny x in.Ny
	wxT *mat.CDense // in.Nx x out.Nx

	// Backward: E = wyB * F * wxBT, scaled by dK/(2*pi)^2.
	wyB  *mat.CDense // in.Ny x out.Ny
	wxBT *mat.CDense // out.Nx x in.Nx
}

// NewMFT plans a matrix Fourier transform from the spatial grid in to the
// frequency grid out.
func NewMFT(in, out *grid.Grid) (*MFT, error) {
	if in == nil || out == nil {
		return nil, fmt.Errorf("mft requires both input and output grids")
	}

	m := &MFT{in: in, out: out}

	m.wy = mat.NewCDense(out.Ny, in.Ny, nil)
	m.wyB = mat.NewCDense(in.Ny, out.Ny, nil)
	for v := 0; v < out.Ny; v++ {
		k := out.Y0 + float64(v)*out.Dy
		for j := 0; j < in.Ny; j++ {
			y := in.Y0 + float64(j)*in.Dy
			m.wy.Set(v, j, cis(-k*y))
			m.wyB.Set(j, v, cis(k*y))
		}
	}

	m.wxT = mat.NewCDense(in.Nx, out.Nx, nil)
	m.wxBT = mat.NewCDense(out.Nx, in.Nx, nil)
	for u := 0; u < out.Nx; u++ {
		k := out.X0 + float64(u)*out.Dx
		for j := 0; j < in.Nx; j++ {
			x := in.X0 + float64(j)*in.Dx
			m.wxT.Set(j, u, cis(-k*x))
			m.wxBT.Set(u, j, cis(k*x))
		}
	}

	return m, nil
}

// OutputGrid returns the frequency grid of the transform.
func (m *MFT) OutputGrid() *grid.Grid { return m.out }

// InputGrid returns the spatial grid of the transform.
func (m *MFT) InputGrid() *grid.Grid { return m.in }

// Forward transforms a spatial field onto the output grid.
func (m *MFT) Forward(e *field.Field) (*field.Field, error) {
	if !e.Grid.Equal(m.in) {
		return nil, fmt.Errorf("field grid does not match the planned input grid")
	}

	em := mat.NewCDense(m.in.Ny, m.in.Nx, e.Data)

	tmp := mat.NewCDense(m.out.Ny, m.in.Nx, nil)
	res := mat.NewCDense(m.out.Ny, m.out.Nx, nil)
	cdenseMul(tmp, m.wy, em)
	cdenseMul(res, tmp, m.wxT)

	out := field.New(m.out)
	area := complex(m.in.CellArea(), 0)
	for v := 0; v < m.out.Ny; v++ {
		for u := 0; u < m.out.Nx; u++ {
			out.Data[v*m.out.Nx+u] = res.At(v, u) * area
		}
	}
	return out, nil
}

// Backward transforms an output-grid field back onto the spatial grid. This
// is the adjoint-based inverse; it is exact only when the output grid fully
// samples the band of the input.
func (m *MFT) Backward(e *field.Field) (*field.Field, error) {
	if !e.Grid.Equal(m.out) {
		return nil, fmt.Errorf("field grid does not match the planned output grid")
	}

	fm := mat.NewCDense(m.out.Ny, m.out.Nx, e.Data)

	tmp := mat.NewCDense(m.in.Ny, m.out.Nx, nil)
	res := mat.NewCDense(m.in.Ny, m.in.Nx, nil)
	cdenseMul(tmp, m.wyB, fm)
	cdenseMul(res, tmp, m.wxBT)

	out := field.New(m.in)
	norm := complex(m.out.Dx*m.out.Dy/(4*math.Pi*math.Pi), 0)
	for j := 0; j < m.in.Ny; j++ {
		for i := 0; i < m.in.Nx; i++ {
			out.Data[j*m.in.Nx+i] = res.At(j, i) * norm
		}
	}
	return out, nil
}
