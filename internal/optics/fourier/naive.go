package fourier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

// Naive is the reference Fourier transform: it evaluates the transformation
// matrix explicitly and applies it to the flattened field. It is O(N*M) in
// memory and time and exists so the fast paths have a ground truth to match
// in tests. Keep it off hot paths.
type Naive struct {
	in  *grid.Grid
	out *grid.Grid
}

// NewNaive constructs a naive transform between two grids.
func NewNaive(in, out *grid.Grid) *Naive {
	return &Naive{in: in, out: out}
}

// OutputGrid returns the frequency grid of the transform.
func (n *Naive) OutputGrid() *grid.Grid { return n.out }

// TransformationMatrix returns the dense forward matrix T with
// T[u][j] = dA * exp(-i k_u . x_j), so that F = T * E.
func (n *Naive) TransformationMatrix() *mat.CDense {
	t := mat.NewCDense(n.out.Size(), n.in.Size(), nil)
	area := complex(n.in.CellArea(), 0)
	for u := 0; u < n.out.Size(); u++ {
		kx, ky := n.out.At(u)
		for j := 0; j < n.in.Size(); j++ {
			x, y := n.in.At(j)
			t.Set(u, j, cis(-(kx*x+ky*y))*area)
		}
	}
	return t
}

// Forward applies the transformation matrix to the flattened field.
func (n *Naive) Forward(e *field.Field) (*field.Field, error) {
	if !e.Grid.Equal(n.in) {
		return nil, fmt.Errorf("field grid does not match the transform input grid")
	}

	out := field.New(n.out)
	area := complex(n.in.CellArea(), 0)
	for u := 0; u < n.out.Size(); u++ {
		kx, ky := n.out.At(u)
		var acc complex128
		for j := 0; j < n.in.Size(); j++ {
			x, y := n.in.At(j)
			acc += e.Data[j] * cis(-(kx*x + ky*y))
		}
		out.Data[u] = acc * area
	}
	return out, nil
}

// Backward applies the inverse transform.
func (n *Naive) Backward(e *field.Field) (*field.Field, error) {
	if !e.Grid.Equal(n.out) {
		return nil, fmt.Errorf("field grid does not match the transform output grid")
	}

	out := field.New(n.in)
	norm := complex(n.out.Dx*n.out.Dy/(4*math.Pi*math.Pi), 0)
	for j := 0; j < n.in.Size(); j++ {
		x, y := n.in.At(j)
		var acc complex128
		for u := 0; u < n.out.Size(); u++ {
			kx, ky := n.out.At(u)
			acc += e.Data[u] * cis(kx*x+ky*y)
		}
		out.Data[j] = acc * norm
	}
	return out, nil
}
