// Package modal owns mode bases over scalar fields: transformation matrices,
// orthogonalization, least-squares decomposition, and the Zernike modes used
// for aberration injection.
// Key types: ModeBasis.
//
// Dependency rule: modal may depend on grid and field only.
package modal

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

// ModeBasis is an ordered set of real-valued modes on a common grid.
type ModeBasis struct {
	Modes []*field.RealField
}

// NewModeBasis validates that all modes share one grid size.
func NewModeBasis(modes []*field.RealField) (*ModeBasis, error) {
	if len(modes) == 0 {
		return nil, fmt.Errorf("mode basis needs at least one mode")
	}
	size := modes[0].Grid.Size()
	for i, m := range modes {
		if m.Grid.Size() != size {
			return nil, fmt.Errorf("mode %d has size %d, want %d", i, m.Grid.Size(), size)
		}
	}
	return &ModeBasis{Modes: modes}, nil
}

// Len returns the number of modes.
func (b *ModeBasis) Len() int { return len(b.Modes) }

// Grid returns the common sampling grid.
func (b *ModeBasis) Grid() *grid.Grid { return b.Modes[0].Grid }

// TransformationMatrix returns the samples-by-modes matrix whose columns are
// the modes, so that a coefficient vector c maps to the field A*c.
func (b *ModeBasis) TransformationMatrix() *mat.Dense {
	size := b.Grid().Size()
	a := mat.NewDense(size, len(b.Modes), nil)
	for j, m := range b.Modes {
		for i, v := range m.Data {
			a.Set(i, j, v)
		}
	}
	return a
}

// Orthogonalized returns a new basis spanning the same space whose modes
// are orthonormal, obtained from the thin QR factorization of the
// transformation matrix.
func (b *ModeBasis) Orthogonalized() (*ModeBasis, error) {
	a := b.TransformationMatrix()

	var qr mat.QR
	qr.Factorize(a)

	var q mat.Dense
	qr.QTo(&q)

	g := b.Grid()
	modes := make([]*field.RealField, len(b.Modes))
	for j := range b.Modes {
		m := field.NewReal(g)
		for i := 0; i < g.Size(); i++ {
			m.Data[i] = q.At(i, j)
		}
		modes[j] = m
	}
	return NewModeBasis(modes)
}

// Coefficients projects a field onto the basis in the least-squares sense.
func (b *ModeBasis) Coefficients(f *field.RealField) ([]float64, error) {
	if f.Grid.Size() != b.Grid().Size() {
		return nil, fmt.Errorf("field size %d does not match basis size %d", f.Grid.Size(), b.Grid().Size())
	}

	a := b.TransformationMatrix()
	rhs := mat.NewDense(len(f.Data), 1, nil)
	for i, v := range f.Data {
		rhs.Set(i, 0, v)
	}

	var qr mat.QR
	qr.Factorize(a)

	var x mat.Dense
	if err := qr.SolveTo(&x, false, rhs); err != nil {
		return nil, fmt.Errorf("least-squares projection failed: %w", err)
	}

	out := make([]float64, len(b.Modes))
	for j := range out {
		out[j] = x.At(j, 0)
	}
	return out, nil
}

// Linear combines the modes with the given coefficients.
func (b *ModeBasis) Linear(coeffs []float64) (*field.RealField, error) {
	if len(coeffs) != len(b.Modes) {
		return nil, fmt.Errorf("got %d coefficients for %d modes", len(coeffs), len(b.Modes))
	}
	out := field.NewReal(b.Grid())
	for j, c := range coeffs {
		if c == 0 {
			continue
		}
		for i, v := range b.Modes[j].Data {
			out.Data[i] += c * v
		}
	}
	return out, nil
}
