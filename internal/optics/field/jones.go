package field

import (
	"fmt"
	"math/cmplx"

	"github.com/apertura-labs/apertura/internal/optics/grid"
)

// VectorField is a 2-component Jones vector field: the transverse electric
// field components (Ex, Ey) at every grid sample.
type VectorField struct {
	X, Y *Field
}

// NewVector returns a zero-valued vector field on g.
func NewVector(g *grid.Grid) *VectorField {
	return &VectorField{X: New(g), Y: New(g)}
}

// Grid returns the sampling grid shared by both components.
func (v *VectorField) Grid() *grid.Grid { return v.X.Grid }

// Copy returns a deep copy.
func (v *VectorField) Copy() *VectorField {
	return &VectorField{X: v.X.Copy(), Y: v.Y.Copy()}
}

// Scale multiplies both components by a complex constant in place.
func (v *VectorField) Scale(c complex128) *VectorField {
	v.X.Scale(c)
	v.Y.Scale(c)
	return v
}

// Power returns |Ex|^2 + |Ey|^2 per sample.
func (v *VectorField) Power() *RealField {
	out := v.X.Power()
	py := v.Y.Power()
	for i := range out.Data {
		out.Data[i] += py.Data[i]
	}
	return out
}

// TotalPower integrates the power over the grid.
func (v *VectorField) TotalPower() float64 {
	return v.X.TotalPower() + v.Y.TotalPower()
}

// Stokes returns the four per-sample Stokes parameter images (I, Q, U, V)
// of the vector field. The sign convention is V > 0 for right-circular
// polarization with Ey leading Ex by a quarter wave.
func (v *VectorField) Stokes() [4]*RealField {
	g := v.Grid()
	I := NewReal(g)
	Q := NewReal(g)
	U := NewReal(g)
	V := NewReal(g)
	for i := range I.Data {
		ex, ey := v.X.Data[i], v.Y.Data[i]
		px := real(ex)*real(ex) + imag(ex)*imag(ex)
		py := real(ey)*real(ey) + imag(ey)*imag(ey)
		cross := ex * cmplx.Conj(ey)
		I.Data[i] = px + py
		Q.Data[i] = px - py
		U.Data[i] = 2 * real(cross)
		V.Data[i] = -2 * imag(cross)
	}
	return [4]*RealField{I, Q, U, V}
}

// JonesMatrix is a constant (not spatially varying) 2x2 complex Jones matrix.
type JonesMatrix [2][2]complex128

// Mul returns the matrix product j*o.
func (j JonesMatrix) Mul(o JonesMatrix) JonesMatrix {
	var out JonesMatrix
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			out[r][c] = j[r][0]*o[0][c] + j[r][1]*o[1][c]
		}
	}
	return out
}

// ConjTranspose returns the Hermitian conjugate of the matrix.
func (j JonesMatrix) ConjTranspose() JonesMatrix {
	return JonesMatrix{
		{cmplx.Conj(j[0][0]), cmplx.Conj(j[1][0])},
		{cmplx.Conj(j[0][1]), cmplx.Conj(j[1][1])},
	}
}

// Apply multiplies every Jones vector sample of v by the matrix, in place.
func (j JonesMatrix) Apply(v *VectorField) {
	for i := range v.X.Data {
		ex, ey := v.X.Data[i], v.Y.Data[i]
		v.X.Data[i] = j[0][0]*ex + j[0][1]*ey
		v.Y.Data[i] = j[1][0]*ex + j[1][1]*ey
	}
}

// Field expands the constant matrix to a matrix field on g.
func (j JonesMatrix) Field(g *grid.Grid) *MatrixField {
	m := &MatrixField{XX: New(g), XY: New(g), YX: New(g), YY: New(g)}
	for i := range m.XX.Data {
		m.XX.Data[i] = j[0][0]
		m.XY.Data[i] = j[0][1]
		m.YX.Data[i] = j[1][0]
		m.YY.Data[i] = j[1][1]
	}
	return m
}

// Kron returns the Kronecker product j ⊗ o as a 4x4 complex matrix, with
// rows ordered (xx, xy, yx, yy). Used by the Jones-to-Mueller conversion.
func (j JonesMatrix) Kron(o JonesMatrix) [4][4]complex128 {
	var out [4][4]complex128
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			for c := 0; c < 2; c++ {
				for d := 0; d < 2; d++ {
					out[2*a+c][2*b+d] = j[a][b] * o[c][d]
				}
			}
		}
	}
	return out
}

// MatrixField is a spatially varying 2x2 Jones matrix field.
type MatrixField struct {
	XX, XY, YX, YY *Field
}

// NewMatrix returns an identity-valued matrix field on g.
func NewMatrix(g *grid.Grid) *MatrixField {
	m := &MatrixField{XX: New(g), XY: New(g), YX: New(g), YY: New(g)}
	for i := range m.XX.Data {
		m.XX.Data[i] = 1
		m.YY.Data[i] = 1
	}
	return m
}

// Grid returns the sampling grid shared by all components.
func (m *MatrixField) Grid() *grid.Grid { return m.XX.Grid }

// Apply multiplies every Jones vector sample of v by the per-sample matrix,
// in place. The grids must have the same size.
func (m *MatrixField) Apply(v *VectorField) error {
	if m.Grid().Size() != v.Grid().Size() {
		return fmt.Errorf("matrix field size %d and vector field size %d are not compatible",
			m.Grid().Size(), v.Grid().Size())
	}
	for i := range v.X.Data {
		ex, ey := v.X.Data[i], v.Y.Data[i]
		v.X.Data[i] = m.XX.Data[i]*ex + m.XY.Data[i]*ey
		v.Y.Data[i] = m.YX.Data[i]*ex + m.YY.Data[i]*ey
	}
	return nil
}

// Mul returns the per-sample matrix product m*o as a new field. Applying the
// result equals applying o first and then m.
func (m *MatrixField) Mul(o *MatrixField) (*MatrixField, error) {
	if m.Grid().Size() != o.Grid().Size() {
		return nil, fmt.Errorf("matrix field sizes %d and %d are not compatible",
			m.Grid().Size(), o.Grid().Size())
	}
	g := m.Grid()
	out := &MatrixField{XX: New(g), XY: New(g), YX: New(g), YY: New(g)}
	for i := range m.XX.Data {
		out.XX.Data[i] = m.XX.Data[i]*o.XX.Data[i] + m.XY.Data[i]*o.YX.Data[i]
		out.XY.Data[i] = m.XX.Data[i]*o.XY.Data[i] + m.XY.Data[i]*o.YY.Data[i]
		out.YX.Data[i] = m.YX.Data[i]*o.XX.Data[i] + m.YY.Data[i]*o.YX.Data[i]
		out.YY.Data[i] = m.YX.Data[i]*o.XY.Data[i] + m.YY.Data[i]*o.YY.Data[i]
	}
	return out, nil
}

// ConjTranspose returns the per-sample Hermitian conjugate as a new field.
func (m *MatrixField) ConjTranspose() *MatrixField {
	return &MatrixField{
		XX: m.XX.Copy().Conj(),
		XY: m.YX.Copy().Conj(),
		YX: m.XY.Copy().Conj(),
		YY: m.YY.Copy().Conj(),
	}
}
