package element

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
)

// MuellerMatrix is a 4x4 real matrix acting on Stokes vectors.
type MuellerMatrix [4][4]float64

// MulStokes applies the matrix to a Stokes vector.
func (m MuellerMatrix) MulStokes(s [4]float64) [4]float64 {
	var out [4]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r] += m[r][c] * s[c]
		}
	}
	return out
}

// JonesToMueller converts a Jones matrix to the equivalent Mueller matrix
// via M = U (J ⊗ J*) U^dagger with the standard unitary change of basis.
func JonesToMueller(j field.JonesMatrix) MuellerMatrix {
	inv := 1 / math.Sqrt2
	u := [4][4]complex128{
		{complex(inv, 0), 0, 0, complex(inv, 0)},
		{complex(inv, 0), 0, 0, complex(-inv, 0)},
		{0, complex(inv, 0), complex(inv, 0), 0},
		{0, complex(0, inv), complex(0, -inv), 0},
	}

	k := j.Kron(jonesConj(j))

	// tmp = U * K
	var tmp [4][4]complex128
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			for i := 0; i < 4; i++ {
				tmp[r][c] += u[r][i] * k[i][c]
			}
		}
	}

	// out = tmp * U^dagger
	var out MuellerMatrix
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var acc complex128
			for i := 0; i < 4; i++ {
				acc += tmp[r][i] * cmplx.Conj(u[c][i])
			}
			out[r][c] = real(acc)
		}
	}
	return out
}

func jonesConj(j field.JonesMatrix) field.JonesMatrix {
	var out field.JonesMatrix
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			out[r][c] = cmplx.Conj(j[r][c])
		}
	}
	return out
}

// JonesMatrixElement applies a Jones matrix to a vector wavefront. The
// matrix is either constant or spatially varying (Varying non-nil).
type JonesMatrixElement struct {
	J       field.JonesMatrix
	Varying *field.MatrixField
}

// NewJonesMatrixElement builds an element from a constant Jones matrix.
func NewJonesMatrixElement(j field.JonesMatrix) *JonesMatrixElement {
	return &JonesMatrixElement{J: j}
}

// NewVaryingJonesMatrixElement builds an element from a spatially varying
// Jones matrix field.
func NewVaryingJonesMatrixElement(m *field.MatrixField) *JonesMatrixElement {
	return &JonesMatrixElement{Varying: m}
}

// Forward propagates a vector wavefront through the Jones matrix.
func (e *JonesMatrixElement) Forward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	if !w.IsVector() {
		return nil, fmt.Errorf("jones matrix element requires a vector wavefront")
	}
	out := w.Copy()
	if e.Varying != nil {
		if err := e.Varying.Apply(out.EV); err != nil {
			return nil, err
		}
		return out, nil
	}
	e.J.Apply(out.EV)
	return out, nil
}

// Backward propagates a vector wavefront backwards through the element
// using the conjugate transpose of the Jones matrix.
func (e *JonesMatrixElement) Backward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	if !w.IsVector() {
		return nil, fmt.Errorf("jones matrix element requires a vector wavefront")
	}
	out := w.Copy()
	if e.Varying != nil {
		if err := e.Varying.ConjTranspose().Apply(out.EV); err != nil {
			return nil, err
		}
		return out, nil
	}
	e.J.ConjTranspose().Apply(out.EV)
	return out, nil
}

// MuellerMatrix returns the Mueller matrix of a constant-Jones element.
func (e *JonesMatrixElement) MuellerMatrix() (MuellerMatrix, error) {
	if e.Varying != nil {
		return MuellerMatrix{}, fmt.Errorf("mueller matrix of a spatially varying element is not supported")
	}
	return JonesToMueller(e.J), nil
}

// Mul returns the element whose Jones matrix is e.J * o.J, i.e. o applied
// first. Composing two constant elements yields a constant element; when
// either side is spatially varying, the result is varying and a constant
// side is expanded onto the other's grid.
func (e *JonesMatrixElement) Mul(o *JonesMatrixElement) (*JonesMatrixElement, error) {
	if e.Varying == nil && o.Varying == nil {
		return NewJonesMatrixElement(e.J.Mul(o.J)), nil
	}

	left, right := e.Varying, o.Varying
	if left == nil {
		left = e.J.Field(right.Grid())
	}
	if right == nil {
		right = o.J.Field(left.Grid())
	}
	m, err := left.Mul(right)
	if err != nil {
		return nil, err
	}
	return NewVaryingJonesMatrixElement(m), nil
}

// NewPhaseRetarder builds a general phase retarder with the given
// retardation between the fast and slow axis, fast-axis orientation with
// respect to the x axis (radians), and circularity.
func NewPhaseRetarder(retardation, fastAxisOrientation, circularity float64) *JonesMatrixElement {
	phiPlus := cmplx.Rect(1, retardation/2)
	phiMinus := cmplx.Rect(1, -retardation/2)

	c := complex(math.Cos(fastAxisOrientation), 0)
	s := complex(math.Sin(fastAxisOrientation), 0)

	j11 := phiPlus*c*c + phiMinus*s*s
	j12 := (phiPlus - phiMinus) * cmplx.Rect(1, -circularity) * c * s
	j21 := (phiPlus - phiMinus) * cmplx.Rect(1, circularity) * c * s
	j22 := phiPlus*s*s + phiMinus*c*c

	return NewJonesMatrixElement(field.JonesMatrix{{j11, j12}, {j21, j22}})
}

// NewLinearRetarder builds a linear retarder with the given retardation and
// fast-axis orientation.
func NewLinearRetarder(retardation, fastAxisOrientation float64) *JonesMatrixElement {
	return NewPhaseRetarder(retardation, fastAxisOrientation, 0)
}

// NewCircularRetarder builds a circular retarder with the given retardation.
func NewCircularRetarder(retardation float64) *JonesMatrixElement {
	return NewPhaseRetarder(retardation, math.Pi/4, math.Pi/2)
}

// NewQuarterWavePlate builds a quarter-wave plate with the given fast-axis
// orientation.
func NewQuarterWavePlate(fastAxisOrientation float64) *JonesMatrixElement {
	return NewLinearRetarder(math.Pi/2, fastAxisOrientation)
}

// NewHalfWavePlate builds a half-wave plate with the given fast-axis
// orientation.
func NewHalfWavePlate(fastAxisOrientation float64) *JonesMatrixElement {
	return NewLinearRetarder(math.Pi, fastAxisOrientation)
}

// NewLinearPolarizer builds a linear polarizer. Light polarized along the
// polarization angle is transmitted.
func NewLinearPolarizer(polarizationAngle float64) *JonesMatrixElement {
	c := math.Cos(polarizationAngle)
	s := math.Sin(polarizationAngle)
	return NewJonesMatrixElement(field.JonesMatrix{
		{complex(c*c, 0), complex(c*s, 0)},
		{complex(c*s, 0), complex(s*s, 0)},
	})
}
