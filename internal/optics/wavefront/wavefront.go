// Package wavefront owns the state of light at an optical plane: the
// electric field samples, the wavelength, and (for vector wavefronts) the
// polarization state. Key types: Wavefront.
//
// Dependency rule: wavefront may depend on grid and field only.
package wavefront

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

// Wavefront is the electric field of light at a plane. Exactly one of E
// (scalar field) and EV (Jones vector field) is non-nil.
type Wavefront struct {
	E          *field.Field
	EV         *field.VectorField
	Wavelength float64
}

// New constructs a scalar wavefront from a complex field.
func New(e *field.Field, wavelength float64) (*Wavefront, error) {
	if wavelength <= 0 {
		return nil, fmt.Errorf("wavelength must be positive, got %g", wavelength)
	}
	return &Wavefront{E: e, Wavelength: wavelength}, nil
}

// NewVector constructs a vector wavefront from a Jones vector field.
func NewVector(ev *field.VectorField, wavelength float64) (*Wavefront, error) {
	if wavelength <= 0 {
		return nil, fmt.Errorf("wavelength must be positive, got %g", wavelength)
	}
	return &Wavefront{EV: ev, Wavelength: wavelength}, nil
}

// NewPolarized constructs a vector wavefront from a scalar amplitude profile
// and a fully polarized Stokes vector (I, Q, U, V). Partially polarized
// states are rejected; they would need an incoherent sum of two wavefronts.
func NewPolarized(amplitude *field.Field, wavelength float64, stokes [4]float64) (*Wavefront, error) {
	if wavelength <= 0 {
		return nil, fmt.Errorf("wavelength must be positive, got %g", wavelength)
	}
	I := stokes[0]
	if I <= 0 {
		return nil, fmt.Errorf("stokes I must be positive, got %g", I)
	}
	p := math.Sqrt(stokes[1]*stokes[1]+stokes[2]*stokes[2]+stokes[3]*stokes[3]) / I
	if math.Abs(p-1) > 1e-9 {
		return nil, fmt.Errorf("stokes vector has degree of polarization %g, need fully polarized (1)", p)
	}

	jx, jy := jonesFromStokes(stokes)
	ev := field.NewVector(amplitude.Grid)
	for i, a := range amplitude.Data {
		ev.X.Data[i] = a * jx
		ev.Y.Data[i] = a * jy
	}
	return &Wavefront{EV: ev, Wavelength: wavelength}, nil
}

// jonesFromStokes converts a fully polarized, unit-intensity Stokes vector
// into a normalized Jones vector. The convention matches
// field.VectorField.Stokes.
func jonesFromStokes(s [4]float64) (jx, jy complex128) {
	I := s[0]
	q, u, v := s[1]/I, s[2]/I, s[3]/I

	a := math.Sqrt((1 + q) / 2)
	var b complex128
	if a < 1e-12 {
		// Pure vertical: phase of Ex is irrelevant.
		return 0, 1
	}
	// Ex real positive; Ey = (u - i v) / (2 a), matching U = 2 Re(Ex Ey*),
	// V = -2 Im(Ex Ey*).
	b = complex(u/(2*a), v/(2*a))
	return complex(a, 0), b
}

// IsVector reports whether the wavefront carries a Jones vector field.
func (w *Wavefront) IsVector() bool { return w.EV != nil }

// Grid returns the sampling grid of the wavefront.
func (w *Wavefront) Grid() *grid.Grid {
	if w.IsVector() {
		return w.EV.Grid()
	}
	return w.E.Grid
}

// Wavenumber returns 2*pi/wavelength.
func (w *Wavefront) Wavenumber() float64 { return 2 * math.Pi / w.Wavelength }

// Copy returns a deep copy of the wavefront.
func (w *Wavefront) Copy() *Wavefront {
	out := &Wavefront{Wavelength: w.Wavelength}
	if w.IsVector() {
		out.EV = w.EV.Copy()
	} else {
		out.E = w.E.Copy()
	}
	return out
}

// Power returns the per-sample intensity |E|^2.
func (w *Wavefront) Power() *field.RealField {
	if w.IsVector() {
		return w.EV.Power()
	}
	return w.E.Power()
}

// Intensity is an alias for Power.
func (w *Wavefront) Intensity() *field.RealField { return w.Power() }

// TotalPower integrates the intensity over the grid.
func (w *Wavefront) TotalPower() float64 {
	if w.IsVector() {
		return w.EV.TotalPower()
	}
	return w.E.TotalPower()
}

// Phase returns the per-sample phase of a scalar wavefront.
func (w *Wavefront) Phase() (*field.RealField, error) {
	if w.IsVector() {
		return nil, fmt.Errorf("phase of a vector wavefront is ambiguous; take a component")
	}
	return w.E.Phase(), nil
}

// Stokes returns the four per-sample Stokes images (I, Q, U, V). A scalar
// wavefront is treated as fully horizontally polarized.
func (w *Wavefront) Stokes() [4]*field.RealField {
	if w.IsVector() {
		return w.EV.Stokes()
	}
	I := w.E.Power()
	return [4]*field.RealField{I, I.Copy(), field.NewReal(w.E.Grid), field.NewReal(w.E.Grid)}
}

// NormalizeTotalPower rescales the field so TotalPower() == p.
func (w *Wavefront) NormalizeTotalPower(p float64) error {
	if p <= 0 {
		return fmt.Errorf("target power must be positive, got %g", p)
	}
	cur := w.TotalPower()
	if cur == 0 {
		return fmt.Errorf("cannot normalize a zero-power wavefront")
	}
	s := complex(math.Sqrt(p/cur), 0)
	if w.IsVector() {
		w.EV.Scale(s)
	} else {
		w.E.Scale(s)
	}
	return nil
}

// ApplyPhase multiplies the field by exp(i * phase) per sample, where phase
// is given in radians. Both components of a vector wavefront see the same
// scalar phase.
func (w *Wavefront) ApplyPhase(phase *field.RealField) error {
	if phase.Grid.Size() != w.Grid().Size() {
		return fmt.Errorf("phase grid size %d does not match wavefront size %d",
			phase.Grid.Size(), w.Grid().Size())
	}
	if w.IsVector() {
		for i, p := range phase.Data {
			rot := cmplx.Rect(1, p)
			w.EV.X.Data[i] *= rot
			w.EV.Y.Data[i] *= rot
		}
		return nil
	}
	for i, p := range phase.Data {
		w.E.Data[i] *= cmplx.Rect(1, p)
	}
	return nil
}
