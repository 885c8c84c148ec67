package propagation

import (
	"fmt"
	"math"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/fourier"
	"github.com/apertura-labs/apertura/internal/optics/grid"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
)

// Fraunhofer propagates a wavefront from a pupil plane to the focal plane of
// an ideal lens with the given focal length. The focal field is the Fourier
// transform of the pupil field evaluated at the angular frequency
// k = 2*pi*x_f / (lambda*f), scaled by 1/(i*lambda*f), so total power is
// conserved between the planes.
type Fraunhofer struct {
	pupil       *grid.Grid
	focal       *grid.Grid
	focalLength float64

	plans map[float64]*fourier.MFT
}

// NewFraunhofer plans propagation from a pupil grid onto a focal grid.
func NewFraunhofer(pupil, focal *grid.Grid, focalLength float64) (*Fraunhofer, error) {
	if pupil == nil || focal == nil {
		return nil, fmt.Errorf("fraunhofer propagator requires pupil and focal grids")
	}
	if focalLength <= 0 {
		return nil, fmt.Errorf("focal length must be positive, got %g", focalLength)
	}
	return &Fraunhofer{
		pupil:       pupil,
		focal:       focal,
		focalLength: focalLength,
		plans:       make(map[float64]*fourier.MFT),
	}, nil
}

// PupilGrid returns the input pupil grid.
func (p *Fraunhofer) PupilGrid() *grid.Grid { return p.pupil }

// FocalGrid returns the output focal grid.
func (p *Fraunhofer) FocalGrid() *grid.Grid { return p.focal }

// FocalLength returns the lens focal length in meters.
func (p *Fraunhofer) FocalLength() float64 { return p.focalLength }

func (p *Fraunhofer) planFor(wavelength float64) (*fourier.MFT, error) {
	if m, ok := p.plans[wavelength]; ok {
		return m, nil
	}
	kGrid := p.focal.Scaled(2 * math.Pi / (wavelength * p.focalLength))
	m, err := fourier.NewMFT(p.pupil, kGrid)
	if err != nil {
		return nil, fmt.Errorf("planning focal transform: %w", err)
	}
	p.plans[wavelength] = m
	return m, nil
}

// Forward propagates a pupil-plane wavefront to the focal plane.
func (p *Fraunhofer) Forward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	plan, err := p.planFor(w.Wavelength)
	if err != nil {
		return nil, err
	}
	// 1/(i lambda f) = -i / (lambda f)
	norm := complex(0, -1/(w.Wavelength*p.focalLength))

	return mapComponents(w, func(e *field.Field) (*field.Field, error) {
		ft, err := plan.Forward(e)
		if err != nil {
			return nil, err
		}
		out := field.New(p.focal)
		for i, v := range ft.Data {
			out.Data[i] = v * norm
		}
		return out, nil
	})
}

// Backward propagates a focal-plane wavefront back to the pupil plane.
func (p *Fraunhofer) Backward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	plan, err := p.planFor(w.Wavelength)
	if err != nil {
		return nil, err
	}
	norm := complex(0, w.Wavelength*p.focalLength)

	return mapComponents(w, func(e *field.Field) (*field.Field, error) {
		if !e.Grid.Equal(p.focal) {
			return nil, fmt.Errorf("field grid does not match the focal grid")
		}
		scaled := field.New(plan.OutputGrid())
		for i, v := range e.Data {
			scaled.Data[i] = v * norm
		}
		return plan.Backward(scaled)
	})
}

// mapComponents applies a scalar field transform to every component of a
// wavefront, preserving the wavelength and polarization structure.
func mapComponents(w *wavefront.Wavefront, f func(*field.Field) (*field.Field, error)) (*wavefront.Wavefront, error) {
	if w.IsVector() {
		x, err := f(w.EV.X)
		if err != nil {
			return nil, err
		}
		y, err := f(w.EV.Y)
		if err != nil {
			return nil, err
		}
		return wavefront.NewVector(&field.VectorField{X: x, Y: y}, w.Wavelength)
	}
	e, err := f(w.E)
	if err != nil {
		return nil, err
	}
	return wavefront.New(e, w.Wavelength)
}
