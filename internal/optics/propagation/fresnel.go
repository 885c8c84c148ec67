package propagation

import (
	"fmt"
	"math"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/fourier"
	"github.com/apertura-labs/apertura/internal/optics/grid"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
)

// Fresnel propagates a wavefront over a finite distance in the paraxial
// approximation. The propagation is a multiplication in frequency space with
// the Fresnel transfer function
//
//	H(kx, ky) = exp(i k z) exp(-i (kx^2 + ky^2) z / (2 k))
//
// applied through a zero-padded FFT, so the output lives on the input grid.
type Fresnel struct {
	g        *grid.Grid
	distance float64

	fft *fourier.FFT
	tfs map[float64][]complex128
}

// NewFresnel plans propagation over the given distance (meters, may be
// negative) on the given grid.
func NewFresnel(g *grid.Grid, distance float64) (*Fresnel, error) {
	fft, err := fourier.NewFFT(g, 2, 1)
	if err != nil {
		return nil, fmt.Errorf("planning fresnel transform: %w", err)
	}
	return &Fresnel{
		g:        g,
		distance: distance,
		fft:      fft,
		tfs:      make(map[float64][]complex128),
	}, nil
}

// Grid returns the propagation grid, which is both input and output.
func (p *Fresnel) Grid() *grid.Grid { return p.g }

// Distance returns the propagation distance in meters.
func (p *Fresnel) Distance() float64 { return p.distance }

func (p *Fresnel) tfFor(wavelength float64) []complex128 {
	if tf, ok := p.tfs[wavelength]; ok {
		return tf
	}
	k := 2 * math.Pi / wavelength
	kg := p.fft.OutputGrid()

	tf := make([]complex128, kg.Size())
	carrier := cis(k * p.distance)
	for i := range tf {
		kx, ky := kg.At(i)
		tf[i] = carrier * cis(-(kx*kx+ky*ky)*p.distance/(2*k))
	}
	p.tfs[wavelength] = tf
	return tf
}

// Forward propagates a wavefront over the planned distance.
func (p *Fresnel) Forward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return p.apply(w, false)
}

// Backward propagates a wavefront back over the planned distance.
func (p *Fresnel) Backward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return p.apply(w, true)
}

func (p *Fresnel) apply(w *wavefront.Wavefront, conjugate bool) (*wavefront.Wavefront, error) {
	tf := p.tfFor(w.Wavelength)
	return mapComponents(w, func(e *field.Field) (*field.Field, error) {
		ft, err := p.fft.Forward(e)
		if err != nil {
			return nil, err
		}
		if conjugate {
			for i := range ft.Data {
				ft.Data[i] *= conj(tf[i])
			}
		} else {
			for i := range ft.Data {
				ft.Data[i] *= tf[i]
			}
		}
		return p.fft.Backward(ft)
	})
}

// cis returns exp(i*theta).
func cis(theta float64) complex128 {
	s, c := math.Sincos(theta)
	return complex(c, s)
}

func conj(c complex128) complex128 { return complex(real(c), -imag(c)) }
