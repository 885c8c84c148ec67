package propagation

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/fourier"
	"github.com/apertura-labs/apertura/internal/optics/grid"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
)

// AngularSpectrum propagates a scalar wavefront over a finite distance
// without the paraxial approximation. In the well-sampled regime the exact
// transfer function
//
//	H(kx, ky) = exp(i kz z),  kz = sqrt(k^2 - kx^2 - ky^2)
//
// is applied in frequency space; evanescent components (kx^2 + ky^2 > k^2)
// decay. When the transfer function would alias at the grid sampling, the
// propagator instead samples the Rayleigh-Sommerfeld impulse response on an
// enlarged grid and transforms that, which stays band-limited. Both branches
// are evaluated supersampled to reduce discretization error.
type AngularSpectrum struct {
	g            *grid.Grid
	distance     float64
	oversampling int
	index        float64

	fft *fourier.FFT
	tfs map[float64][]complex128
}

// NewAngularSpectrum plans propagation over the given distance in vacuum with
// the default supersampling factor of 2.
func NewAngularSpectrum(g *grid.Grid, distance float64) (*AngularSpectrum, error) {
	return NewAngularSpectrumOversampled(g, distance, 2)
}

// NewAngularSpectrumOversampled plans propagation in vacuum with an explicit
// supersampling factor for the transfer function evaluation.
func NewAngularSpectrumOversampled(g *grid.Grid, distance float64, oversampling int) (*AngularSpectrum, error) {
	return NewAngularSpectrumInMedium(g, distance, oversampling, 1)
}

// NewAngularSpectrumInMedium plans propagation through a homogeneous medium
// with the given refractive index.
func NewAngularSpectrumInMedium(g *grid.Grid, distance float64, oversampling int, refractiveIndex float64) (*AngularSpectrum, error) {
	if oversampling < 1 {
		return nil, fmt.Errorf("oversampling factor must be at least 1, got %d", oversampling)
	}
	if refractiveIndex <= 0 {
		return nil, fmt.Errorf("refractive index must be positive, got %g", refractiveIndex)
	}
	fft, err := fourier.NewFFT(g, 2, 1)
	if err != nil {
		return nil, fmt.Errorf("planning angular spectrum transform: %w", err)
	}
	return &AngularSpectrum{
		g:            g,
		distance:     distance,
		oversampling: oversampling,
		index:        refractiveIndex,
		fft:          fft,
		tfs:          make(map[float64][]complex128),
	}, nil
}

// Grid returns the propagation grid, which is both input and output.
func (p *AngularSpectrum) Grid() *grid.Grid { return p.g }

// Distance returns the propagation distance in meters.
func (p *AngularSpectrum) Distance() float64 { return p.distance }

func (p *AngularSpectrum) tfFor(wavelength float64) ([]complex128, error) {
	if tf, ok := p.tfs[wavelength]; ok {
		return tf, nil
	}

	k := 2 * math.Pi * p.index / wavelength
	z := p.distance
	lMax := math.Max(p.g.ExtentX(), p.g.ExtentY())

	var tf []complex128
	if math.Min(p.g.Dx, p.g.Dy) < wavelength/p.index*math.Abs(z)/lMax {
		// The transfer function oscillates faster than the frequency grid
		// samples it. Sample the impulse response instead; its transform
		// is band-limited by construction.
		f, err := p.impulseResponseTransfer(k, z)
		if err != nil {
			return nil, err
		}
		tf = f
	} else {
		f, err := evaluateSupersampled(p.fft.OutputGrid(), p.oversampling, func(kx, ky float64) complex128 {
			kz := cmplx.Sqrt(complex(k*k-kx*kx-ky*ky, 0))
			return cmplx.Exp(complex(0, z) * kz)
		})
		if err != nil {
			return nil, err
		}
		tf = f.Data
	}

	p.tfs[wavelength] = tf
	return tf, nil
}

// impulseResponseTransfer samples the Rayleigh-Sommerfeld impulse response
// on a doubled, centered grid with the original sample spacing and returns
// its discrete Fourier transform. The doubled grid transforms onto exactly
// the frequency grid of the planned zero-padded FFT.
func (p *AngularSpectrum) impulseResponseTransfer(k, z float64) ([]complex128, error) {
	enlarged, err := grid.New(
		2*p.g.Nx, 2*p.g.Ny,
		p.g.Dx, p.g.Dy,
		(-float64(2*p.g.Nx)/2+0.5)*p.g.Dx,
		(-float64(2*p.g.Ny)/2+0.5)*p.g.Dy,
	)
	if err != nil {
		return nil, err
	}

	h, err := evaluateSupersampled(enlarged, p.oversampling, func(x, y float64) complex128 {
		r2 := x*x + y*y + z*z
		r := math.Sqrt(r2)
		cosTheta := z / r
		return complex(cosTheta/(2*math.Pi), 0) * cis(k*r) * (complex(1/r2, 0) - complex(0, k/r))
	})
	if err != nil {
		return nil, err
	}

	up, err := fourier.NewFFT(enlarged, 1, 1)
	if err != nil {
		return nil, err
	}
	tf, err := up.Forward(h)
	if err != nil {
		return nil, err
	}
	if !tf.Grid.Equal(p.fft.OutputGrid()) {
		return nil, fmt.Errorf("impulse response frequency grid does not match the planned transform")
	}
	return tf.Data, nil
}

// Forward propagates a wavefront over the planned distance.
func (p *AngularSpectrum) Forward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return p.apply(w, false)
}

// Backward propagates a wavefront back over the planned distance.
func (p *AngularSpectrum) Backward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return p.apply(w, true)
}

func (p *AngularSpectrum) apply(w *wavefront.Wavefront, conjugate bool) (*wavefront.Wavefront, error) {
	tf, err := p.tfFor(w.Wavelength)
	if err != nil {
		return nil, err
	}
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

// evaluateSupersampled evaluates f on a factor-times finer version of g and
// block-averages back down, suppressing aliasing of fast-varying functions.
func evaluateSupersampled(g *grid.Grid, factor int, f func(x, y float64) complex128) (*field.Field, error) {
	if factor == 1 {
		return field.FromFunc(g, f), nil
	}
	fine, err := g.Supersampled(factor)
	if err != nil {
		return nil, err
	}
	return field.Downsample(field.FromFunc(fine, f), g, factor)
}
