package fourier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

// FFT is a planned fast Fourier transform between a regular spatial grid and
// its conjugate frequency grid. The input is zero padded by the integer
// factor q before transforming, and the output is cropped to the fraction
// fov of the full frequency range. Offsets between grid coordinates and
// array indices are absorbed into precomputed phase ramps, so no explicit
// fftshift is needed.
type FFT struct {
	in  *grid.Grid
	out *grid.Grid

	padNx, padNy int
	offX, offY   int // crop offset of the output grid in the full padded array

	planX *fourier.CmplxFFT
	planY *fourier.CmplxFFT

	// preX[j] = exp(-i K0x j dx), postX[u] = exp(-i k_u X0); same for y.
	preX, preY   []complex128
	postX, postY []complex128
}

// NewFFT plans a transform from g with padding factor q and output crop fov.
func NewFFT(g *grid.Grid, q int, fov float64) (*FFT, error) {
	out, err := grid.NewFFTGrid(g, q, fov)
	if err != nil {
		return nil, err
	}

	f := &FFT{
		in:    g,
		out:   out,
		padNx: g.Nx * q,
		padNy: g.Ny * q,
	}
	f.planX = fourier.NewCmplxFFT(f.padNx)
	f.planY = fourier.NewCmplxFFT(f.padNy)
	f.offX = f.padNx/2 - out.Nx/2
	f.offY = f.padNy/2 - out.Ny/2

	k0x := -float64(f.padNx/2) * out.Dx
	k0y := -float64(f.padNy/2) * out.Dy

	f.preX = phaseRamp(f.padNx, -k0x*g.Dx)
	f.preY = phaseRamp(f.padNy, -k0y*g.Dy)

	f.postX = make([]complex128, out.Nx)
	for u := 0; u < out.Nx; u++ {
		k := out.X0 + float64(u)*out.Dx
		f.postX[u] = cis(-k * g.X0)
	}
	f.postY = make([]complex128, out.Ny)
	for v := 0; v < out.Ny; v++ {
		k := out.Y0 + float64(v)*out.Dy
		f.postY[v] = cis(-k * g.Y0)
	}

	return f, nil
}

// cis returns exp(i*theta).
func cis(theta float64) complex128 {
	s, c := math.Sincos(theta)
	return complex(c, s)
}

// phaseRamp returns exp(i*j*step) for j = 0..n-1.
func phaseRamp(n int, step float64) []complex128 {
	out := make([]complex128, n)
	for j := range out {
		out[j] = cis(float64(j) * step)
	}
	return out
}

// OutputGrid returns the conjugate frequency grid of the transform.
func (f *FFT) OutputGrid() *grid.Grid { return f.out }

// InputGrid returns the spatial grid of the transform.
func (f *FFT) InputGrid() *grid.Grid { return f.in }

// Forward transforms a spatial field onto the frequency grid.
func (f *FFT) Forward(e *field.Field) (*field.Field, error) {
	if !e.Grid.Equal(f.in) {
		return nil, fmt.Errorf("field grid does not match the planned input grid")
	}

	buf := make([]complex128, f.padNx*f.padNy)
	for iy := 0; iy < f.in.Ny; iy++ {
		py := f.preY[iy]
		for ix := 0; ix < f.in.Nx; ix++ {
			buf[iy*f.padNx+ix] = e.Data[iy*f.in.Nx+ix] * f.preX[ix] * py
		}
	}

	f.dft2(buf, true)

	out := field.New(f.out)
	area := complex(f.in.CellArea(), 0)
	for v := 0; v < f.out.Ny; v++ {
		for u := 0; u < f.out.Nx; u++ {
			src := (v+f.offY)*f.padNx + (u + f.offX)
			out.Data[v*f.out.Nx+u] = buf[src] * f.postX[u] * f.postY[v] * area
		}
	}
	return out, nil
}

// Backward transforms a frequency-grid field back onto the spatial grid.
// If the forward output was cropped (fov < 1) the reconstruction is
// band-limited to the kept frequencies.
func (f *FFT) Backward(e *field.Field) (*field.Field, error) {
	if !e.Grid.Equal(f.out) {
		return nil, fmt.Errorf("field grid does not match the planned frequency grid")
	}

	buf := make([]complex128, f.padNx*f.padNy)
	for v := 0; v < f.out.Ny; v++ {
		for u := 0; u < f.out.Nx; u++ {
			// Undo the forward post phases by conjugation.
			w := e.Data[v*f.out.Nx+u] * conj(f.postX[u]) * conj(f.postY[v])
			buf[(v+f.offY)*f.padNx+(u+f.offX)] = w
		}
	}

	f.dft2(buf, false)

	out := field.New(f.in)
	norm := complex(f.out.Dx*f.out.Dy/(4*math.Pi*math.Pi), 0)
	for iy := 0; iy < f.in.Ny; iy++ {
		py := conj(f.preY[iy])
		for ix := 0; ix < f.in.Nx; ix++ {
			out.Data[iy*f.in.Nx+ix] = buf[iy*f.padNx+ix] * conj(f.preX[ix]) * py * norm
		}
	}
	return out, nil
}

func conj(c complex128) complex128 { return complex(real(c), -imag(c)) }

// dft2 applies the row and column transforms in place on a padNy x padNx
// buffer. forward selects the DFT direction; neither direction normalizes.
func (f *FFT) dft2(buf []complex128, forward bool) {
	row := make([]complex128, f.padNx)
	for iy := 0; iy < f.padNy; iy++ {
		src := buf[iy*f.padNx : (iy+1)*f.padNx]
		if forward {
			f.planX.Coefficients(row, src)
		} else {
			f.planX.Sequence(row, src)
		}
		copy(src, row)
	}

	col := make([]complex128, f.padNy)
	res := make([]complex128, f.padNy)
	for ix := 0; ix < f.padNx; ix++ {
		for iy := 0; iy < f.padNy; iy++ {
			col[iy] = buf[iy*f.padNx+ix]
		}
		if forward {
			f.planY.Coefficients(res, col)
		} else {
			f.planY.Sequence(res, col)
		}
		for iy := 0; iy < f.padNy; iy++ {
			buf[iy*f.padNx+ix] = res[iy]
		}
	}
}
