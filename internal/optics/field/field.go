package field

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/apertura-labs/apertura/internal/optics/grid"
)

// Field is a complex-valued sampled function on a grid. Data is indexed by
// the grid's flat row-major index.
type Field struct {
	Data []complex128
	Grid *grid.Grid
}

// New returns a zero-valued field on g.
func New(g *grid.Grid) *Field {
	return &Field{Data: make([]complex128, g.Size()), Grid: g}
}

// FromFunc evaluates f at every grid sample.
func FromFunc(g *grid.Grid, f func(x, y float64) complex128) *Field {
	out := New(g)
	for i := range out.Data {
		out.Data[i] = f(g.X(i), g.Y(i))
	}
	return out
}

// Copy returns a deep copy of the field.
func (f *Field) Copy() *Field {
	out := &Field{Data: make([]complex128, len(f.Data)), Grid: f.Grid}
	copy(out.Data, f.Data)
	return out
}

// Scale multiplies the field by a complex constant in place and returns it.
func (f *Field) Scale(c complex128) *Field {
	for i := range f.Data {
		f.Data[i] *= c
	}
	return f
}

// MulElem multiplies the field elementwise by o in place.
func (f *Field) MulElem(o *Field) error {
	if len(f.Data) != len(o.Data) {
		return fmt.Errorf("field sizes %d and %d are not compatible", len(f.Data), len(o.Data))
	}
	for i := range f.Data {
		f.Data[i] *= o.Data[i]
	}
	return nil
}

// MulReal multiplies the field elementwise by a real field in place.
func (f *Field) MulReal(o *RealField) error {
	if len(f.Data) != len(o.Data) {
		return fmt.Errorf("field sizes %d and %d are not compatible", len(f.Data), len(o.Data))
	}
	for i := range f.Data {
		f.Data[i] *= complex(o.Data[i], 0)
	}
	return nil
}

// Conj conjugates the field in place and returns it.
func (f *Field) Conj() *Field {
	for i := range f.Data {
		f.Data[i] = cmplx.Conj(f.Data[i])
	}
	return f
}

// Power returns |E|^2 per sample as a real field.
func (f *Field) Power() *RealField {
	out := NewReal(f.Grid)
	for i, v := range f.Data {
		re, im := real(v), imag(v)
		out.Data[i] = re*re + im*im
	}
	return out
}

// Phase returns the argument of the field per sample in radians.
func (f *Field) Phase() *RealField {
	out := NewReal(f.Grid)
	for i, v := range f.Data {
		out.Data[i] = cmplx.Phase(v)
	}
	return out
}

// TotalPower integrates |E|^2 over the grid.
func (f *Field) TotalPower() float64 {
	var sum float64
	for _, v := range f.Data {
		re, im := real(v), imag(v)
		sum += re*re + im*im
	}
	return sum * f.Grid.CellArea()
}

// Peak returns the flat index and value of the sample with the largest
// modulus.
func (f *Field) Peak() (int, complex128) {
	best := 0
	bestAbs := -1.0
	for i, v := range f.Data {
		a := real(v)*real(v) + imag(v)*imag(v)
		if a > bestAbs {
			bestAbs = a
			best = i
		}
	}
	return best, f.Data[best]
}

// RealField is a real-valued sampled function on a grid: aperture masks,
// intensity images, OPD maps.
type RealField struct {
	Data []float64
	Grid *grid.Grid
}

// NewReal returns a zero-valued real field on g.
func NewReal(g *grid.Grid) *RealField {
	return &RealField{Data: make([]float64, g.Size()), Grid: g}
}

// RealFromFunc evaluates f at every grid sample.
func RealFromFunc(g *grid.Grid, f func(x, y float64) float64) *RealField {
	out := NewReal(g)
	for i := range out.Data {
		out.Data[i] = f(g.X(i), g.Y(i))
	}
	return out
}

// Copy returns a deep copy of the real field.
func (f *RealField) Copy() *RealField {
	out := &RealField{Data: make([]float64, len(f.Data)), Grid: f.Grid}
	copy(out.Data, f.Data)
	return out
}

// Scale multiplies the field by a constant in place and returns it.
func (f *RealField) Scale(s float64) *RealField {
	for i := range f.Data {
		f.Data[i] *= s
	}
	return f
}

// Add adds o elementwise in place.
func (f *RealField) Add(o *RealField) error {
	if len(f.Data) != len(o.Data) {
		return fmt.Errorf("field sizes %d and %d are not compatible", len(f.Data), len(o.Data))
	}
	for i := range f.Data {
		f.Data[i] += o.Data[i]
	}
	return nil
}

// Sum returns the plain sum of all samples.
func (f *RealField) Sum() float64 {
	var s float64
	for _, v := range f.Data {
		s += v
	}
	return s
}

// Integrate returns the sum weighted by the cell area.
func (f *RealField) Integrate() float64 {
	return f.Sum() * f.Grid.CellArea()
}

// Max returns the flat index and value of the largest sample.
func (f *RealField) Max() (int, float64) {
	best := 0
	bestVal := math.Inf(-1)
	for i, v := range f.Data {
		if v > bestVal {
			bestVal = v
			best = i
		}
	}
	return best, bestVal
}

// RMS returns the root-mean-square of the samples, optionally restricted to
// samples where mask is non-zero. A nil mask uses all samples.
func (f *RealField) RMS(mask *RealField) float64 {
	var sum float64
	var n int
	for i, v := range f.Data {
		if mask != nil && mask.Data[i] == 0 {
			continue
		}
		sum += v * v
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// Complex promotes the real field to a complex field.
func (f *RealField) Complex() *Field {
	out := New(f.Grid)
	for i, v := range f.Data {
		out.Data[i] = complex(v, 0)
	}
	return out
}

// Downsample block-averages a field defined on a supersampled grid back onto
// the coarse grid it was derived from. factor must match the supersampling
// factor used to build the fine grid.
func Downsample(fine *Field, coarse *grid.Grid, factor int) (*Field, error) {
	if factor < 1 {
		return nil, fmt.Errorf("downsample factor must be at least 1, got %d", factor)
	}
	if fine.Grid.Nx != coarse.Nx*factor || fine.Grid.Ny != coarse.Ny*factor {
		return nil, fmt.Errorf("fine grid %dx%d does not supersample coarse %dx%d by %d",
			fine.Grid.Nx, fine.Grid.Ny, coarse.Nx, coarse.Ny, factor)
	}

	out := New(coarse)
	norm := complex(1/float64(factor*factor), 0)
	for iy := 0; iy < coarse.Ny; iy++ {
		for ix := 0; ix < coarse.Nx; ix++ {
			var acc complex128
			for sy := 0; sy < factor; sy++ {
				for sx := 0; sx < factor; sx++ {
					fi := (iy*factor+sy)*fine.Grid.Nx + ix*factor + sx
					acc += fine.Data[fi]
				}
			}
			out.Data[iy*coarse.Nx+ix] = acc * norm
		}
	}
	return out, nil
}
