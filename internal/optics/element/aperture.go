package element

import (
	"fmt"
	"math"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

// ApertureFunc is an indicator-style aperture generator: 1 inside, 0 outside.
type ApertureFunc func(x, y float64) float64

// Evaluate samples an aperture function on a grid.
func Evaluate(g *grid.Grid, f ApertureFunc) *field.RealField {
	return field.RealFromFunc(g, f)
}

// EvaluateSupersampled samples an aperture function on a factor-times finer
// grid and block-averages the result back onto g, producing gray-pixel
// (antialiased) edges. factor 1 is equivalent to Evaluate.
func EvaluateSupersampled(g *grid.Grid, factor int, f ApertureFunc) (*field.RealField, error) {
	if factor < 1 {
		return nil, fmt.Errorf("supersampling factor must be at least 1, got %d", factor)
	}
	if factor == 1 {
		return Evaluate(g, f), nil
	}

	fine, err := g.Supersampled(factor)
	if err != nil {
		return nil, err
	}

	out := field.NewReal(g)
	norm := 1 / float64(factor*factor)
	for iy := 0; iy < g.Ny; iy++ {
		for ix := 0; ix < g.Nx; ix++ {
			var acc float64
			for sy := 0; sy < factor; sy++ {
				for sx := 0; sx < factor; sx++ {
					fi := (iy*factor+sy)*fine.Nx + ix*factor + sx
					acc += f(fine.X(fi), fine.Y(fi))
				}
			}
			out.Data[iy*g.Nx+ix] = acc * norm
		}
	}
	return out, nil
}

// CircularAperture returns the indicator function of a centered circular
// aperture with the given diameter.
func CircularAperture(diameter float64) ApertureFunc {
	r2 := diameter * diameter / 4
	return func(x, y float64) float64 {
		if x*x+y*y <= r2 {
			return 1
		}
		return 0
	}
}

// RectangularAperture returns the indicator function of a centered
// rectangular aperture.
func RectangularAperture(width, height float64) ApertureFunc {
	return func(x, y float64) float64 {
		if math.Abs(x) <= width/2 && math.Abs(y) <= height/2 {
			return 1
		}
		return 0
	}
}

// ObstructedAperture returns a circular aperture of the given diameter with
// a central obscuration (obscurationRatio times the diameter) and numSpiders
// radial spider vanes of the given width. This is the standard on-axis
// telescope pupil.
func ObstructedAperture(diameter, obscurationRatio float64, numSpiders int, spiderWidth float64) ApertureFunc {
	outer2 := diameter * diameter / 4
	inner2 := diameter * obscurationRatio * diameter * obscurationRatio / 4

	type spider struct{ cos, sin float64 }
	spiders := make([]spider, numSpiders)
	for i := range spiders {
		theta := 2 * math.Pi * float64(i) / float64(numSpiders)
		spiders[i] = spider{math.Cos(theta), math.Sin(theta)}
	}

	return func(x, y float64) float64 {
		r2 := x*x + y*y
		if r2 > outer2 || r2 < inner2 {
			return 0
		}
		for _, s := range spiders {
			along := x*s.cos + y*s.sin
			perp := math.Abs(-x*s.sin + y*s.cos)
			if along >= 0 && perp <= spiderWidth/2 {
				return 0
			}
		}
		return 1
	}
}

// HexagonalAperture returns the indicator function of a pointy-top hexagon
// with the given flat-to-flat width, centered at (cx, cy).
func HexagonalAperture(flatToFlat, cx, cy float64) ApertureFunc {
	circum := flatToFlat / math.Sqrt(3) // circumradius of a pointy-top hexagon
	return func(x, y float64) float64 {
		px := x - cx
		py := y - cy
		if math.Abs(px) > flatToFlat/2 {
			return 0
		}
		if math.Abs(py) > circum-math.Abs(px)/math.Sqrt(3) {
			return 0
		}
		return 1
	}
}

// Segment is one segment of a segmented aperture.
type Segment struct {
	Center [2]float64
	Mask   *field.RealField
}

// SegmentedAperture evaluates a hex-packed segmented aperture with the given
// number of rings around the central segment, per-segment flat-to-flat width
// and inter-segment gap. It returns the combined mask and the individual
// segment masks in ring order (center first).
func SegmentedAperture(g *grid.Grid, rings int, flatToFlat, gap float64) (*field.RealField, []Segment, error) {
	if rings < 1 {
		return nil, nil, fmt.Errorf("segmented aperture needs at least 1 ring, got %d", rings)
	}
	if flatToFlat <= 0 {
		return nil, nil, fmt.Errorf("segment flat-to-flat must be positive, got %g", flatToFlat)
	}
	if gap < 0 || gap >= flatToFlat {
		return nil, nil, fmt.Errorf("segment gap %g out of range [0, %g)", gap, flatToFlat)
	}

	pitch := flatToFlat + gap
	centers := hexRingCenters(rings, pitch)

	combined := field.NewReal(g)
	segments := make([]Segment, 0, len(centers))
	for _, c := range centers {
		hex := HexagonalAperture(flatToFlat, c[0], c[1])
		mask := Evaluate(g, hex)
		if err := combined.Add(mask); err != nil {
			return nil, nil, err
		}
		segments = append(segments, Segment{Center: c, Mask: mask})
	}

	// Segments never overlap, so the combined mask stays an indicator.
	return combined, segments, nil
}

// hexRingCenters returns hexagonal-packing centers for the central segment
// plus `rings` concentric rings, using axial coordinates.
func hexRingCenters(rings int, pitch float64) [][2]float64 {
	toXY := func(q, r int) [2]float64 {
		return [2]float64{
			pitch * (float64(q) + float64(r)/2),
			pitch * math.Sqrt(3) / 2 * float64(r),
		}
	}

	centers := [][2]float64{toXY(0, 0)}

	// Axial direction vectors around a ring.
	dirs := [6][2]int{{1, 0}, {0, 1}, {-1, 1}, {-1, 0}, {0, -1}, {1, -1}}
	for k := 1; k <= rings; k++ {
		// Ring walk: start at dirs[4]*k and take k steps in each direction.
		q, r := 0, -k
		for side := 0; side < 6; side++ {
			for step := 0; step < k; step++ {
				centers = append(centers, toXY(q, r))
				q += dirs[side][0]
				r += dirs[side][1]
			}
		}
	}
	return centers
}
