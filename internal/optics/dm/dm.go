// Package dm owns the segmented deformable mirror: per-segment piston, tip
// and tilt actuation over a hex-packed segmented aperture.
// Key types: SegmentedMirror.
//
// Dependency rule: dm may depend on grid, field, wavefront and element only.
package dm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/apertura-labs/apertura/internal/optics/element"
	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
)

// SegmentedMirror actuates the segments of a segmented aperture in piston,
// tip and tilt. Actuator values are expressed directly as optical path
// difference in meters (piston) and OPD gradient in meters per meter (tip
// along x, tilt along y), so the mirror geometry factor of two is the
// caller's concern.
type SegmentedMirror struct {
	segments []element.Segment

	piston []float64
	tip    []float64
	tilt   []float64

	opd   *field.RealField
	dirty bool
}

// NewSegmentedMirror builds a mirror over the given segments, initially flat.
func NewSegmentedMirror(segments []element.Segment) (*SegmentedMirror, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("segmented mirror needs at least one segment")
	}
	n := len(segments)
	return &SegmentedMirror{
		segments: segments,
		piston:   make([]float64, n),
		tip:      make([]float64, n),
		tilt:     make([]float64, n),
		dirty:    true,
	}, nil
}

// NumSegments returns the number of actuated segments.
func (m *SegmentedMirror) NumSegments() int { return len(m.segments) }

// SetSegment sets the piston, tip and tilt of segment i.
func (m *SegmentedMirror) SetSegment(i int, piston, tip, tilt float64) error {
	if i < 0 || i >= len(m.segments) {
		return fmt.Errorf("segment index %d out of range [0, %d)", i, len(m.segments))
	}
	m.piston[i] = piston
	m.tip[i] = tip
	m.tilt[i] = tilt
	m.dirty = true
	return nil
}

// Segment returns the current piston, tip and tilt of segment i.
func (m *SegmentedMirror) Segment(i int) (piston, tip, tilt float64, err error) {
	if i < 0 || i >= len(m.segments) {
		return 0, 0, 0, fmt.Errorf("segment index %d out of range [0, %d)", i, len(m.segments))
	}
	return m.piston[i], m.tip[i], m.tilt[i], nil
}

// Flatten zeroes all actuators.
func (m *SegmentedMirror) Flatten() {
	for i := range m.piston {
		m.piston[i] = 0
		m.tip[i] = 0
		m.tilt[i] = 0
	}
	m.dirty = true
}

// RandomPistons draws independent Gaussian piston errors with the given RMS
// for every segment. Tip and tilt are left unchanged.
func (m *SegmentedMirror) RandomPistons(rms float64, rng *rand.Rand) {
	for i := range m.piston {
		m.piston[i] = rng.NormFloat64() * rms
	}
	m.dirty = true
}

// OPD returns the optical path difference map of the current actuator state.
// The returned field is owned by the mirror; copy it before mutating.
func (m *SegmentedMirror) OPD() *field.RealField {
	if !m.dirty && m.opd != nil {
		return m.opd
	}

	g := m.segments[0].Mask.Grid
	opd := field.NewReal(g)
	for si, seg := range m.segments {
		p, tx, ty := m.piston[si], m.tip[si], m.tilt[si]
		if p == 0 && tx == 0 && ty == 0 {
			continue
		}
		cx, cy := seg.Center[0], seg.Center[1]
		for i, inSeg := range seg.Mask.Data {
			if inSeg == 0 {
				continue
			}
			x, y := g.At(i)
			opd.Data[i] += inSeg * (p + tx*(x-cx) + ty*(y-cy))
		}
	}

	m.opd = opd
	m.dirty = false
	return opd
}

// PistonRMS returns the RMS of the current piston values.
func (m *SegmentedMirror) PistonRMS() float64 {
	var sum float64
	for _, p := range m.piston {
		sum += p * p
	}
	return math.Sqrt(sum / float64(len(m.piston)))
}

// Forward applies the mirror's phase to a wavefront.
func (m *SegmentedMirror) Forward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return element.NewPhaseScreen(m.OPD()).Forward(w)
}

// Backward removes the mirror's phase from a wavefront.
func (m *SegmentedMirror) Backward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return element.NewPhaseScreen(m.OPD()).Backward(w)
}
