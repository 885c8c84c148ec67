package dm

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/apertura-labs/apertura/internal/optics/element"
	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
)

func buildMirror(t *testing.T) (*SegmentedMirror, *field.RealField, *grid.Grid) {
	t.Helper()
	g, err := grid.NewPupilGrid(96, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	combined, segs, err := element.SegmentedAperture(g, 2, 0.15, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewSegmentedMirror(segs)
	if err != nil {
		t.Fatal(err)
	}
	return m, combined, g
}

func TestFlatMirrorHasZeroOPD(t *testing.T) {
	m, _, _ := buildMirror(t)
	opd := m.OPD()
	for i, v := range opd.Data {
		if v != 0 {
			t.Fatalf("flat mirror OPD[%d] = %g, want 0", i, v)
		}
	}
}

func TestPistonAffectsOnlyItsSegment(t *testing.T) {
	m, _, _ := buildMirror(t)
	if err := m.SetSegment(3, 1e-7, 0, 0); err != nil {
		t.Fatal(err)
	}

	opd := m.OPD()
	seg := m.segments[3].Mask
	for i, v := range opd.Data {
		if seg.Data[i] != 0 {
			if math.Abs(v-1e-7) > 1e-20 {
				t.Fatalf("inside segment: OPD[%d] = %g, want 1e-7", i, v)
			}
		} else if v != 0 {
			t.Fatalf("outside segment: OPD[%d] = %g, want 0", i, v)
		}
	}
}

func TestTipTiltIsZeroMeanOverSegment(t *testing.T) {
	m, _, g := buildMirror(t)
	if err := m.SetSegment(0, 0, 2e-6, -1e-6); err != nil {
		t.Fatal(err)
	}

	opd := m.OPD()
	seg := m.segments[0].Mask

	// A pure gradient about the segment center averages out over the
	// (symmetric) segment to near zero.
	var sum, n float64
	for i, v := range opd.Data {
		if seg.Data[i] == 0 {
			continue
		}
		sum += v
		n++
	}
	mean := sum / n
	span := 2e-6 * 0.15 // gradient times segment width
	if math.Abs(mean) > 0.02*span {
		t.Errorf("tip/tilt mean over segment = %g, want near 0 (span %g)", mean, span)
	}
	_ = g
}

func TestSetSegmentValidation(t *testing.T) {
	m, _, _ := buildMirror(t)
	if err := m.SetSegment(-1, 0, 0, 0); err == nil {
		t.Error("expected error for negative index")
	}
	if err := m.SetSegment(m.NumSegments(), 0, 0, 0); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestRandomPistonsAndFlatten(t *testing.T) {
	m, _, _ := buildMirror(t)
	rng := rand.New(rand.NewPCG(42, 42))
	m.RandomPistons(1e-7, rng)

	rms := m.PistonRMS()
	if rms < 0.3e-7 || rms > 3e-7 {
		t.Errorf("piston RMS = %g, want within a factor 3 of 1e-7", rms)
	}

	m.Flatten()
	if m.PistonRMS() != 0 {
		t.Error("Flatten did not zero pistons")
	}
	opd := m.OPD()
	for _, v := range opd.Data {
		if v != 0 {
			t.Error("Flatten left non-zero OPD")
			break
		}
	}
}

func TestMirrorForwardAppliesPhase(t *testing.T) {
	m, combined, g := buildMirror(t)
	lambda := 1e-6
	// Quarter-wave piston on every segment.
	for i := 0; i < m.NumSegments(); i++ {
		if err := m.SetSegment(i, lambda/4, 0, 0); err != nil {
			t.Fatal(err)
		}
	}

	f := combined.Complex()
	w, err := wavefront.New(f, lambda)
	if err != nil {
		t.Fatal(err)
	}

	out, err := m.Forward(w)
	if err != nil {
		t.Fatal(err)
	}

	ph, err := out.Phase()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < g.Size(); i++ {
		if combined.Data[i] == 0 {
			continue
		}
		if math.Abs(ph.Data[i]-math.Pi/2) > 1e-9 {
			t.Fatalf("phase inside aperture = %g, want pi/2", ph.Data[i])
		}
	}

	// Backward restores the input.
	back, err := m.Backward(out)
	if err != nil {
		t.Fatal(err)
	}
	phb, _ := back.Phase()
	for i := 0; i < g.Size(); i++ {
		if combined.Data[i] == 0 {
			continue
		}
		if math.Abs(phb.Data[i]) > 1e-9 {
			t.Fatalf("backward left phase %g", phb.Data[i])
		}
	}
}
