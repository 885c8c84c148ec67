package wavefront

import (
	"math"
	"testing"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

func flatField(t *testing.T, n int) *field.Field {
	t.Helper()
	g, err := grid.NewPupilGrid(n, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	f := field.New(g)
	for i := range f.Data {
		f.Data[i] = 1
	}
	return f
}

func TestNewRejectsBadWavelength(t *testing.T) {
	f := flatField(t, 4)
	if _, err := New(f, 0); err == nil {
		t.Error("expected error for zero wavelength")
	}
	if _, err := New(f, -1e-6); err == nil {
		t.Error("expected error for negative wavelength")
	}
}

func TestWavenumber(t *testing.T) {
	w, err := New(flatField(t, 4), 500e-9)
	if err != nil {
		t.Fatal(err)
	}
	want := 2 * math.Pi / 500e-9
	if got := w.Wavenumber(); math.Abs(got-want) > 1e-3 {
		t.Errorf("Wavenumber = %g, want %g", got, want)
	}
}

func TestNormalizeTotalPower(t *testing.T) {
	w, _ := New(flatField(t, 8), 1e-6)
	if err := w.NormalizeTotalPower(2.5); err != nil {
		t.Fatal(err)
	}
	if got := w.TotalPower(); math.Abs(got-2.5) > 1e-12 {
		t.Errorf("TotalPower after normalize = %g, want 2.5", got)
	}

	if err := w.NormalizeTotalPower(-1); err == nil {
		t.Error("expected error for negative target power")
	}
}

func TestPolarizedStokesRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		stokes [4]float64
	}{
		{"horizontal", [4]float64{1, 1, 0, 0}},
		{"vertical", [4]float64{1, -1, 0, 0}},
		{"diagonal", [4]float64{1, 0, 1, 0}},
		{"circular", [4]float64{1, 0, 0, 1}},
		{"elliptical", [4]float64{2, 2 * 0.6, 2 * 0.48, 2 * 0.64}},
	}

	amp := flatField(t, 4)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := NewPolarized(amp, 1e-6, tc.stokes)
			if err != nil {
				t.Fatal(err)
			}
			s := w.Stokes()

			// Normalize to the per-sample I of the generated wavefront.
			scale := tc.stokes[0]
			for k := 0; k < 4; k++ {
				got := s[k].Data[0]
				want := tc.stokes[k] / scale // amplitude 1 per sample gives I=1
				if math.Abs(got-want) > 1e-9 {
					t.Errorf("Stokes[%d] = %g, want %g", k, got, want)
				}
			}
		})
	}
}

func TestPolarizedRejectsPartialPolarization(t *testing.T) {
	amp := flatField(t, 4)
	if _, err := NewPolarized(amp, 1e-6, [4]float64{1, 0.5, 0, 0}); err == nil {
		t.Error("expected rejection of partially polarized Stokes vector")
	}
	if _, err := NewPolarized(amp, 1e-6, [4]float64{0, 0, 0, 0}); err == nil {
		t.Error("expected rejection of zero-intensity Stokes vector")
	}
}

func TestScalarStokesIsHorizontal(t *testing.T) {
	w, _ := New(flatField(t, 2), 1e-6)
	s := w.Stokes()
	if s[0].Data[0] != 1 || s[1].Data[0] != 1 || s[2].Data[0] != 0 || s[3].Data[0] != 0 {
		t.Errorf("scalar wavefront Stokes = (%g, %g, %g, %g), want (1, 1, 0, 0)",
			s[0].Data[0], s[1].Data[0], s[2].Data[0], s[3].Data[0])
	}
}

func TestApplyPhase(t *testing.T) {
	w, _ := New(flatField(t, 2), 1e-6)
	ph := field.NewReal(w.Grid())
	ph.Data[0] = math.Pi / 2

	if err := w.ApplyPhase(ph); err != nil {
		t.Fatal(err)
	}
	if math.Abs(real(w.E.Data[0])) > 1e-12 || math.Abs(imag(w.E.Data[0])-1) > 1e-12 {
		t.Errorf("phase pi/2 gave %v, want i", w.E.Data[0])
	}
	if w.E.Data[1] != 1 {
		t.Errorf("untouched sample changed: %v", w.E.Data[1])
	}

	// Phase must not change the power.
	if got := w.Power().Data[0]; math.Abs(got-1) > 1e-12 {
		t.Errorf("power after phase = %g, want 1", got)
	}
}

func TestCopyIsDeep(t *testing.T) {
	w, _ := New(flatField(t, 2), 1e-6)
	c := w.Copy()
	c.E.Data[0] = 42
	if w.E.Data[0] == 42 {
		t.Error("Copy shares field storage with the original")
	}

	vw, _ := NewPolarized(flatField(t, 2), 1e-6, [4]float64{1, 1, 0, 0})
	vc := vw.Copy()
	vc.EV.X.Data[0] = 42
	if vw.EV.X.Data[0] == 42 {
		t.Error("vector Copy shares field storage with the original")
	}
}

func TestPhaseOfVectorWavefrontErrors(t *testing.T) {
	vw, _ := NewPolarized(flatField(t, 2), 1e-6, [4]float64{1, 1, 0, 0})
	if _, err := vw.Phase(); err == nil {
		t.Error("expected error for Phase() of a vector wavefront")
	}
}
