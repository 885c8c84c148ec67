package grid

import (
	"math"
	"testing"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 4, 1, 1, 0, 0); err == nil {
		t.Error("expected error for zero nx")
	}
	if _, err := New(4, 4, -1, 1, 0, 0); err == nil {
		t.Error("expected error for negative dx")
	}
	if _, err := New(4, 4, 1, 1, 0, 0); err != nil {
		t.Errorf("unexpected error for valid grid: %v", err)
	}
}

func TestCenteredGridIsSymmetric(t *testing.T) {
	g, err := NewCentered(4, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	if g.Dx != 0.5 {
		t.Errorf("Dx = %g, want 0.5", g.Dx)
	}
	// First and last samples must be mirror images.
	if got, want := g.X(0), -0.75; math.Abs(got-want) > 1e-15 {
		t.Errorf("X(0) = %g, want %g", got, want)
	}
	if got, want := g.X(3), 0.75; math.Abs(got-want) > 1e-15 {
		t.Errorf("X(3) = %g, want %g", got, want)
	}

	// Sum of all coordinates of a symmetric grid is zero.
	var sx, sy float64
	for i := 0; i < g.Size(); i++ {
		sx += g.X(i)
		sy += g.Y(i)
	}
	if math.Abs(sx) > 1e-12 || math.Abs(sy) > 1e-12 {
		t.Errorf("centered grid not symmetric: sum x=%g, sum y=%g", sx, sy)
	}
}

func TestRowMajorIndexing(t *testing.T) {
	g, err := New(3, 2, 1.0, 1.0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Index(2, 1); got != 5 {
		t.Errorf("Index(2,1) = %d, want 5", got)
	}
	if x, y := g.At(5); x != 2.0 || y != 1.0 {
		t.Errorf("At(5) = (%g, %g), want (2, 1)", x, y)
	}
}

func TestPolarView(t *testing.T) {
	g, err := New(1, 1, 1, 1, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.R(0); math.Abs(got-5) > 1e-15 {
		t.Errorf("R = %g, want 5", got)
	}
	if got := g.Theta(0); math.Abs(got-math.Atan2(4, 3)) > 1e-15 {
		t.Errorf("Theta = %g, want %g", got, math.Atan2(4, 3))
	}
}

func TestFFTGridSampling(t *testing.T) {
	g, err := NewPupilGrid(8, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	k, err := NewFFTGrid(g, 2, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	if k.Nx != 16 || k.Ny != 16 {
		t.Fatalf("fft grid dims = %dx%d, want 16x16", k.Nx, k.Ny)
	}
	wantDk := 2 * math.Pi / (16 * g.Dx)
	if math.Abs(k.Dx-wantDk) > 1e-12 {
		t.Errorf("fft grid Dx = %g, want %g", k.Dx, wantDk)
	}

	// Zero frequency must be on the grid.
	onGrid := false
	for i := 0; i < k.Size(); i++ {
		x, y := k.At(i)
		if math.Abs(x) < 1e-12 && math.Abs(y) < 1e-12 {
			onGrid = true
			break
		}
	}
	if !onGrid {
		t.Error("zero frequency not on fft grid")
	}
}

func TestFFTGridCrop(t *testing.T) {
	g, _ := NewPupilGrid(8, 1.0)
	k, err := NewFFTGrid(g, 2, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if k.Nx != 8 {
		t.Errorf("cropped fft grid Nx = %d, want 8", k.Nx)
	}
	// Crop must preserve delta.
	full, _ := NewFFTGrid(g, 2, 1.0)
	if math.Abs(k.Dx-full.Dx) > 1e-15 {
		t.Errorf("crop changed Dx: %g vs %g", k.Dx, full.Dx)
	}
}

func TestFocalGridHasCenterSample(t *testing.T) {
	res := 1e-5 // lambda*f/D
	g, err := NewFocalGrid(4, 8, res)
	if err != nil {
		t.Fatal(err)
	}
	if g.Nx%2 != 1 {
		t.Fatalf("focal grid size %d not odd", g.Nx)
	}
	center := g.Index(g.Nx/2, g.Ny/2)
	x, y := g.At(center)
	if math.Abs(x) > 1e-18 || math.Abs(y) > 1e-18 {
		t.Errorf("center sample at (%g, %g), want origin", x, y)
	}
	if math.Abs(g.Dx-res/4) > 1e-20 {
		t.Errorf("focal grid Dx = %g, want %g", g.Dx, res/4)
	}
}

func TestSupersampled(t *testing.T) {
	g, _ := NewCentered(4, 2.0)
	s, err := g.Supersampled(2)
	if err != nil {
		t.Fatal(err)
	}
	if s.Nx != 8 || s.Dx != g.Dx/2 {
		t.Errorf("supersampled dims/delta wrong: Nx=%d Dx=%g", s.Nx, s.Dx)
	}
	// Extent must be unchanged.
	if math.Abs(s.ExtentX()-g.ExtentX()) > 1e-15 {
		t.Errorf("supersampling changed extent: %g vs %g", s.ExtentX(), g.ExtentX())
	}
	// Mean of the two fine samples inside a coarse cell equals the coarse sample.
	want := g.X(0)
	got := (s.X(0) + s.X(1)) / 2
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("fine samples not centered in coarse cell: %g vs %g", got, want)
	}
}

func TestScaled(t *testing.T) {
	g, _ := NewCentered(4, 2.0)
	s := g.Scaled(3.0)
	if s.Dx != g.Dx*3 || s.X0 != g.X0*3 {
		t.Errorf("Scaled: Dx=%g X0=%g", s.Dx, s.X0)
	}
	if !s.SameShape(g) {
		t.Error("Scaled changed shape")
	}
}
