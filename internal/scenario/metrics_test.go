package scenario

import (
	"math"
	"testing"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

func gaussianImage(t *testing.T, n int, sigma float64) *field.RealField {
	t.Helper()
	g, err := grid.NewPupilGrid(n, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	return field.RealFromFunc(g, func(x, y float64) float64 {
		return math.Exp(-(x*x + y*y) / (sigma * sigma))
	})
}

func TestStrehlOfIdenticalImagesIsOne(t *testing.T) {
	img := gaussianImage(t, 64, 0.1)
	s, err := Strehl(img, img)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s-1) > 1e-12 {
		t.Errorf("strehl = %g, want 1", s)
	}

	half := img.Copy().Scale(0.5)
	s, err = Strehl(half, img)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s-0.5) > 1e-12 {
		t.Errorf("strehl = %g, want 0.5", s)
	}
}

func TestStrehlRejectsMismatchedImages(t *testing.T) {
	a := gaussianImage(t, 32, 0.1)
	b := gaussianImage(t, 64, 0.1)
	if _, err := Strehl(a, b); err == nil {
		t.Error("expected error for mismatched image sizes")
	}
}

func TestRadialProfileOfGaussian(t *testing.T) {
	sigma := 0.2
	img := gaussianImage(t, 128, sigma)

	radii, mean, err := RadialProfile(img, 32)
	if err != nil {
		t.Fatal(err)
	}

	// The profile should track exp(-r^2/sigma^2) where the bins are well
	// inside the grid.
	for b := 1; b < 16; b++ {
		if math.IsNaN(mean[b]) {
			t.Fatalf("bin %d unexpectedly empty", b)
		}
		want := math.Exp(-radii[b] * radii[b] / (sigma * sigma))
		if math.Abs(mean[b]-want) > 0.05 {
			t.Errorf("bin %d at r=%.3f: mean %.4f, want about %.4f", b, radii[b], mean[b], want)
		}
	}
}

func TestEncircledEnergy(t *testing.T) {
	img := gaussianImage(t, 128, 0.1)

	small, err := EncircledEnergy(img, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	large, err := EncircledEnergy(img, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if small >= large {
		t.Errorf("encircled energy not monotonic: %g at r=0.05, %g at r=0.3", small, large)
	}

	all, err := EncircledEnergy(img, 10)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(all-1) > 1e-12 {
		t.Errorf("encircled energy at large radius = %g, want 1", all)
	}

	if _, err := EncircledEnergy(img, -1); err == nil {
		t.Error("expected error for negative radius")
	}
}

func TestFWHMOfGaussian(t *testing.T) {
	sigma := 0.15
	img := gaussianImage(t, 256, sigma)

	got, err := FWHM(img)
	if err != nil {
		t.Fatal(err)
	}
	want := 2 * sigma * math.Sqrt(math.Ln2)
	if math.Abs(got-want)/want > 0.05 {
		t.Errorf("fwhm = %g, want %g within 5%%", got, want)
	}
}
