package fourier

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

func randomField(t *testing.T, g *grid.Grid, seed uint64) *field.Field {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	f := field.New(g)
	for i := range f.Data {
		f.Data[i] = complex(rng.Float64()-0.5, rng.Float64()-0.5)
	}
	return f
}

func maxFieldDiff(a, b *field.Field) float64 {
	var worst float64
	for i := range a.Data {
		if d := cmplx.Abs(a.Data[i] - b.Data[i]); d > worst {
			worst = d
		}
	}
	return worst
}

func TestFFTMatchesNaive(t *testing.T) {
	for _, q := range []int{1, 2} {
		g, err := grid.NewPupilGrid(8, 1.0)
		if err != nil {
			t.Fatal(err)
		}
		fft, err := NewFFT(g, q, 1.0)
		if err != nil {
			t.Fatal(err)
		}
		naive := NewNaive(g, fft.OutputGrid())

		in := randomField(t, g, 7)
		fast, err := fft.Forward(in)
		if err != nil {
			t.Fatal(err)
		}
		ref, err := naive.Forward(in)
		if err != nil {
			t.Fatal(err)
		}

		if d := maxFieldDiff(fast, ref); d > 1e-10 {
			t.Errorf("q=%d: FFT deviates from naive DFT by %g", q, d)
		}
	}
}

func TestFFTRoundTrip(t *testing.T) {
	g, _ := grid.NewPupilGrid(16, 2.0)
	fft, err := NewFFT(g, 2, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	in := randomField(t, g, 11)
	fwd, err := fft.Forward(in)
	if err != nil {
		t.Fatal(err)
	}
	back, err := fft.Backward(fwd)
	if err != nil {
		t.Fatal(err)
	}

	if d := maxFieldDiff(in, back); d > 1e-10 {
		t.Errorf("FFT round trip error %g", d)
	}
}

func TestFFTParsevalEnergy(t *testing.T) {
	g, _ := grid.NewPupilGrid(16, 1.0)
	fft, _ := NewFFT(g, 1, 1.0)

	in := randomField(t, g, 3)
	fwd, err := fft.Forward(in)
	if err != nil {
		t.Fatal(err)
	}

	// With our convention, integral |E|^2 dA = integral |F|^2 dK / (2pi)^2.
	spatial := in.TotalPower()
	freq := fwd.TotalPower() / (4 * math.Pi * math.Pi)
	if math.Abs(spatial-freq) > 1e-10*spatial {
		t.Errorf("Parseval violated: spatial %g vs frequency %g", spatial, freq)
	}
}

func TestFFTRejectsWrongGrid(t *testing.T) {
	g, _ := grid.NewPupilGrid(8, 1.0)
	other, _ := grid.NewPupilGrid(16, 1.0)
	fft, _ := NewFFT(g, 1, 1.0)

	if _, err := fft.Forward(field.New(other)); err == nil {
		t.Error("expected grid mismatch error on Forward")
	}
	if _, err := fft.Backward(field.New(other)); err == nil {
		t.Error("expected grid mismatch error on Backward")
	}
}

func TestMFTMatchesNaive(t *testing.T) {
	g, _ := grid.NewPupilGrid(8, 1.0)
	// An output grid the FFT could not produce directly: odd size, fine sampling.
	out, err := grid.NewFocalGrid(3, 4, 2*math.Pi/g.ExtentX())
	if err != nil {
		t.Fatal(err)
	}

	mft, err := NewMFT(g, out)
	if err != nil {
		t.Fatal(err)
	}
	naive := NewNaive(g, out)

	in := randomField(t, g, 19)
	fast, err := mft.Forward(in)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := naive.Forward(in)
	if err != nil {
		t.Fatal(err)
	}

	if d := maxFieldDiff(fast, ref); d > 1e-10 {
		t.Errorf("MFT deviates from naive DFT by %g", d)
	}
}

func TestMFTBackwardMatchesNaive(t *testing.T) {
	g, _ := grid.NewPupilGrid(6, 1.0)
	out, _ := grid.NewFFTGrid(g, 1, 1.0)

	mft, _ := NewMFT(g, out)
	naive := NewNaive(g, out)

	in := randomField(t, out, 23)
	fast, err := mft.Backward(in)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := naive.Backward(in)
	if err != nil {
		t.Fatal(err)
	}

	if d := maxFieldDiff(fast, ref); d > 1e-10 {
		t.Errorf("MFT backward deviates from naive by %g", d)
	}
}

func TestMFTRoundTripOnConjugateGrid(t *testing.T) {
	g, _ := grid.NewPupilGrid(8, 1.0)
	out, _ := grid.NewFFTGrid(g, 1, 1.0)
	mft, _ := NewMFT(g, out)

	in := randomField(t, g, 29)
	fwd, err := mft.Forward(in)
	if err != nil {
		t.Fatal(err)
	}
	back, err := mft.Backward(fwd)
	if err != nil {
		t.Fatal(err)
	}

	if d := maxFieldDiff(in, back); d > 1e-9 {
		t.Errorf("MFT round trip error %g", d)
	}
}

func TestNaiveTransformationMatrixAgreesWithForward(t *testing.T) {
	g, _ := grid.NewPupilGrid(4, 1.0)
	out, _ := grid.NewFFTGrid(g, 1, 1.0)
	naive := NewNaive(g, out)

	in := randomField(t, g, 31)
	direct, err := naive.Forward(in)
	if err != nil {
		t.Fatal(err)
	}

	tm := naive.TransformationMatrix()
	for u := 0; u < out.Size(); u++ {
		var acc complex128
		for j := 0; j < g.Size(); j++ {
			acc += tm.At(u, j) * in.Data[j]
		}
		if cmplx.Abs(acc-direct.Data[u]) > 1e-10 {
			t.Fatalf("matrix row %d disagrees with Forward: %v vs %v", u, acc, direct.Data[u])
		}
	}
}

func TestFFTDeltaFunctionIsFlat(t *testing.T) {
	// A delta at the origin transforms to a constant of modulus dA.
	g, _ := grid.NewPupilGrid(9, 1.0) // odd so the origin is a sample
	fft, _ := NewFFT(g, 1, 1.0)

	in := field.New(g)
	center := g.Index(g.Nx/2, g.Ny/2)
	if x, y := g.At(center); math.Abs(x) > 1e-12 || math.Abs(y) > 1e-12 {
		t.Fatalf("center sample not at origin: (%g, %g)", x, y)
	}
	in.Data[center] = 1

	fwd, err := fft.Forward(in)
	if err != nil {
		t.Fatal(err)
	}

	want := g.CellArea()
	for i, v := range fwd.Data {
		if math.Abs(cmplx.Abs(v)-want) > 1e-12 {
			t.Fatalf("sample %d: |F| = %g, want %g", i, cmplx.Abs(v), want)
		}
		// Delta at origin: transform should be purely real and positive.
		if math.Abs(imag(v)) > 1e-12 || real(v) < 0 {
			t.Fatalf("sample %d: F = %v, want positive real", i, v)
		}
	}
}
