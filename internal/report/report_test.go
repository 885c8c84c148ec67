package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/plot/plotter"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

func testField(t *testing.T) *field.RealField {
	t.Helper()
	g, err := grid.NewPupilGrid(32, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	return field.RealFromFunc(g, func(x, y float64) float64 {
		return math.Exp(-(x*x + y*y) / 0.05)
	})
}

func assertNonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("output file %s is empty", path)
	}
}

func TestMakeOutputDirLayout(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2026, 8, 24, 17, 31, 29, 0, time.UTC)

	dir, err := MakeOutputDir(base, "psf", now)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(base, "psf", "20260824_173129")
	if dir != want {
		t.Errorf("dir = %s, want %s", dir, want)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestSaveHeatmapWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")
	if err := SaveHeatmap(testField(t), "intensity", path); err != nil {
		t.Fatal(err)
	}
	assertNonEmptyFile(t, path)
}

func TestSaveHeatmapLogWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psf.png")
	if err := SaveHeatmapLog(testField(t), "psf", path, 5); err != nil {
		t.Fatal(err)
	}
	assertNonEmptyFile(t, path)

	if err := SaveHeatmapLog(testField(t), "psf", path, 0); err == nil {
		t.Error("expected error for non-positive decades")
	}
}

func TestLogStretchClipsFloor(t *testing.T) {
	f := testField(t)
	f.Data[0] = 0 // corner is far below the floor

	g := newFieldGridXYZ(f, true, 4)
	if z := g.Z(0, 0); z != -4 {
		t.Errorf("zero sample stretched to %g, want clip at -4", z)
	}

	// Peak maps to zero.
	ci, cr := f.Grid.Nx/2, f.Grid.Ny/2
	if z := g.Z(ci, cr); math.Abs(z) > 0.05 {
		t.Errorf("peak stretched to %g, want about 0", z)
	}
}

func TestSaveLinePlots(t *testing.T) {
	dir := t.TempDir()
	pts := make(plotter.XYs, 20)
	for i := range pts {
		pts[i] = plotter.XY{X: float64(i), Y: math.Exp(-float64(i) / 5)}
	}

	lin := filepath.Join(dir, "profile.png")
	if err := SaveLinePlot("profile", "r", "I", lin, LineSeries{Name: "on-axis", Points: pts}); err != nil {
		t.Fatal(err)
	}
	assertNonEmptyFile(t, lin)

	logp := filepath.Join(dir, "profile_log.png")
	if err := SaveLogLinePlot("profile", "r", "I", logp, LineSeries{Name: "on-axis", Points: pts}); err != nil {
		t.Fatal(err)
	}
	assertNonEmptyFile(t, logp)

	if err := SaveLinePlot("empty", "x", "y", filepath.Join(dir, "none.png")); err == nil {
		t.Error("expected error for no series")
	}
}

func TestWriteScatterHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.html")
	points := []ScatterPoint{{X: 1, Y: 0.9, V: 1}, {X: 2, Y: 0.7, V: 2}, {X: 3, Y: 0.5, V: 3}}

	if err := WriteScatterHTML(path, "strehl", "per frame", "frame", "strehl", points); err != nil {
		t.Fatal(err)
	}
	assertNonEmptyFile(t, path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "strehl") {
		t.Error("chart title missing from HTML output")
	}

	if err := WriteScatterHTML(path, "t", "", "x", "y", nil); err == nil {
		t.Error("expected error for empty points")
	}
}

func TestWriteLineHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modulation.html")
	x := []float64{0, 22.5, 45, 67.5}
	series := MetricSeries{Name: "intensity", Values: []float64{1, 0.5, 0, 0.5}}

	if err := WriteLineHTML(path, "modulation", "hwp sweep", "angle", "I", x, series); err != nil {
		t.Fatal(err)
	}
	assertNonEmptyFile(t, path)

	bad := MetricSeries{Name: "short", Values: []float64{1}}
	if err := WriteLineHTML(path, "t", "", "x", "y", x, bad); err == nil {
		t.Error("expected error for length mismatch")
	}
}
