package scenario

import (
	"context"
	"os"
	"sort"
	"testing"

	"github.com/apertura-labs/apertura/internal/config"
	"github.com/apertura-labs/apertura/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.Mute()
	os.Exit(m.Run())
}

// testConfig keeps the scenario runs small enough for the test suite.
func testConfig() *config.Config {
	intp := func(v int) *int { return &v }
	f64p := func(v float64) *float64 { return &v }
	i64p := func(v int64) *int64 { return &v }
	boolp := func(v bool) *bool { return &v }

	return &config.Config{
		GridSize:     intp(64),
		FocalQ:       f64p(2),
		NumAiry:      f64p(8),
		Frames:       intp(2),
		SegmentRings: intp(2),
		PhotonNoise:  boolp(false),
		Seed:         i64p(42),
	}
}

func TestRegistryNamesAndLookup(t *testing.T) {
	names := Names()
	if !sort.StringsAreSorted(names) {
		t.Errorf("names not sorted: %v", names)
	}
	for _, want := range []string{"angular", "polarimeter", "psf", "segdm"} {
		s, err := Lookup(want)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", want, err)
		}
		if s.Name() != want {
			t.Errorf("Lookup(%q).Name() = %q", want, s.Name())
		}
		if s.Describe() == "" {
			t.Errorf("scenario %q has no description", want)
		}
	}

	if _, err := Lookup("nope"); err == nil {
		t.Error("expected error for unknown scenario")
	}

	if got := len(All()); got != len(names) {
		t.Errorf("All() returned %d scenarios, want %d", got, len(names))
	}
}

func TestScenariosRunEndToEnd(t *testing.T) {
	cfg := testConfig()
	for _, s := range All() {
		s := s
		t.Run(s.Name(), func(t *testing.T) {
			dir := t.TempDir()
			res, err := s.Run(context.Background(), cfg, dir)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if res.Scenario != s.Name() {
				t.Errorf("result scenario = %q, want %q", res.Scenario, s.Name())
			}
			if len(res.Metrics) == 0 {
				t.Error("run produced no metrics")
			}
			if len(res.Artifacts) == 0 {
				t.Error("run produced no artifacts")
			}
			for _, path := range res.Artifacts {
				info, err := os.Stat(path)
				if err != nil {
					t.Errorf("artifact missing: %v", err)
					continue
				}
				if info.Size() == 0 {
					t.Errorf("artifact %s is empty", path)
				}
			}
		})
	}
}

func TestPSFScenarioMetrics(t *testing.T) {
	s, err := Lookup("psf")
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(context.Background(), testConfig(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	strehl := res.Metrics["strehl"]
	if strehl <= 0 || strehl > 1.0001 {
		t.Errorf("strehl = %g, want in (0, 1]", strehl)
	}
	// 0.1 waves rms of aberration must cost a visible amount of Strehl.
	if strehl > 0.95 {
		t.Errorf("strehl = %g, expected clear degradation from injected aberration", strehl)
	}
	if fwhm := res.Metrics["fwhm_ideal_ld"]; fwhm < 0.5 || fwhm > 2.5 {
		t.Errorf("fwhm = %g lambda f/D, want about 1", fwhm)
	}
}

func TestPolarimeterRecoversStokes(t *testing.T) {
	s, err := Lookup("polarimeter")
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(context.Background(), testConfig(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if e := res.Metrics["stokes_max_error"]; e > 1e-6 {
		t.Errorf("stokes recovery error = %g, want below 1e-6", e)
	}
	if dop := res.Metrics["dop_out"]; dop < 0.999 || dop > 1.001 {
		t.Errorf("degree of polarization = %g, want 1", dop)
	}
}

func TestSegdmScenarioDegradesStrehl(t *testing.T) {
	s, err := Lookup("segdm")
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(context.Background(), testConfig(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	mean := res.Metrics["strehl_mean"]
	if mean <= 0 || mean >= 1 {
		t.Errorf("strehl mean = %g, want in (0, 1)", mean)
	}
	if res.Metrics["segments"] != 19 {
		t.Errorf("segments = %g, want 19 for two rings", res.Metrics["segments"])
	}
	if res.Metrics["strehl_worst"] > mean {
		t.Errorf("worst strehl %g above mean %g", res.Metrics["strehl_worst"], mean)
	}
}

func TestAngularScenarioConservesPower(t *testing.T) {
	s, err := Lookup("angular")
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(context.Background(), testConfig(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if e := res.Metrics["power_error_max"]; e > 0.5 {
		t.Errorf("power error = %g, want below 0.5", e)
	}
	// The near field must show constructive on-axis oscillation above the
	// far-field level.
	if ratio := res.Metrics["axial_peak_over_in"]; ratio < 1.2 {
		t.Errorf("axial peak ratio = %g, want above 1.2", ratio)
	}
}

func TestScenarioRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := Lookup("angular")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(ctx, testConfig(), t.TempDir()); err == nil {
		t.Error("expected error from cancelled context")
	}
}
