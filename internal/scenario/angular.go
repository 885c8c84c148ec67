package scenario

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/plot/plotter"

	"github.com/apertura-labs/apertura/internal/config"
	"github.com/apertura-labs/apertura/internal/monitoring"
	"github.com/apertura-labs/apertura/internal/optics/element"
	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
	"github.com/apertura-labs/apertura/internal/optics/propagation"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
	"github.com/apertura-labs/apertura/internal/report"
)

func init() { register(&angularScenario{}) }

// angularScenario propagates a small circular beam through the near field
// over a sweep of distances with the angular spectrum method, tracking the
// on-axis Fresnel diffraction oscillations, agreement with the paraxial
// Fresnel propagator, and power conservation.
type angularScenario struct{}

func (s *angularScenario) Name() string { return "angular" }

func (s *angularScenario) Describe() string {
	return "near-field diffraction sweep with the angular spectrum method"
}

// Near-field bench geometry. The beam is deliberately small so the sweep
// covers Fresnel numbers from about 8 down to 0.5.
const (
	angularBeamDiameter = 2e-3 // meters
	angularGridExtent   = 8e-3 // meters
	angularSteps        = 16
)

func (s *angularScenario) Run(ctx context.Context, cfg *config.Config, outputDir string) (*Result, error) {
	wavelength := cfg.GetWavelength()

	g, err := grid.NewPupilGrid(cfg.GetGridSize(), angularGridExtent)
	if err != nil {
		return nil, err
	}
	aperture, err := element.EvaluateSupersampled(g, 4, element.CircularAperture(angularBeamDiameter))
	if err != nil {
		return nil, err
	}
	in, err := wavefront.New(aperture.Complex(), wavelength)
	if err != nil {
		return nil, err
	}
	inPower := in.Power().Sum()

	// Log-spaced distances spanning Fresnel numbers a^2/(lambda z) from
	// about 8 down to 0.5.
	a := angularBeamDiameter / 2
	zNear := a * a / (wavelength * 8)
	zFar := a * a / (wavelength * 0.5)
	distances := logspace(zNear, zFar, angularSteps)

	axial := make([]float64, 0, angularSteps)
	axialFresnel := make([]float64, 0, angularSteps)
	var powerErrMax, fresnelDiffMax, roundTripErrMax float64
	var snapshots []distanceSnapshot

	centerIdx := (g.Ny/2)*g.Nx + g.Nx/2

	for i, z := range distances {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}

		prop, err := propagation.NewAngularSpectrum(g, z)
		if err != nil {
			return nil, err
		}
		out, err := prop.Forward(in)
		if err != nil {
			return nil, err
		}
		power := out.Power()
		axial = append(axial, power.Data[centerIdx])

		if e := math.Abs(power.Sum()-inPower) / inPower; e > powerErrMax {
			powerErrMax = e
		}

		back, err := prop.Backward(out)
		if err != nil {
			return nil, err
		}
		if e := relFieldError(back.E, in.E); e > roundTripErrMax {
			roundTripErrMax = e
		}

		fres, err := propagation.NewFresnel(g, z)
		if err != nil {
			return nil, err
		}
		outF, err := fres.Forward(in)
		if err != nil {
			return nil, err
		}
		onAxisF := outF.Power().Data[centerIdx]
		axialFresnel = append(axialFresnel, onAxisF)
		if ref := math.Max(power.Data[centerIdx], onAxisF); ref > 0 {
			if d := math.Abs(power.Data[centerIdx]-onAxisF) / ref; d > fresnelDiffMax {
				fresnelDiffMax = d
			}
		}

		// Keep the first, middle and last plane for the image artifacts.
		if i == 0 || i == angularSteps/2 || i == angularSteps-1 {
			snapshots = append(snapshots, distanceSnapshot{z: z, intensity: power})
		}
	}

	metrics := map[string]float64{
		"z_near":              distances[0],
		"z_far":               distances[len(distances)-1],
		"power_error_max":     powerErrMax,
		"round_trip_err_max":  roundTripErrMax,
		"fresnel_diff_max":    fresnelDiffMax,
		"axial_peak":          maxOf(axial),
		"axial_peak_over_in":  maxOf(axial) / axial[len(axial)-1],
		"axial_contrast_near": axial[0] / maxOf(axial),
	}

	monitoring.Logf("angular: %d planes over z=[%.3g, %.3g] m, power err %.2e, fresnel agreement %.2e",
		angularSteps, distances[0], distances[len(distances)-1], powerErrMax, fresnelDiffMax)

	artifacts, err := s.writeArtifacts(outputDir, distances, axial, axialFresnel, snapshots)
	if err != nil {
		return nil, err
	}

	return &Result{Scenario: s.Name(), Metrics: metrics, Artifacts: artifacts}, nil
}

type distanceSnapshot struct {
	z         float64
	intensity *field.RealField
}

func (s *angularScenario) writeArtifacts(outputDir string, distances, axial, axialFresnel []float64,
	snapshots []distanceSnapshot) ([]string, error) {

	var artifacts []string
	add := func(name string) string {
		p := filepath.Join(outputDir, name)
		artifacts = append(artifacts, p)
		return p
	}

	asPts := make(plotter.XYs, len(distances))
	frPts := make(plotter.XYs, len(distances))
	for i := range distances {
		asPts[i] = plotter.XY{X: distances[i], Y: axial[i]}
		frPts[i] = plotter.XY{X: distances[i], Y: axialFresnel[i]}
	}
	if err := report.SaveLinePlot("On-axis intensity vs distance", "z (m)", "intensity",
		add("axial_profile.png"),
		report.LineSeries{Name: "angular spectrum", Points: asPts},
		report.LineSeries{Name: "fresnel", Points: frPts}); err != nil {
		return nil, err
	}

	for i, snap := range snapshots {
		title := fmt.Sprintf("Intensity at z = %.3g m", snap.z)
		if err := report.SaveHeatmap(snap.intensity, title, add(fmt.Sprintf("plane_%d.png", i))); err != nil {
			return nil, err
		}
	}

	if err := report.WriteLineHTML(add("axial_profile.html"), "On-axis intensity",
		"near-field sweep", "z (m)", "intensity", distances,
		report.MetricSeries{Name: "angular spectrum", Values: axial},
		report.MetricSeries{Name: "fresnel", Values: axialFresnel}); err != nil {
		return nil, err
	}

	return artifacts, nil
}

// relFieldError is the relative L2 error between two complex fields.
func relFieldError(got, want *field.Field) float64 {
	var num, den float64
	for i := range want.Data {
		d := got.Data[i] - want.Data[i]
		num += real(d)*real(d) + imag(d)*imag(d)
		den += real(want.Data[i])*real(want.Data[i]) + imag(want.Data[i])*imag(want.Data[i])
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(num / den)
}

// logspace returns n log-spaced samples from lo to hi inclusive.
func logspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	ratio := math.Log(hi / lo)
	for i := range out {
		out[i] = lo * math.Exp(ratio*float64(i)/float64(n-1))
	}
	return out
}

func maxOf(xs []float64) float64 {
	best := math.Inf(-1)
	for _, x := range xs {
		if x > best {
			best = x
		}
	}
	return best
}
