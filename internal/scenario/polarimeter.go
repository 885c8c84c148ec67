package scenario

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/plotter"

	"github.com/apertura-labs/apertura/internal/config"
	"github.com/apertura-labs/apertura/internal/monitoring"
	"github.com/apertura-labs/apertura/internal/optics/element"
	"github.com/apertura-labs/apertura/internal/optics/grid"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
	"github.com/apertura-labs/apertura/internal/report"
)

func init() { register(&polarimeterScenario{}) }

// polarimeterScenario modulates an elliptically polarized beam with rotating
// wave plates behind a fixed linear analyzer, then recovers the input Stokes
// vector from the measured intensities by least squares against the known
// Mueller matrices of each modulation state.
type polarimeterScenario struct{}

func (s *polarimeterScenario) Name() string { return "polarimeter" }

func (s *polarimeterScenario) Describe() string {
	return "rotating wave plate polarimeter with Stokes retrieval"
}

// polarimeterSteps is the number of wave plate orientations per half turn in
// each sweep.
const polarimeterSteps = 12

// inputStokes is the fully polarized elliptical state under test.
var inputStokes = [4]float64{1, 0.3, -0.2, math.Sqrt(1 - 0.3*0.3 - 0.2*0.2)}

func (s *polarimeterScenario) Run(ctx context.Context, cfg *config.Config, outputDir string) (*Result, error) {
	wavelength := cfg.GetWavelength()
	diameter := cfg.GetPupilDiameter()

	pupil, err := grid.NewPupilGrid(cfg.GetGridSize(), diameter)
	if err != nil {
		return nil, err
	}
	aperture, err := element.EvaluateSupersampled(pupil, 4, element.CircularAperture(diameter))
	if err != nil {
		return nil, err
	}

	in, err := wavefront.NewPolarized(aperture.Complex(), wavelength, inputStokes)
	if err != nil {
		return nil, err
	}
	inPower := in.Power().Sum()
	if inPower <= 0 {
		return nil, fmt.Errorf("input beam carries no power")
	}

	analyzer := element.NewLinearPolarizer(0)

	halfWave := func(theta float64) *element.JonesMatrixElement { return element.NewHalfWavePlate(theta) }
	quarterWave := func(theta float64) *element.JonesMatrixElement { return element.NewQuarterWavePlate(theta) }

	hwp, err := runSweep(ctx, in, inPower, analyzer, halfWave)
	if err != nil {
		return nil, fmt.Errorf("half-wave sweep: %w", err)
	}
	qwp, err := runSweep(ctx, in, inPower, analyzer, quarterWave)
	if err != nil {
		return nil, fmt.Errorf("quarter-wave sweep: %w", err)
	}

	logMueller("half-wave plate at 0", element.NewHalfWavePlate(0))
	logMueller("quarter-wave plate at 0", element.NewQuarterWavePlate(0))
	logMueller("linear analyzer at 0", analyzer)

	recovered, residual, err := solveStokes(append(hwp.rows, qwp.rows...),
		append(hwp.measured, qwp.measured...))
	if err != nil {
		return nil, err
	}

	metrics := map[string]float64{
		"stokes_i_in": inputStokes[0], "stokes_q_in": inputStokes[1],
		"stokes_u_in": inputStokes[2], "stokes_v_in": inputStokes[3],
		"stokes_i_out": recovered[0], "stokes_q_out": recovered[1],
		"stokes_u_out": recovered[2], "stokes_v_out": recovered[3],
		"fit_residual_rms": residual,
	}
	var maxErr float64
	for i := range recovered {
		if e := math.Abs(recovered[i] - inputStokes[i]); e > maxErr {
			maxErr = e
		}
	}
	metrics["stokes_max_error"] = maxErr
	metrics["dop_out"] = math.Sqrt(recovered[1]*recovered[1]+
		recovered[2]*recovered[2]+recovered[3]*recovered[3]) / recovered[0]

	monitoring.Logf("polarimeter: recovered S = (%.4f, %.4f, %.4f, %.4f), max error %.2e",
		recovered[0], recovered[1], recovered[2], recovered[3], maxErr)

	artifacts, err := s.writeArtifacts(outputDir, hwp, qwp)
	if err != nil {
		return nil, err
	}

	return &Result{Scenario: s.Name(), Metrics: metrics, Artifacts: artifacts}, nil
}

// sweepData holds one rotating-element sweep: the top Mueller rows of each
// modulation state, the measured and predicted normalized intensities, and
// the orientations in degrees.
type sweepData struct {
	angles    []float64
	rows      [][4]float64
	measured  []float64
	predicted []float64
}

// runSweep rotates the wave plate through half a turn in front of the fixed
// analyzer, recording the measured transmission and the Mueller-model
// prediction at every orientation.
func runSweep(ctx context.Context, in *wavefront.Wavefront, inPower float64,
	analyzer *element.JonesMatrixElement,
	plate func(theta float64) *element.JonesMatrixElement) (*sweepData, error) {

	sweep := &sweepData{}
	for i := 0; i < polarimeterSteps; i++ {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		theta := float64(i) * math.Pi / polarimeterSteps
		ret := plate(theta)

		// Intensity actually transmitted through plate then analyzer.
		mid, err := ret.Forward(in)
		if err != nil {
			return nil, err
		}
		out, err := analyzer.Forward(mid)
		if err != nil {
			return nil, err
		}
		measured := out.Power().Sum() / inPower

		// Model prediction: top row of the composed Mueller matrix acting
		// on the input Stokes vector.
		composed, err := analyzer.Mul(ret)
		if err != nil {
			return nil, err
		}
		m, err := composed.MuellerMatrix()
		if err != nil {
			return nil, err
		}
		predicted := m.MulStokes(inputStokes)[0]

		sweep.angles = append(sweep.angles, theta*180/math.Pi)
		sweep.rows = append(sweep.rows, m[0])
		sweep.measured = append(sweep.measured, measured)
		sweep.predicted = append(sweep.predicted, predicted)
	}
	return sweep, nil
}

// solveStokes recovers the Stokes vector from measured intensities b and the
// per-state Mueller top rows A by least squares, and returns the RMS of the
// fit residual.
func solveStokes(rows [][4]float64, measured []float64) ([4]float64, float64, error) {
	n := len(rows)
	if n < 4 {
		return [4]float64{}, 0, fmt.Errorf("need at least 4 modulation states, got %d", n)
	}

	a := mat.NewDense(n, 4, nil)
	for r, row := range rows {
		for c := 0; c < 4; c++ {
			a.Set(r, c, row[c])
		}
	}
	b := mat.NewVecDense(n, measured)

	var qr mat.QR
	qr.Factorize(a)
	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return [4]float64{}, 0, fmt.Errorf("stokes least squares: %w", err)
	}

	var s [4]float64
	for i := range s {
		s[i] = x.AtVec(i)
	}

	var resid mat.VecDense
	resid.MulVec(a, &x)
	var sum float64
	for i := 0; i < n; i++ {
		d := resid.AtVec(i) - measured[i]
		sum += d * d
	}
	return s, math.Sqrt(sum / float64(n)), nil
}

func logMueller(name string, e *element.JonesMatrixElement) {
	m, err := e.MuellerMatrix()
	if err != nil {
		monitoring.Logf("polarimeter: mueller matrix of %s: %v", name, err)
		return
	}
	monitoring.Logf("polarimeter: mueller matrix of %s:", name)
	for r := 0; r < 4; r++ {
		monitoring.Logf("  [%8.4f %8.4f %8.4f %8.4f]", m[r][0], m[r][1], m[r][2], m[r][3])
	}
}

func (s *polarimeterScenario) writeArtifacts(outputDir string, hwp, qwp *sweepData) ([]string, error) {
	var artifacts []string
	add := func(name string) string {
		p := filepath.Join(outputDir, name)
		artifacts = append(artifacts, p)
		return p
	}

	if err := report.SaveLinePlot("Polarimeter modulation", "plate angle (deg)", "transmission",
		add("modulation.png"),
		sweepSeries("HWP measured", hwp), sweepSeries("QWP measured", qwp)); err != nil {
		return nil, err
	}

	if err := report.WriteLineHTML(add("hwp_modulation.html"), "Half-wave plate sweep",
		"fixed analyzer at 0 deg", "angle (deg)", "transmission", hwp.angles,
		report.MetricSeries{Name: "measured", Values: hwp.measured},
		report.MetricSeries{Name: "predicted", Values: hwp.predicted}); err != nil {
		return nil, err
	}
	if err := report.WriteLineHTML(add("qwp_modulation.html"), "Quarter-wave plate sweep",
		"fixed analyzer at 0 deg", "angle (deg)", "transmission", qwp.angles,
		report.MetricSeries{Name: "measured", Values: qwp.measured},
		report.MetricSeries{Name: "predicted", Values: qwp.predicted}); err != nil {
		return nil, err
	}

	return artifacts, nil
}

func sweepSeries(name string, sweep *sweepData) report.LineSeries {
	pts := make(plotter.XYs, len(sweep.angles))
	for i := range sweep.angles {
		pts[i] = plotter.XY{X: sweep.angles[i], Y: sweep.measured[i]}
	}
	return report.LineSeries{Name: name, Points: pts}
}
