package scenario

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"

	"gonum.org/v1/plot/plotter"

	"github.com/apertura-labs/apertura/internal/config"
	"github.com/apertura-labs/apertura/internal/monitoring"
	"github.com/apertura-labs/apertura/internal/optics/detector"
	"github.com/apertura-labs/apertura/internal/optics/element"
	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
	"github.com/apertura-labs/apertura/internal/optics/modal"
	"github.com/apertura-labs/apertura/internal/optics/propagation"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
	"github.com/apertura-labs/apertura/internal/report"
)

func init() { register(&psfScenario{}) }

// psfScenario images a spider-obstructed telescope pupil onto the focal
// plane, with and without Zernike aberrations, and integrates noisy detector
// frames of the aberrated PSF.
type psfScenario struct{}

func (s *psfScenario) Name() string { return "psf" }

func (s *psfScenario) Describe() string {
	return "telescope PSF with Zernike aberrations and detector frames"
}

func (s *psfScenario) Run(ctx context.Context, cfg *config.Config, outputDir string) (*Result, error) {
	wavelength := cfg.GetWavelength()
	diameter := cfg.GetPupilDiameter()
	focalLength := cfg.GetFocalLength()
	resolution := wavelength * focalLength / diameter

	pupil, err := grid.NewPupilGrid(cfg.GetGridSize(), diameter)
	if err != nil {
		return nil, err
	}
	focal, err := grid.NewFocalGrid(cfg.GetFocalQ(), cfg.GetNumAiry(), resolution)
	if err != nil {
		return nil, err
	}
	prop, err := propagation.NewFraunhofer(pupil, focal, focalLength)
	if err != nil {
		return nil, err
	}

	aperture, err := element.EvaluateSupersampled(pupil, 4, element.ObstructedAperture(
		diameter, cfg.GetObscurationRatio(), cfg.GetNumSpiders(), cfg.GetSpiderWidth()))
	if err != nil {
		return nil, err
	}

	// Unaberrated reference PSF in counts per second per pixel.
	flat, err := wavefront.New(aperture.Complex(), wavelength)
	if err != nil {
		return nil, err
	}
	normalizeCountRate(flat, cfg.GetSourceFlux())
	focalFlat, err := prop.Forward(flat)
	if err != nil {
		return nil, err
	}
	psfIdeal := focalFlat.Power()

	// Aberrated PSF: a fixed mix of low-order Zernikes scaled to the
	// configured OPD RMS over the aperture.
	opd, err := zernikeOPD(pupil, aperture, diameter, cfg.GetZernikeRMS())
	if err != nil {
		return nil, err
	}
	aberrated, err := element.NewPhaseScreen(opd).Forward(flat)
	if err != nil {
		return nil, err
	}
	focalAb, err := prop.Forward(aberrated)
	if err != nil {
		return nil, err
	}
	psfAberrated := focalAb.Power()

	metrics := map[string]float64{}

	strehl, err := Strehl(psfAberrated, psfIdeal)
	if err != nil {
		return nil, err
	}
	metrics["strehl"] = strehl
	metrics["opd_rms_waves"] = cfg.GetZernikeRMS() / wavelength

	fwhmIdeal, err := FWHM(psfIdeal)
	if err != nil {
		return nil, err
	}
	metrics["fwhm_ideal_ld"] = fwhmIdeal / resolution

	for _, mult := range []float64{1.22, 5, 10} {
		ee, err := EncircledEnergy(psfAberrated, mult*resolution)
		if err != nil {
			return nil, err
		}
		metrics[fmt.Sprintf("ee_%.2f_ld", mult)] = ee
	}

	// Detector frames of the aberrated PSF.
	src := rand.NewPCG(uint64(cfg.GetSeed()), uint64(cfg.GetSeed()))
	det, err := detector.NewNoisy(focal, detector.NoiseConfig{
		PhotonNoise: cfg.GetPhotonNoise(),
		DarkCurrent: cfg.GetDarkCurrent(),
		ReadNoise:   cfg.GetReadNoise(),
		FullWell:    cfg.GetFullWell(),
	}, src)
	if err != nil {
		return nil, err
	}

	dt := cfg.GetExposureTime()
	_, refPeakRate := psfIdeal.Max()
	frames := cfg.GetFrames()
	frameStrehl := make([]float64, 0, frames)
	frameIdx := make([]float64, 0, frames)
	saturated := 0

	for i := 0; i < frames; i++ {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		if err := det.Integrate(focalAb, dt); err != nil {
			return nil, err
		}
		img, err := det.Read()
		if err != nil {
			if !errors.Is(err, detector.ErrSaturated) {
				return nil, err
			}
			saturated++
		}
		_, peak := img.Max()
		frameStrehl = append(frameStrehl, peak/(refPeakRate*dt))
		frameIdx = append(frameIdx, float64(i))
	}
	metrics["frame_strehl_mean"] = meanOf(frameStrehl)
	metrics["frame_strehl_std"] = stdOf(frameStrehl)
	metrics["saturated_frames"] = float64(saturated)

	monitoring.Logf("psf: strehl=%.3f fwhm=%.2f l/D, %d/%d frames saturated",
		strehl, metrics["fwhm_ideal_ld"], saturated, frames)

	artifacts, err := s.writeArtifacts(outputDir, psfIdeal, psfAberrated, opd, resolution, frameIdx, frameStrehl)
	if err != nil {
		return nil, err
	}

	return &Result{Scenario: s.Name(), Metrics: metrics, Artifacts: artifacts}, nil
}

func (s *psfScenario) writeArtifacts(outputDir string, psfIdeal, psfAberrated, opd *field.RealField, resolution float64, frameIdx, frameStrehl []float64) ([]string, error) {
	var artifacts []string
	add := func(name string) string {
		p := filepath.Join(outputDir, name)
		artifacts = append(artifacts, p)
		return p
	}

	if err := report.SaveHeatmapLog(psfIdeal, "PSF (unaberrated)", add("psf_ideal.png"), 6); err != nil {
		return nil, err
	}
	if err := report.SaveHeatmapLog(psfAberrated, "PSF (aberrated)", add("psf_aberrated.png"), 6); err != nil {
		return nil, err
	}
	if err := report.SaveHeatmap(opd, "Injected OPD (m)", add("opd.png")); err != nil {
		return nil, err
	}

	ideal, err := profileSeries(psfIdeal, resolution, "unaberrated")
	if err != nil {
		return nil, err
	}
	ab, err := profileSeries(psfAberrated, resolution, "aberrated")
	if err != nil {
		return nil, err
	}
	if err := report.SaveLogLinePlot("Radial PSF profile", "r (lambda f/D)", "normalized intensity",
		add("radial_profile.png"), ideal, ab); err != nil {
		return nil, err
	}

	if err := report.WriteLineHTML(add("frame_strehl.html"), "Per-frame Strehl", "noisy detector frames",
		"frame", "strehl", frameIdx, report.MetricSeries{Name: "strehl", Values: frameStrehl}); err != nil {
		return nil, err
	}

	return artifacts, nil
}

// profileSeries builds a peak-normalized radial profile series with radii in
// units of the spatial resolution element.
func profileSeries(psf *field.RealField, resolution float64, name string) (report.LineSeries, error) {
	radii, mean, err := RadialProfile(psf, psf.Grid.Nx/2)
	if err != nil {
		return report.LineSeries{}, err
	}
	_, peak := psf.Max()

	pts := make(plotter.XYs, 0, len(radii))
	for i := range radii {
		if math.IsNaN(mean[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: radii[i] / resolution, Y: mean[i] / peak})
	}
	return report.LineSeries{Name: name, Points: pts}, nil
}

// zernikeOPD builds an OPD map from a fixed mix of low-order Zernike modes,
// rescaled so its RMS over the aperture equals targetRMS.
func zernikeOPD(pupil *grid.Grid, aperture *field.RealField, diameter, targetRMS float64) (*field.RealField, error) {
	basis, err := modal.ZernikeBasis(9, 4, diameter, pupil)
	if err != nil {
		return nil, err
	}
	mix := []float64{0.5, -0.3, 0.8, 0.2, -0.6, 0.4, -0.2, 0.7, 0.3}
	opd, err := basis.Linear(mix)
	if err != nil {
		return nil, err
	}

	rms := opd.RMS(aperture)
	if rms == 0 {
		return opd, nil
	}
	opd.Scale(targetRMS / rms)
	return opd, nil
}

// normalizeCountRate rescales a scalar wavefront so the summed per-pixel
// intensity equals the given photon rate.
func normalizeCountRate(w *wavefront.Wavefront, rate float64) {
	sum := w.Power().Sum()
	if sum <= 0 {
		return
	}
	w.E.Scale(complex(math.Sqrt(rate/sum), 0))
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdOf(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := meanOf(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
