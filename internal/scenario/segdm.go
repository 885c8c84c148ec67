package scenario

import (
	"context"
	"math/rand/v2"
	"path/filepath"

	"github.com/apertura-labs/apertura/internal/config"
	"github.com/apertura-labs/apertura/internal/monitoring"
	"github.com/apertura-labs/apertura/internal/optics/dm"
	"github.com/apertura-labs/apertura/internal/optics/element"
	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
	"github.com/apertura-labs/apertura/internal/optics/propagation"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
	"github.com/apertura-labs/apertura/internal/report"
)

func init() { register(&segdmScenario{}) }

// segdmScenario images a hex-segmented aperture and measures how random
// per-segment piston errors on the segmented mirror degrade the PSF, frame by
// frame, against the flattened mirror.
type segdmScenario struct{}

func (s *segdmScenario) Name() string { return "segdm" }

func (s *segdmScenario) Describe() string {
	return "segmented mirror piston errors and their PSF impact"
}

func (s *segdmScenario) Run(ctx context.Context, cfg *config.Config, outputDir string) (*Result, error) {
	wavelength := cfg.GetWavelength()
	diameter := cfg.GetPupilDiameter()
	focalLength := cfg.GetFocalLength()
	resolution := wavelength * focalLength / diameter
	rings := cfg.GetSegmentRings()
	gap := cfg.GetSegmentGap()

	// Size the segments so the outermost ring stays inside the pupil
	// diameter: 2*rings+1 flat-to-flat widths plus the gaps across.
	flatToFlat := (diameter - 2*gap*float64(rings)) / float64(2*rings+1)

	pupil, err := grid.NewPupilGrid(cfg.GetGridSize(), diameter)
	if err != nil {
		return nil, err
	}
	aperture, segments, err := element.SegmentedAperture(pupil, rings, flatToFlat, gap)
	if err != nil {
		return nil, err
	}
	mirror, err := dm.NewSegmentedMirror(segments)
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

	flat, err := wavefront.New(aperture.Complex(), wavelength)
	if err != nil {
		return nil, err
	}
	normalizeCountRate(flat, cfg.GetSourceFlux())

	// Reference PSF with the mirror flattened.
	mirror.Flatten()
	refFocal, err := prop.Forward(flat)
	if err != nil {
		return nil, err
	}
	refPSF := refFocal.Power()

	rng := rand.New(rand.NewPCG(uint64(cfg.GetSeed()), uint64(cfg.GetSeed())))
	pistonRMS := cfg.GetPistonRMS()
	frames := cfg.GetFrames()

	frameIdx := make([]float64, 0, frames)
	frameStrehl := make([]float64, 0, frames)
	framePiston := make([]float64, 0, frames)
	var worst *segdmFrame

	for i := 0; i < frames; i++ {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		mirror.RandomPistons(pistonRMS, rng)

		aberrated, err := mirror.Forward(flat)
		if err != nil {
			return nil, err
		}
		focalAb, err := prop.Forward(aberrated)
		if err != nil {
			return nil, err
		}
		psf := focalAb.Power()

		strehl, err := Strehl(psf, refPSF)
		if err != nil {
			return nil, err
		}
		frameIdx = append(frameIdx, float64(i))
		frameStrehl = append(frameStrehl, strehl)
		framePiston = append(framePiston, mirror.PistonRMS())

		if worst == nil || strehl < worst.strehl {
			worst = &segdmFrame{
				strehl: strehl,
				psf:    psf,
				opd:    mirror.OPD().Copy(),
			}
		}
	}

	metrics := map[string]float64{
		"segments":          float64(mirror.NumSegments()),
		"flat_to_flat":      flatToFlat,
		"piston_rms_waves":  pistonRMS / wavelength,
		"strehl_mean":       meanOf(frameStrehl),
		"strehl_std":        stdOf(frameStrehl),
		"strehl_worst":      worst.strehl,
		"piston_rms_actual": meanOf(framePiston),
	}

	monitoring.Logf("segdm: %d segments, piston %.3f waves rms, strehl %.3f +/- %.3f over %d frames",
		mirror.NumSegments(), metrics["piston_rms_waves"], metrics["strehl_mean"],
		metrics["strehl_std"], frames)

	artifacts, err := s.writeArtifacts(outputDir, aperture, refPSF, worst, frameIdx, frameStrehl, framePiston)
	if err != nil {
		return nil, err
	}

	return &Result{Scenario: s.Name(), Metrics: metrics, Artifacts: artifacts}, nil
}

type segdmFrame struct {
	strehl float64
	psf    *field.RealField
	opd    *field.RealField
}

func (s *segdmScenario) writeArtifacts(outputDir string, aperture, refPSF *field.RealField,
	worst *segdmFrame, frameIdx, frameStrehl, framePiston []float64) ([]string, error) {

	var artifacts []string
	add := func(name string) string {
		p := filepath.Join(outputDir, name)
		artifacts = append(artifacts, p)
		return p
	}

	if err := report.SaveHeatmap(aperture, "Segmented aperture", add("aperture.png")); err != nil {
		return nil, err
	}
	if err := report.SaveHeatmapLog(refPSF, "PSF (flattened mirror)", add("psf_flat.png"), 6); err != nil {
		return nil, err
	}
	if err := report.SaveHeatmapLog(worst.psf, "PSF (worst piston draw)", add("psf_worst.png"), 6); err != nil {
		return nil, err
	}
	if err := report.SaveHeatmap(worst.opd, "Mirror OPD, worst draw (m)", add("opd_worst.png")); err != nil {
		return nil, err
	}

	if err := report.WriteLineHTML(add("frame_strehl.html"), "Strehl per piston draw",
		"random segment pistons", "frame", "strehl", frameIdx,
		report.MetricSeries{Name: "strehl", Values: frameStrehl}); err != nil {
		return nil, err
	}

	points := make([]report.ScatterPoint, len(frameStrehl))
	for i := range frameStrehl {
		points[i] = report.ScatterPoint{X: framePiston[i], Y: frameStrehl[i], V: frameIdx[i]}
	}
	if err := report.WriteScatterHTML(add("strehl_vs_piston.html"), "Strehl vs piston RMS",
		"one point per draw, colored by frame", "piston rms (m)", "strehl", points); err != nil {
		return nil, err
	}

	return artifacts, nil
}
