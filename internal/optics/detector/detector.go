// Package detector owns detector integration: accumulating wavefront
// intensity into counts, with an optional noise model covering photon noise,
// dark current, flat-field error and read noise.
// Key types: Detector, NoiselessDetector, NoisyDetector.
//
// Dependency rule: detector may depend on grid, field and wavefront only.
package detector

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
)

// ErrSaturated is reported by Read when one or more pixels exceeded the full
// well. The returned image is still valid, with the offending pixels clamped.
var ErrSaturated = errors.New("detector: full well exceeded")

// Detector accumulates intensity over one or more integrations and converts
// the accumulated signal to an image on Read. Read resets the accumulator.
type Detector interface {
	Integrate(w *wavefront.Wavefront, dt float64) error
	Read() (*field.RealField, error)
}

// NoiselessDetector accumulates intensity times integration time exactly.
type NoiselessDetector struct {
	g   *grid.Grid
	acc *field.RealField
}

// NewNoiseless returns an ideal detector on the given grid.
func NewNoiseless(g *grid.Grid) *NoiselessDetector {
	return &NoiselessDetector{g: g, acc: field.NewReal(g)}
}

// Integrate adds the wavefront intensity times dt to the accumulator.
func (d *NoiselessDetector) Integrate(w *wavefront.Wavefront, dt float64) error {
	if dt <= 0 {
		return fmt.Errorf("integration time must be positive, got %g", dt)
	}
	if !w.Grid().Equal(d.g) {
		return fmt.Errorf("wavefront grid does not match the detector grid")
	}
	pow := w.Power()
	for i, v := range pow.Data {
		d.acc.Data[i] += v * dt
	}
	return nil
}

// Read returns the accumulated image and resets the accumulator.
func (d *NoiselessDetector) Read() (*field.RealField, error) {
	out := d.acc
	d.acc = field.NewReal(d.g)
	return out, nil
}

// NoiseConfig holds the noise model parameters of a NoisyDetector. The zero
// value describes a noiseless detector with unlimited well depth.
type NoiseConfig struct {
	// PhotonNoise draws each pixel from a Poisson distribution with the
	// accumulated expectation as its mean.
	PhotonNoise bool
	// DarkCurrent is added as counts per pixel per second of integration.
	DarkCurrent float64
	// ReadNoise is the RMS of zero-mean Gaussian noise added on Read.
	ReadNoise float64
	// FullWell clamps pixel values on Read; zero disables the clamp.
	FullWell float64
	// FlatField is an optional per-pixel gain map; nil means unit gain.
	FlatField *field.RealField
}

// NoisyDetector accumulates intensity and applies a detector noise model on
// readout. All randomness comes from the supplied source, so runs with the
// same seed reproduce exactly.
type NoisyDetector struct {
	g   *grid.Grid
	cfg NoiseConfig
	src rand.Source

	acc   *field.RealField
	tTot  float64
	gauss distuv.Normal
}

// NewNoisy returns a detector with the given noise model.
func NewNoisy(g *grid.Grid, cfg NoiseConfig, src rand.Source) (*NoisyDetector, error) {
	if cfg.DarkCurrent < 0 {
		return nil, fmt.Errorf("dark current must be non-negative, got %g", cfg.DarkCurrent)
	}
	if cfg.ReadNoise < 0 {
		return nil, fmt.Errorf("read noise must be non-negative, got %g", cfg.ReadNoise)
	}
	if cfg.FullWell < 0 {
		return nil, fmt.Errorf("full well must be non-negative, got %g", cfg.FullWell)
	}
	if cfg.FlatField != nil && cfg.FlatField.Grid.Size() != g.Size() {
		return nil, fmt.Errorf("flat field size %d does not match detector size %d",
			cfg.FlatField.Grid.Size(), g.Size())
	}
	if src == nil {
		return nil, fmt.Errorf("noisy detector needs a random source")
	}
	return &NoisyDetector{
		g:     g,
		cfg:   cfg,
		src:   src,
		acc:   field.NewReal(g),
		gauss: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}, nil
}

// Integrate adds the wavefront intensity times dt to the accumulator.
func (d *NoisyDetector) Integrate(w *wavefront.Wavefront, dt float64) error {
	if dt <= 0 {
		return fmt.Errorf("integration time must be positive, got %g", dt)
	}
	if !w.Grid().Equal(d.g) {
		return fmt.Errorf("wavefront grid does not match the detector grid")
	}
	pow := w.Power()
	for i, v := range pow.Data {
		d.acc.Data[i] += v * dt
	}
	d.tTot += dt
	return nil
}

// Read converts the accumulated signal to counts, applies the noise model
// and resets the accumulator. If any pixel exceeds the full well, the image
// is returned with those pixels clamped and the error wraps ErrSaturated.
func (d *NoisyDetector) Read() (*field.RealField, error) {
	out := field.NewReal(d.g)

	saturated := 0
	for i, v := range d.acc.Data {
		expected := v + d.cfg.DarkCurrent*d.tTot
		if d.cfg.FlatField != nil {
			expected *= d.cfg.FlatField.Data[i]
		}

		counts := expected
		if d.cfg.PhotonNoise && expected > 0 {
			counts = distuv.Poisson{Lambda: expected, Src: d.src}.Rand()
		}
		if d.cfg.ReadNoise > 0 {
			counts += d.gauss.Rand() * d.cfg.ReadNoise
		}
		if d.cfg.FullWell > 0 && counts > d.cfg.FullWell {
			counts = d.cfg.FullWell
			saturated++
		}
		out.Data[i] = counts
	}

	d.acc = field.NewReal(d.g)
	d.tTot = 0

	if saturated > 0 {
		return out, fmt.Errorf("%d pixels clamped: %w", saturated, ErrSaturated)
	}
	return out, nil
}
