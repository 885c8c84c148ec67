package scenario

import (
	"fmt"
	"math"

	"github.com/apertura-labs/apertura/internal/optics/field"
)

// Strehl is the ratio of the peak intensity of a PSF to the peak of the
// unaberrated reference PSF. Both images must carry the same total power for
// the ratio to be meaningful.
func Strehl(psf, reference *field.RealField) (float64, error) {
	if psf.Grid.Size() != reference.Grid.Size() {
		return 0, fmt.Errorf("psf size %d does not match reference size %d",
			psf.Grid.Size(), reference.Grid.Size())
	}
	_, refPeak := reference.Max()
	if refPeak <= 0 {
		return 0, fmt.Errorf("reference psf has no positive peak")
	}
	_, peak := psf.Max()
	return peak / refPeak, nil
}

// RadialProfile azimuthally averages an image around the grid origin into
// nbins equal-width radius bins. It returns the bin-center radii and the
// mean value per bin; empty bins get NaN.
func RadialProfile(f *field.RealField, nbins int) (radii, mean []float64, err error) {
	if nbins < 1 {
		return nil, nil, fmt.Errorf("radial profile needs at least one bin, got %d", nbins)
	}

	rmax := 0.0
	for i := range f.Data {
		if r := f.Grid.R(i); r > rmax {
			rmax = r
		}
	}
	if rmax == 0 {
		return nil, nil, fmt.Errorf("degenerate grid for radial profile")
	}

	sums := make([]float64, nbins)
	counts := make([]float64, nbins)
	width := rmax / float64(nbins)
	for i, v := range f.Data {
		bin := int(f.Grid.R(i) / width)
		if bin >= nbins {
			bin = nbins - 1
		}
		sums[bin] += v
		counts[bin]++
	}

	radii = make([]float64, nbins)
	mean = make([]float64, nbins)
	for b := 0; b < nbins; b++ {
		radii[b] = (float64(b) + 0.5) * width
		if counts[b] > 0 {
			mean[b] = sums[b] / counts[b]
		} else {
			mean[b] = math.NaN()
		}
	}
	return radii, mean, nil
}

// EncircledEnergy returns the fraction of the total image energy inside the
// given radius around the grid origin.
func EncircledEnergy(f *field.RealField, radius float64) (float64, error) {
	if radius <= 0 {
		return 0, fmt.Errorf("encircled energy radius must be positive, got %g", radius)
	}
	var inside, total float64
	for i, v := range f.Data {
		total += v
		if f.Grid.R(i) <= radius {
			inside += v
		}
	}
	if total <= 0 {
		return 0, fmt.Errorf("image has no positive energy")
	}
	return inside / total, nil
}

// FWHM estimates the full width at half maximum of a centrally peaked image
// from its radial profile, interpolating linearly between bins.
func FWHM(f *field.RealField) (float64, error) {
	radii, profile, err := RadialProfile(f, f.Grid.Nx/2)
	if err != nil {
		return 0, err
	}

	_, peak := f.Max()
	if peak <= 0 {
		return 0, fmt.Errorf("image has no positive peak")
	}
	half := peak / 2

	prev := peak
	prevR := 0.0
	for b := 0; b < len(profile); b++ {
		v := profile[b]
		if math.IsNaN(v) {
			continue
		}
		if v < half {
			// Linear interpolation between the bracketing samples.
			frac := (prev - half) / (prev - v)
			r := prevR + frac*(radii[b]-prevR)
			return 2 * r, nil
		}
		prev = v
		prevR = radii[b]
	}
	return 0, fmt.Errorf("profile never falls below half maximum")
}
