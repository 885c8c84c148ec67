package modal

import (
	"fmt"
	"math"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/grid"
)

// NollToZernike converts a Noll index (1-based) to the radial degree n and
// azimuthal frequency m. Negative m denotes the sine mode.
func NollToZernike(j int) (n, m int, err error) {
	if j < 1 {
		return 0, 0, fmt.Errorf("noll index must be at least 1, got %d", j)
	}

	// Find the radial row: row n starts at index n*(n+1)/2 + 1.
	n = 0
	for (n+1)*(n+2)/2 < j {
		n++
	}
	k := j - n*(n+1)/2 - 1 // 0-based position within the row

	var absM int
	if n%2 == 0 {
		absM = 2 * ((k + 1) / 2)
	} else {
		absM = 2*(k/2) + 1
	}

	m = absM
	if absM != 0 && j%2 == 1 {
		m = -absM
	}
	return n, m, nil
}

// zernikeRadial evaluates the radial polynomial R_n^|m| at r.
func zernikeRadial(n, absM int, r float64) float64 {
	var sum float64
	for s := 0; s <= (n-absM)/2; s++ {
		num := factorial(n - s)
		den := factorial(s) * factorial((n+absM)/2-s) * factorial((n-absM)/2-s)
		term := num / den * math.Pow(r, float64(n-2*s))
		if s%2 == 1 {
			term = -term
		}
		sum += term
	}
	return sum
}

func factorial(n int) float64 {
	out := 1.0
	for i := 2; i <= n; i++ {
		out *= float64(i)
	}
	return out
}

// ZernikeMode evaluates the Noll-normalized Zernike mode j on a grid, over
// a disk of the given diameter. Samples outside the disk are zero. With the
// Noll normalization each mode has unit RMS over the disk.
func ZernikeMode(j int, diameter float64, g *grid.Grid) (*field.RealField, error) {
	n, m, err := NollToZernike(j)
	if err != nil {
		return nil, err
	}
	if diameter <= 0 {
		return nil, fmt.Errorf("zernike disk diameter must be positive, got %g", diameter)
	}

	absM := m
	if absM < 0 {
		absM = -absM
	}

	norm := math.Sqrt(float64(n + 1))
	if m != 0 {
		norm = math.Sqrt(2 * float64(n+1))
	}

	out := field.NewReal(g)
	radius := diameter / 2
	for i := range out.Data {
		r := g.R(i) / radius
		if r > 1 {
			continue
		}
		v := norm * zernikeRadial(n, absM, r)
		switch {
		case m > 0:
			v *= math.Cos(float64(absM) * g.Theta(i))
		case m < 0:
			v *= math.Sin(float64(absM) * g.Theta(i))
		}
		out.Data[i] = v
	}
	return out, nil
}

// ZernikeBasis builds the mode basis of numModes Zernike modes starting at
// the given Noll index (use 2 to skip piston).
func ZernikeBasis(numModes, startMode int, diameter float64, g *grid.Grid) (*ModeBasis, error) {
	if numModes < 1 {
		return nil, fmt.Errorf("zernike basis needs at least one mode, got %d", numModes)
	}
	modes := make([]*field.RealField, numModes)
	for i := range modes {
		m, err := ZernikeMode(startMode+i, diameter, g)
		if err != nil {
			return nil, err
		}
		modes[i] = m
	}
	return NewModeBasis(modes)
}
