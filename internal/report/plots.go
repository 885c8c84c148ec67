package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/apertura-labs/apertura/internal/optics/field"
)

// fieldGridXYZ adapts a RealField to the plotter.GridXYZ interface, with an
// optional log10 stretch relative to the field maximum.
type fieldGridXYZ struct {
	f       *field.RealField
	log     bool
	decades float64
	max     float64
}

func newFieldGridXYZ(f *field.RealField, logStretch bool, decades float64) *fieldGridXYZ {
	_, max := f.Max()
	return &fieldGridXYZ{f: f, log: logStretch, decades: decades, max: max}
}

func (g *fieldGridXYZ) Dims() (c, r int) { return g.f.Grid.Nx, g.f.Grid.Ny }
func (g *fieldGridXYZ) X(c int) float64  { return g.f.Grid.X0 + float64(c)*g.f.Grid.Dx }
func (g *fieldGridXYZ) Y(r int) float64  { return g.f.Grid.Y0 + float64(r)*g.f.Grid.Dy }

func (g *fieldGridXYZ) Z(c, r int) float64 {
	v := g.f.Data[r*g.f.Grid.Nx+c]
	if !g.log {
		return v
	}
	if g.max <= 0 {
		return -g.decades
	}
	norm := v / g.max
	floor := math.Pow(10, -g.decades)
	if norm < floor {
		norm = floor
	}
	return math.Log10(norm)
}

// SaveHeatmap renders a real field as a PNG heatmap in linear scale.
func SaveHeatmap(f *field.RealField, title, path string) error {
	return saveHeatmap(f, title, path, false, 0)
}

// SaveHeatmapLog renders a real field as a PNG heatmap in log10 scale
// relative to the field maximum, clipped at the given number of decades.
// PSFs are rendered this way so the Airy rings stay visible.
func SaveHeatmapLog(f *field.RealField, title, path string, decades float64) error {
	if decades <= 0 {
		return fmt.Errorf("log stretch decades must be positive, got %g", decades)
	}
	return saveHeatmap(f, title, path, true, decades)
}

func saveHeatmap(f *field.RealField, title, path string, logStretch bool, decades float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	hm := plotter.NewHeatMap(newFieldGridXYZ(f, logStretch, decades), palette.Heat(256, 1))
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 7*vg.Inch, path); err != nil {
		return fmt.Errorf("save heatmap: %w", err)
	}
	return nil
}

// LineSeries is one named curve on a line plot.
type LineSeries struct {
	Name   string
	Points plotter.XYs
}

// SaveLinePlot renders one or more series as a PNG line plot with a shared
// legend, coloring the series from an HSL palette.
func SaveLinePlot(title, xLabel, yLabel, path string, series ...LineSeries) error {
	if len(series) == 0 {
		return fmt.Errorf("line plot needs at least one series")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	colors := generateColors(len(series))
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.Points)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save line plot: %w", err)
	}
	return nil
}

// SaveLogLinePlot renders a line plot with a log-scaled y axis. Points with
// non-positive y are dropped.
func SaveLogLinePlot(title, xLabel, yLabel, path string, series ...LineSeries) error {
	filtered := make([]LineSeries, 0, len(series))
	for _, s := range series {
		pts := make(plotter.XYs, 0, len(s.Points))
		for _, xy := range s.Points {
			if xy.Y > 0 {
				pts = append(pts, xy)
			}
		}
		filtered = append(filtered, LineSeries{Name: s.Name, Points: pts})
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	colors := generateColors(len(filtered))
	for i, s := range filtered {
		if len(s.Points) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.Points)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save log line plot: %w", err)
	}
	return nil
}

// generateColors creates a palette of distinct colors for plot lines.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
