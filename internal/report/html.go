package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// viridisColors is the color ramp used for the visual map of HTML charts.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// ScatterPoint is one point of an HTML scatter chart. V drives the color of
// the point through the visual map.
type ScatterPoint struct {
	X, Y, V float64
}

// WriteScatterHTML renders a standalone HTML scatter chart with a viridis
// visual map on the V dimension.
func WriteScatterHTML(path, title, subtitle, xName, yName string, points []ScatterPoint) error {
	if len(points) == 0 {
		return fmt.Errorf("scatter chart needs at least one point")
	}

	data := make([]opts.ScatterData, 0, len(points))
	maxV := 0.0
	for _, p := range points {
		if p.V > maxV {
			maxV = p.V
		}
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y, p.V}})
	}
	if maxV == 0 {
		maxV = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxV),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("metrics", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	return renderToFile(path, scatter.Render)
}

// MetricSeries is one named curve of an HTML line chart.
type MetricSeries struct {
	Name   string
	Values []float64
}

// WriteLineHTML renders a standalone HTML line chart of one or more metric
// series over a shared x axis.
func WriteLineHTML(path, title, subtitle, xName, yName string, xValues []float64, series ...MetricSeries) error {
	if len(series) == 0 {
		return fmt.Errorf("line chart needs at least one series")
	}

	xAxis := make([]string, len(xValues))
	for i, x := range xValues {
		xAxis[i] = fmt.Sprintf("%.4g", x)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 30}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis)

	for _, s := range series {
		if len(s.Values) != len(xValues) {
			return fmt.Errorf("series %q has %d values for %d x samples", s.Name, len(s.Values), len(xValues))
		}
		data := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.Name, data)
	}

	return renderToFile(path, line.Render)
}

func renderToFile(path string, render func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := render(f); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}
