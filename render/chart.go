package render

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// CHARTS — go-chart renderings of a ChartConfig, as PNG or inline SVG
// ============================================================================
// bar and barh panels draw as vertical bars; line panels draw one line per
// series over the shared x labels; geo panels draw a lon/lat scatter with
// dots sized by value.
// ============================================================================

// ErrNoData is returned when a chart has no points to draw.
var ErrNoData = errors.New("chart has no data")

// Default image size.
const (
	DefaultWidth  = 960
	DefaultHeight = 420
)

// Inline SVG size; the page scales it to the panel width.
const (
	inlineWidth  = 640
	inlineHeight = 300
)

// geoLabels is how many of the largest geo points get a label.
const geoLabels = 5

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// PNG renders a chart config as a PNG image.
func PNG(w io.Writer, c *engine.ChartConfig, width, height int) error {
	return renderChart(w, c, width, height, chart.PNG)
}

// SVG renders a chart config as a standalone SVG document. Labels are
// escaped, so the output can be embedded in HTML.
func SVG(w io.Writer, c *engine.ChartConfig, width, height int) error {
	if c.Empty() {
		return ErrNoData
	}
	return renderChart(w, escaped(c), width, height, chart.SVG)
}

func renderChart(w io.Writer, c *engine.ChartConfig, width, height int, rp chart.RendererProvider) error {
	if c.Empty() {
		return ErrNoData
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return build(c, width, height).Render(rp, w)
}

func build(c *engine.ChartConfig, width, height int) renderable {
	switch {
	case c.ChartType == "geo" && len(c.Points) > 0:
		return geoChart(c, width, height)
	case c.ChartType == "line" && len(c.Labels()) >= 2:
		return lineChart(c, width, height)
	}
	return barChart(c, width, height)
}

// inlineSVG is the page's chart helper. Empty charts and render failures
// draw a placeholder instead.
func inlineSVG(c *engine.ChartConfig) template.HTML {
	var buf bytes.Buffer
	if err := SVG(&buf, c, inlineWidth, inlineHeight); err != nil {
		msg := "No data"
		if !errors.Is(err, ErrNoData) {
			msg = "Chart unavailable"
		}
		return template.HTML(`<div class="dim chart-empty">` + msg + `</div>`)
	}
	out := bytes.Replace(buf.Bytes(), []byte("<svg "), []byte(`<svg class="chart" `), 1)
	return template.HTML(out)
}

// escaped copies the text of a chart config with HTML escaping applied.
// go-chart writes SVG text nodes verbatim.
func escaped(c *engine.ChartConfig) *engine.ChartConfig {
	out := *c
	out.Title = html.EscapeString(c.Title)
	out.XAxis = html.EscapeString(c.XAxis)
	out.YAxis = html.EscapeString(c.YAxis)
	out.Series = make([]engine.ChartSeries, len(c.Series))
	for i, s := range c.Series {
		s.Name = html.EscapeString(s.Name)
		data := make([]engine.ChartPoint, len(s.Data))
		for j, p := range s.Data {
			p.Label = html.EscapeString(p.Label)
			data[j] = p
		}
		s.Data = data
		out.Series[i] = s
	}
	out.Points = make([]engine.GeoPoint, len(c.Points))
	for i, p := range c.Points {
		p.Label = html.EscapeString(p.Label)
		out.Points[i] = p
	}
	return &out
}

func barChart(c *engine.ChartConfig, width, height int) chart.BarChart {
	var bars []chart.Value
	switch {
	case len(c.Points) > 0:
		for _, p := range c.Points {
			bars = append(bars, chart.Value{Label: p.Label, Value: p.Value})
		}
	case len(c.Series) == 1:
		for _, p := range c.Series[0].Data {
			bars = append(bars, chart.Value{Label: p.Label, Value: p.Value})
		}
	default:
		// Multi-series with a single x label: one bar per series.
		for _, s := range c.Series {
			for _, p := range s.Data {
				bars = append(bars, chart.Value{Label: fmt.Sprintf("%s %s", p.Label, s.Name), Value: p.Value})
			}
		}
	}

	for i := range bars {
		col := colorAt(c, i, len(c.Series) == 1 || len(c.Points) > 0)
		bars[i].Style = chart.Style{FillColor: col, StrokeColor: col}
	}

	barWidth := (width - 120) / (2 * len(bars))
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 4 {
		barWidth = 4
	}

	return chart.BarChart{
		Title:    c.Title,
		Width:    width,
		Height:   height,
		BarWidth: barWidth,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.Style{FontSize: 8},
		YAxis: chart.YAxis{
			Name:  c.YAxis,
			Range: &chart.ContinuousRange{Min: 0, Max: upperBound(c)},
		},
		Bars: bars,
	}
}

func lineChart(c *engine.ChartConfig, width, height int) *chart.Chart {
	labels := c.Labels()
	ticks := make([]chart.Tick, len(labels))
	xs := make([]float64, len(labels))
	for i, l := range labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}

	graph := &chart.Chart{
		Title:  c.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{Name: c.XAxis, Ticks: ticks},
		YAxis: chart.YAxis{
			Name:  c.YAxis,
			Range: &chart.ContinuousRange{Min: 0, Max: upperBound(c)},
		},
	}

	for i, s := range c.Series {
		ys := make([]float64, len(xs))
		for j, p := range s.Data {
			if j < len(ys) {
				ys[j] = p.Value
			}
		}
		col := colorAt(c, i, false)
		graph.Series = append(graph.Series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3},
		})
	}

	if c.ShowLegend && len(c.Series) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(graph)}
	}
	return graph
}

// geoChart plots one dot per location at its lon/lat. Both axes get an
// explicit padded range so a single location still has a drawable extent.
func geoChart(c *engine.ChartConfig, width, height int) *chart.Chart {
	pts := c.Points
	lons := make([]float64, len(pts))
	lats := make([]float64, len(pts))
	minLon, maxLon, minLat, maxLat := pts[0].Lon, pts[0].Lon, pts[0].Lat, pts[0].Lat
	for i, p := range pts {
		lons[i], lats[i] = p.Lon, p.Lat
		minLon, maxLon = min(minLon, p.Lon), max(maxLon, p.Lon)
		minLat, maxLat = min(minLat, p.Lat), max(maxLat, p.Lat)
	}

	top := c.MaxValue()
	col := colorAt(c, 0, true)
	dots := chart.ContinuousSeries{
		Name:    c.Title,
		XValues: lons,
		YValues: lats,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotColor:    col.WithAlpha(160),
			DotWidthProvider: func(_, _ chart.Range, i int, _, _ float64) float64 {
				if top <= 0 {
					return 3
				}
				return 3 + 15*pts[i].Value/top
			},
		},
	}

	// Label the largest locations only; every label would overlap.
	order := make([]int, len(pts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pts[order[a]].Value > pts[order[b]].Value })
	if len(order) > geoLabels {
		order = order[:geoLabels]
	}
	labels := chart.AnnotationSeries{Name: "labels"}
	for _, i := range order {
		labels.Annotations = append(labels.Annotations, chart.Value2{XValue: pts[i].Lon, YValue: pts[i].Lat, Label: pts[i].Label})
	}

	return &chart.Chart{
		Title:  c.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis:  chart.XAxis{Name: "Longitude", Range: &chart.ContinuousRange{Min: minLon - 2, Max: maxLon + 2}},
		YAxis:  chart.YAxis{Name: "Latitude", Range: &chart.ContinuousRange{Min: minLat - 2, Max: maxLat + 2}},
		Series: []chart.Series{dots, labels},
	}
}

// upperBound leaves headroom above the tallest value and never collapses
// the y range to zero height.
func upperBound(c *engine.ChartConfig) float64 {
	m := c.MaxValue()
	if m <= 0 {
		return 1
	}
	return m * 1.1
}

// colorAt picks the i-th color. Single-series charts keep one color for
// every bar.
func colorAt(c *engine.ChartConfig, i int, single bool) drawing.Color {
	palette := c.Colors
	if len(palette) == 0 {
		return chart.ColorBlue
	}
	if single {
		return drawing.ColorFromHex(palette[0])
	}
	return drawing.ColorFromHex(palette[i%len(palette)])
}
