package render

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/salesdash/dashboard"
	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/source"
)

// ============================================================================
// FIXTURES
// ============================================================================

func barConfig() *engine.ChartConfig {
	return &engine.ChartConfig{
		ChartType: "bar",
		Title:     "Top states",
		XAxis:     "State",
		YAxis:     "Total",
		Series: []engine.ChartSeries{{Name: "Top states", Data: []engine.ChartPoint{
			{Label: "SP", Value: 300.5},
			{Label: "<RJ>", Value: 120},
		}}},
		Colors: []string{"#4F46E5"},
	}
}

func lineConfig() *engine.ChartConfig {
	return &engine.ChartConfig{
		ChartType:  "line",
		Title:      "Monthly income",
		XAxis:      "Month",
		ShowLegend: true,
		Series: []engine.ChartSeries{
			{Name: "2021", Data: []engine.ChartPoint{{Label: "January", Value: 10}, {Label: "February", Value: 20}}},
			{Name: "2022", Data: []engine.ChartPoint{{Label: "January", Value: 5}, {Label: "February", Value: 0}}},
		},
		Colors: []string{"#4F46E5", "#10B981"},
	}
}

func geoConfig() *engine.ChartConfig {
	return &engine.ChartConfig{
		ChartType: "geo",
		Title:     "Income by state",
		XAxis:     "State",
		Series:    []engine.ChartSeries{{Name: "x", Data: []engine.ChartPoint{{Label: "SP", Value: 10}}}},
		Points: []engine.GeoPoint{
			{Label: "SP", Lat: -22.19, Lon: -48.79, Value: 10},
			{Label: "RJ", Lat: -22.25, Lon: -42.66, Value: 5},
		},
	}
}

func built(t *testing.T, values map[string][]string) *dashboard.Dashboard {
	t.Helper()
	ds, err := source.NewEmbedded().Load(context.Background())
	require.NoError(t, err)
	d, err := dashboard.Build(ds, dashboard.Selection{Values: values}, dashboard.DefaultLayout())
	require.NoError(t, err)
	return d
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return rows
}

// ============================================================================
// CSV + JSON
// ============================================================================

func TestWriteResultCSV(t *testing.T) {
	tests := []struct {
		name   string
		result *engine.Result
		want   [][]string
	}{
		{
			name:   "nil",
			result: nil,
			want:   [][]string{{"Result", "No data"}},
		},
		{
			name:   "single series",
			result: &engine.Result{ChartConfig: barConfig()},
			want:   [][]string{{"State", "Total"}, {"SP", "300.50"}, {"<RJ>", "120"}},
		},
		{
			name:   "multi series",
			result: &engine.Result{ChartConfig: lineConfig()},
			want:   [][]string{{"Month", "2021", "2022"}, {"January", "10", "5"}, {"February", "20", "0"}},
		},
		{
			name:   "geo",
			result: &engine.Result{ChartConfig: geoConfig()},
			want:   [][]string{{"State", "Lat", "Lon", "Value"}, {"SP", "-22.19", "-48.79", "10"}, {"RJ", "-22.25", "-42.66", "5"}},
		},
		{
			name:   "metric",
			result: &engine.Result{Metric: &engine.Metric{Label: "Income", Value: "R$ 1.50 mil", RawValue: 1500}},
			want:   [][]string{{"Metric", "Value", "Raw"}, {"Income", "R$ 1.50 mil", "1500"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteResultCSV(&buf, tt.result))
			assert.Equal(t, tt.want, readCSV(t, buf.String()))
		})
	}
}

func TestWriteTableCSVWithSummary(t *testing.T) {
	table := &engine.TableData{
		Columns: []engine.Column{{Key: "state", Label: "State"}, {Key: "price", Label: "Income"}},
		Rows:    [][]string{{"SP", "10.00"}, {"RJ", "5.00"}},
		Summary: &engine.Summary{Label: "Total (2 records)", Values: map[string]string{"price": "R$ 15.00"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTableCSV(&buf, table))
	assert.Equal(t, [][]string{
		{"State", "Income"},
		{"SP", "10.00"},
		{"RJ", "5.00"},
		{"Total (2 records)", "R$ 15.00"},
	}, readCSV(t, buf.String()))
}

func TestWriteTableCSVNoColumns(t *testing.T) {
	var buf bytes.Buffer
	table := &engine.TableData{Summary: &engine.Summary{Label: "Total (0 records)"}}
	require.NoError(t, WriteTableCSV(&buf, table))
	assert.NotContains(t, buf.String(), "Total")
}

func TestRecordsCSVMatchesFilter(t *testing.T) {
	d := built(t, map[string][]string{"region": {"Sul"}})
	var buf bytes.Buffer
	require.NoError(t, WriteTableCSV(&buf, d.Records))

	rows := readCSV(t, buf.String())
	// header + matched rows + summary
	require.Len(t, rows, d.Matched+2)
	regionCol := -1
	for i, h := range rows[0] {
		if h == "Region" {
			regionCol = i
		}
	}
	require.NotEqual(t, -1, regionCol)
	for _, r := range rows[1 : len(rows)-1] {
		assert.Equal(t, "Sul", r[regionCol])
	}
}

func TestWriteJSON(t *testing.T) {
	var compact, pretty bytes.Buffer
	v := map[string]int{"a": 1}
	require.NoError(t, WriteJSON(&compact, v, false))
	require.NoError(t, WriteJSON(&pretty, v, true))
	assert.Equal(t, "{\"a\":1}\n", compact.String())
	assert.Equal(t, "{\n  \"a\": 1\n}\n", pretty.String())

	var back map[string]any
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, built(t, nil), false))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "Sales dashboard", back["title"])
}

// ============================================================================
// PNG
// ============================================================================

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestPNG(t *testing.T) {
	for name, c := range map[string]*engine.ChartConfig{
		"bar":  barConfig(),
		"line": lineConfig(),
		"geo":  geoConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, PNG(&buf, c, 0, 0))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}
}

func TestPNGSinglePointLineFallsBackToBars(t *testing.T) {
	c := lineConfig()
	for i := range c.Series {
		c.Series[i].Data = c.Series[i].Data[:1]
	}
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, c, 400, 300))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestPNGAllZeroValues(t *testing.T) {
	c := barConfig()
	for i := range c.Series[0].Data {
		c.Series[0].Data[i].Value = 0
	}
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, c, 400, 300))
}

func TestPNGNoData(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, errors.Is(PNG(&buf, nil, 0, 0), ErrNoData))
	assert.True(t, errors.Is(PNG(&buf, &engine.ChartConfig{ChartType: "bar"}, 0, 0), ErrNoData))
	assert.Zero(t, buf.Len())
}

// ============================================================================
// SVG + HTML
// ============================================================================

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, barConfig(), 400, 300))
	bars := buf.String()
	assert.True(t, strings.HasPrefix(bars, "<svg"))
	assert.Contains(t, bars, "&lt;RJ&gt;")
	assert.NotContains(t, bars, "<RJ>")

	buf.Reset()
	require.NoError(t, SVG(&buf, lineConfig(), 400, 300))
	assert.Contains(t, buf.String(), ">2021<")
	assert.Contains(t, buf.String(), ">2022<")

	buf.Reset()
	require.NoError(t, SVG(&buf, geoConfig(), 400, 300))
	assert.Equal(t, 2, strings.Count(buf.String(), "<circle"))
	assert.Contains(t, buf.String(), ">RJ<")

	buf.Reset()
	assert.True(t, errors.Is(SVG(&buf, nil, 0, 0), ErrNoData))
	assert.Zero(t, buf.Len())
}

func TestInlineSVG(t *testing.T) {
	assert.True(t, strings.HasPrefix(string(inlineSVG(barConfig())), `<svg class="chart" `))
	assert.Contains(t, string(inlineSVG(nil)), "No data")

	single := geoConfig()
	single.Points = single.Points[:1]
	assert.Equal(t, 1, strings.Count(string(inlineSVG(single)), "<circle"))
}

func TestHTML(t *testing.T) {
	d := built(t, map[string][]string{"region": {"Sudeste"}, "seller": {"Ana Souza", "Pedro Gomes"}})
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, d))
	page := buf.String()

	assert.Contains(t, page, "<title>Sales dashboard</title>")
	for _, m := range d.Metrics {
		assert.Contains(t, page, m.Value)
	}
	assert.Contains(t, page, `<option value="Sudeste" selected>Sudeste</option>`)
	assert.Contains(t, page, `<option value="Ana Souza" selected>`)
	assert.Contains(t, page, `<option value="Brasil">Brasil</option>`)
	assert.Contains(t, page, `type="number" name="top" min="2" max="10" value="5"`)
	assert.Contains(t, page, "/export.csv?region=Sudeste&amp;seller=")
	assert.Contains(t, page, "/charts/top_states_income.png?")
	assert.Equal(t, 10, strings.Count(page, `<svg class="chart"`))
}

func TestHTMLNoMatch(t *testing.T) {
	d := built(t, map[string][]string{"region": {"Atlantis"}})
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, d))
	assert.Contains(t, buf.String(), "No data")
	assert.NotContains(t, buf.String(), ">PNG</a>")
}

func TestErrorPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorPage(&buf, "Sales dashboard", errors.New("load file:x.csv: <boom>")))
	assert.Contains(t, buf.String(), "load file:x.csv: &lt;boom&gt;")
}

// ============================================================================
// TERMINAL
// ============================================================================

func TestTerminal(t *testing.T) {
	d := built(t, nil)
	var buf bytes.Buffer
	require.NoError(t, Terminal(&buf, d, DefaultTerminalOptions()))
	out := buf.String()

	assert.Contains(t, out, "Sales dashboard")
	assert.Contains(t, out, "R$ 85.34 mil")
	assert.Contains(t, out, "== Sellers ==")
	assert.Contains(t, out, "Top 5 sellers (income)")
	assert.Contains(t, out, "80 more rows")
}

func TestBarsText(t *testing.T) {
	out := BarsText(barConfig(), 10)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, 10, strings.Count(lines[0], "█"))
	assert.Equal(t, 3, strings.Count(lines[1], "█"))
	assert.Contains(t, lines[0], "300.50")
}

func TestTableText(t *testing.T) {
	table := &engine.TableData{
		Columns: []engine.Column{{Key: "state", Label: "State"}, {Key: "price", Label: "Income", Align: "right"}},
		Rows:    [][]string{{"SP", "10.00"}, {"RJ", "5.00"}, {"MG", "1.00"}},
		Summary: &engine.Summary{Label: "Total", Values: map[string]string{"price": "R$ 16.00"}},
	}
	out := TableText(table, 2)
	assert.Contains(t, out, "State")
	assert.Contains(t, out, "RJ")
	assert.NotContains(t, out, "MG")
	assert.Contains(t, out, "R$ 16.00")
	assert.Contains(t, out, "1 more rows")
}
