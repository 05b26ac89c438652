package render

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// CSV + JSON OUTPUT — Sheets-ready exports
// ============================================================================

// WriteResultCSV writes a panel: chart data first, then table data, then the
// metric as a single row.
func WriteResultCSV(w io.Writer, result *engine.Result) error {
	cw := csv.NewWriter(w)

	switch {
	case result == nil || result.Empty():
		cw.Write([]string{"Result", "No data"})
	case result.ChartConfig != nil:
		writeChartCSV(cw, result.ChartConfig)
	case result.TableData != nil:
		writeTableCSV(cw, result.TableData)
	case result.Metric != nil:
		cw.Write([]string{"Metric", "Value", "Raw"})
		cw.Write([]string{result.Metric.Label, result.Metric.Value, fmtNum(result.Metric.RawValue)})
	}

	cw.Flush()
	return cw.Error()
}

// WriteTableCSV writes a table with its header row and, when present, the
// summary as a final row.
func WriteTableCSV(w io.Writer, table *engine.TableData) error {
	cw := csv.NewWriter(w)
	writeTableCSV(cw, table)
	cw.Flush()
	return cw.Error()
}

func writeChartCSV(cw *csv.Writer, chart *engine.ChartConfig) {
	xLabel := chart.XAxis
	yLabel := chart.YAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	if yLabel == "" {
		yLabel = "Value"
	}

	// Geo → label, coordinates, value
	if len(chart.Points) > 0 {
		cw.Write([]string{xLabel, "Lat", "Lon", yLabel})
		for _, p := range chart.Points {
			cw.Write([]string{p.Label, fmtNum(p.Lat), fmtNum(p.Lon), fmtNum(p.Value)})
		}
		return
	}

	// Single series → two columns
	if len(chart.Series) == 1 {
		cw.Write([]string{xLabel, yLabel})
		for _, d := range chart.Series[0].Data {
			cw.Write([]string{d.Label, fmtNum(d.Value)})
		}
		return
	}

	// Multi-series → label + one column per series
	headers := []string{xLabel}
	for _, s := range chart.Series {
		headers = append(headers, s.Name)
	}
	cw.Write(headers)
	for i, label := range chart.Labels() {
		row := []string{label}
		for _, s := range chart.Series {
			if i < len(s.Data) {
				row = append(row, fmtNum(s.Data[i].Value))
			} else {
				row = append(row, "")
			}
		}
		cw.Write(row)
	}
}

func writeTableCSV(cw *csv.Writer, table *engine.TableData) {
	cw.Write(table.Headers())
	for _, row := range table.Rows {
		cw.Write(row)
	}
	if row := summaryCells(table); row != nil {
		cw.Write(row)
	}
}

// summaryCells lays the summary out under the table columns: the label in
// the first cell, each value under its column. Nil when there is nothing to
// show.
func summaryCells(table *engine.TableData) []string {
	s := table.Summary
	if s == nil || len(table.Columns) == 0 {
		return nil
	}
	row := make([]string, len(table.Columns))
	row[0] = s.Label
	for i, c := range table.Columns {
		if v, ok := s.Values[c.Key]; ok && i > 0 {
			row[i] = v
		}
	}
	return row
}

// WriteJSON writes v as JSON, indented when pretty is set.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// fmtNum prints whole numbers without decimals, fractions with two.
func fmtNum(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
