package engine

import (
	"fmt"
	"strconv"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from QuerySpec + Groups
// ============================================================================
// Column discovery uses view.DimensionKeys()/MeasureKeys(), so column order
// follows the view (the schema order for loaded datasets).
// ============================================================================

// BuildTable produces a TableData from a QuerySpec, groups, filtered view, and display unit.
func BuildTable(spec QuerySpec, groups []Group, view RecordView, measure string, unit string) *TableData {
	if spec.Aggregation == AggList {
		return BuildListTable(spec.Title, view, measure, unit)
	}
	return buildAggregatedTable(spec, groups, unit)
}

// ============================================================================
// LIST TABLE — Row per record
// ============================================================================

// BuildListTable renders every record of the view as one row: all dimension
// columns, then all measure columns. The summary totals the given measure.
func BuildListTable(title string, view RecordView, measure string, unit string) *TableData {
	dimKeys := view.DimensionKeys()
	mesKeys := view.MeasureKeys()
	columns := make([]Column, 0, len(dimKeys)+len(mesKeys))

	for _, key := range dimKeys {
		columns = append(columns, Column{
			Key:   key,
			Label: LabelForDimension(key),
			Type:  "text",
			Align: "left",
		})
	}
	for _, key := range mesKeys {
		colType := "number"
		if key == measure && unit != "" {
			colType = "currency"
		}
		columns = append(columns, Column{
			Key:   key,
			Label: LabelForDimension(key),
			Type:  colType,
			Align: "right",
		})
	}

	rows := make([][]string, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		row := make([]string, 0, len(columns))
		for _, key := range dimKeys {
			row = append(row, view.Dimension(i, key))
		}
		for _, key := range mesKeys {
			row = append(row, formatCell(view.Measure(i, key)))
		}
		rows = append(rows, row)
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: fmt.Sprintf("Total (%s records)", FormatInt(view.Len())),
			Values: map[string]string{
				measure: FormatCurrency(SumMeasure(view, measure), unit),
			},
		},
	}
}

// ============================================================================
// AGGREGATED TABLE — Summary rows
// ============================================================================

func buildAggregatedTable(spec QuerySpec, groups []Group, unit string) *TableData {
	groupLabel := "Group"
	if len(spec.GroupBy) > 0 {
		groupLabel = LabelForDimension(spec.GroupBy[0])
	}
	valueLabel := spec.YLabel
	if valueLabel == "" {
		valueLabel = LabelForAggregation(spec.Aggregation)
	}

	columns := []Column{
		{Key: "group", Label: groupLabel, Type: "text", Align: "left"},
		{Key: "value", Label: valueLabel, Type: "number", Align: "right"},
		{Key: "count", Label: "Count", Type: "number", Align: "center"},
	}

	rows := make([][]string, 0, len(groups))
	var totalValue float64
	var totalCount int

	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			FormatValue(g.Value, spec.Aggregation),
			FormatInt(g.Count),
		})
		totalValue += g.Value
		totalCount += g.Count
	}

	total := FormatValue(totalValue, spec.Aggregation)
	if spec.Aggregation == AggSum && unit != "" {
		total = FormatCurrency(totalValue, unit)
	}

	return &TableData{
		Title:   spec.Title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"value": total,
				"count": FormatInt(totalCount),
			},
		},
	}
}

// formatCell prints whole numbers without decimals and fractions with two.
func formatCell(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
