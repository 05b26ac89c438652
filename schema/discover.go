package schema

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic classification of a CSV header + sample
// ============================================================================
// Classification pipeline per column:
//   1. Sample values → detect type (numeric, date, string)
//   2. Type + cardinality → classify role (dimension, measure, temporal, skip)
//   3. First date column → Temporal with the layout every sample parses with
//   4. lat/lon measures + the dimension that determines them → Geo
// ============================================================================

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize int    // Max rows to inspect (0 = all). Default: 1000
	Name       string // Dataset name override
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{SampleSize: 1000, Name: "Discovered dataset"}
}

// DiscoverFromCSV generates a Config by inspecting CSV data.
// Columns that look like identifiers or are always empty are left out.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	limit := opt.SampleSize
	if limit <= 0 {
		limit = 100000 // safety cap
	}

	var rows [][]string
	for len(rows) < limit {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV has no data rows")
	}

	config := &Config{Name: opt.Name}
	analyses := make([]columnAnalysis, 0, len(headers))
	for i, header := range headers {
		col := analyzeColumn(strings.TrimSpace(header), i, rows)
		if col.role == roleSkipped {
			continue
		}
		analyses = append(analyses, col)
		config.Columns = append(config.Columns, col.toColumn())
		if col.role == roleTemporal && config.Temporal == nil {
			config.Temporal = &Temporal{Column: col.key, Layout: col.layout}
		}
	}

	// Only the first date column drives the derived dimensions.
	for i := range config.Columns {
		if config.Columns[i].Role == RoleTemporal && (config.Temporal == nil || config.Columns[i].Key != config.Temporal.Column) {
			config.Columns[i].Role = RoleDimension
		}
	}

	config.Geo = detectGeo(analyses, rows)
	return config, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnRole int

const (
	roleDimension columnRole = iota
	roleMeasure
	roleTemporal
	roleSkipped
)

type columnType int

const (
	typeString columnType = iota
	typeNumeric
	typeDate
)

type columnAnalysis struct {
	header      string
	key         string
	index       int
	colType     columnType
	role        columnRole
	layout      string
	uniqueCount int
	totalCount  int
	hasDecimals bool
}

// analyzeColumn inspects all values in a column and classifies it.
func analyzeColumn(header string, index int, rows [][]string) columnAnalysis {
	col := columnAnalysis{
		header:     header,
		key:        toSnakeCase(header),
		index:      index,
		totalCount: len(rows),
	}

	values := make([]string, 0, len(rows))
	unique := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[index])
		if isNull(val) {
			continue
		}
		values = append(values, val)
		unique[val] = true
	}
	col.uniqueCount = len(unique)

	if len(values) == 0 {
		col.role = roleSkipped
		return col
	}

	col.colType, col.layout = detectType(values)
	if col.colType == typeNumeric {
		for _, v := range values {
			if strings.Contains(v, ".") {
				col.hasDecimals = true
				break
			}
		}
	}
	col.classifyRole()
	return col
}

// classifyRole determines dimension vs measure vs temporal vs skip.
func (col *columnAnalysis) classifyRole() {
	switch col.colType {
	case typeDate:
		col.role = roleTemporal

	case typeNumeric:
		// Continuous data is always a measure, even when every value is unique.
		if col.hasDecimals {
			col.role = roleMeasure
			return
		}
		if col.uniqueCount == col.totalCount && col.totalCount > 10 {
			col.role = roleSkipped // likely an ID
			return
		}
		col.role = roleMeasure

	default:
		if col.uniqueCount == col.totalCount && col.totalCount > 10 {
			col.role = roleSkipped // identifier or free text
			return
		}
		col.role = roleDimension
	}
}

func (col *columnAnalysis) toColumn() Column {
	role := RoleDimension
	switch col.role {
	case roleMeasure:
		role = RoleMeasure
	case roleTemporal:
		role = RoleTemporal
	}
	return Column{
		Header: col.header,
		Key:    col.key,
		Role:   role,
		Label:  toDisplayName(col.header),
	}
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// dateLayouts are tried in order; day-first wins over month-first when a
// sample fits both.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// detectType requires 80%+ of non-null values to match for numeric and
// every value to parse with one layout for dates.
func detectType(values []string) (columnType, string) {
	if layout := detectLayout(values); layout != "" {
		return typeDate, layout
	}

	numCount := 0
	for _, v := range values {
		if isNumeric(v) {
			numCount++
		}
	}
	if numCount >= int(float64(len(values))*0.8) {
		return typeNumeric, ""
	}
	return typeString, ""
}

func detectLayout(values []string) string {
	for _, layout := range dateLayouts {
		ok := true
		for _, v := range values {
			if _, err := time.Parse(layout, v); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return layout
		}
	}
	return ""
}

func isNumeric(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "-")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isNull(s string) bool {
	switch s {
	case "", "null", "NULL", "N/A", "n/a":
		return true
	}
	return false
}

// ============================================================================
// GEO DETECTION
// ============================================================================

var (
	latKeys = map[string]bool{"lat": true, "latitude": true}
	lonKeys = map[string]bool{"lon": true, "lng": true, "longitude": true}
)

// detectGeo pairs lat/lon measures with the dimension whose every value
// maps to exactly one latitude. The first such dimension wins.
func detectGeo(columns []columnAnalysis, rows [][]string) *Geo {
	var lat, lon *columnAnalysis
	for i := range columns {
		c := &columns[i]
		if c.role != roleMeasure {
			continue
		}
		switch {
		case latKeys[c.key] && lat == nil:
			lat = c
		case lonKeys[c.key] && lon == nil:
			lon = c
		}
	}
	if lat == nil || lon == nil {
		return nil
	}

	for _, c := range columns {
		if c.role != roleDimension || c.uniqueCount < 2 {
			continue
		}
		if determines(c.index, lat.index, rows) {
			return &Geo{Label: c.key, Lat: lat.key, Lon: lon.key}
		}
	}
	return nil
}

// determines reports whether every value in column a maps to one value in column b.
func determines(a, b int, rows [][]string) bool {
	seen := make(map[string]string)
	for _, row := range rows {
		if a >= len(row) || b >= len(row) {
			continue
		}
		k, v := strings.TrimSpace(row[a]), strings.TrimSpace(row[b])
		if prev, ok := seen[k]; ok && prev != v {
			return false
		}
		seen[k] = v
	}
	return len(seen) > 0
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}

	s = strings.ToLower(result.String())
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "__", "_")
	return strings.Trim(s, "_")
}

// toDisplayName cleans a header or key for human display.
// "purchase_date" → "Purchase Date", "Local da compra" stays as is.
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[:1])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}
