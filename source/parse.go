package source

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/schema"
)

// ============================================================================
// PARSERS — CSV and JSON rows into []engine.Record
// ============================================================================
// Both formats go through buildRecord, which reads fields by schema header
// (or key), parses measures, and adds the year/month/period dimensions
// derived from the temporal column.
//
// A row that cannot be parsed is skipped and counted in Dataset.Skipped.
// A header that maps to nothing, or a body with no usable row, fails the
// whole parse.
// ============================================================================

// Format is the wire format of a dataset body.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseCSV parses a CSV body whose header row names schema columns.
// Unknown columns are ignored.
func ParseCSV(r io.Reader, sch schema.Config) (*Dataset, error) {
	reader := csv.NewReader(r)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if err := checkHeaders(headers, sch); err != nil {
		return nil, err
	}

	ds := &Dataset{Schema: sch}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return nil, fmt.Errorf("read CSV: %w", err)
		}
		if err != nil {
			ds.Skipped++
			continue
		}

		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			fields[h] = row[i]
		}
		rec, err := buildRecord(sch, fields)
		if err != nil {
			ds.Skipped++
			continue
		}
		ds.records = append(ds.records, rec)
	}
	return finish(ds)
}

// ParseJSON parses an array of objects keyed by column header, the shape
// served by the products API. Values may be strings or numbers.
func ParseJSON(r io.Reader, sch schema.Config) (*Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	ds := &Dataset{Schema: sch}
	for _, row := range rows {
		fields := make(map[string]string, len(row))
		for k, v := range row {
			fields[strings.TrimSpace(k)] = stringify(v)
		}
		rec, err := buildRecord(sch, fields)
		if err != nil {
			ds.Skipped++
			continue
		}
		ds.records = append(ds.records, rec)
	}
	return finish(ds)
}

// Parse dispatches on format.
func Parse(r io.Reader, format Format, sch schema.Config) (*Dataset, error) {
	if format == FormatJSON {
		return ParseJSON(r, sch)
	}
	return ParseCSV(r, sch)
}

// FormatFor guesses the format from a file name or URL path.
func FormatFor(name string) Format {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

func finish(ds *Dataset) (*Dataset, error) {
	if len(ds.records) == 0 {
		return nil, fmt.Errorf("%w (%d malformed rows skipped)", ErrNoRows, ds.Skipped)
	}
	ds.LoadedAt = time.Now()
	return ds, nil
}

// checkHeaders fails when the header maps to no schema column, or lacks the
// temporal column every record needs.
func checkHeaders(headers []string, sch schema.Config) error {
	present := make(map[string]bool, len(headers))
	mapped := 0
	for _, h := range headers {
		if col, ok := sch.Lookup(h); ok {
			present[col.Key] = true
			mapped++
		}
	}
	if mapped == 0 {
		return fmt.Errorf("header %q matches no schema column", strings.Join(headers, ","))
	}
	if t := sch.Temporal; t != nil && !present[t.Column] {
		return fmt.Errorf("header has no temporal column %q", t.Column)
	}
	return nil
}

// ============================================================================
// RECORD BUILDING
// ============================================================================

func buildRecord(sch schema.Config, fields map[string]string) (engine.Record, error) {
	rec := engine.Record{
		Dimensions: make(map[string]string),
		Measures:   make(map[string]float64),
	}

	for _, col := range sch.Columns {
		raw, ok := lookupField(fields, col)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)

		if col.Role != schema.RoleMeasure {
			rec.Dimensions[col.Key] = raw
			continue
		}
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return engine.Record{}, fmt.Errorf("column %q: %w", col.Header, err)
		}
		rec.Measures[col.Key] = f
	}

	if t := sch.Temporal; t != nil {
		ts, err := time.Parse(t.Layout, rec.Dimensions[t.Column])
		if err != nil {
			return engine.Record{}, fmt.Errorf("column %q: %w", t.Column, err)
		}
		rec.Dimensions[schema.YearKey] = strconv.Itoa(ts.Year())
		rec.Dimensions[schema.MonthKey] = ts.Month().String()
		rec.Dimensions[schema.PeriodKey] = ts.Format("2006-01")
	}
	return rec, nil
}

func lookupField(fields map[string]string, col schema.Column) (string, bool) {
	if v, ok := fields[col.Header]; ok {
		return v, true
	}
	v, ok := fields[col.Key]
	return v, ok
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
