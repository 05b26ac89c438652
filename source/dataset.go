package source

import (
	"errors"
	"fmt"
	"time"

	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/schema"
)

// ============================================================================
// DATASET — Immutable loaded records + the schema they were parsed with
// ============================================================================

// Dataset is an ordered, immutable sequence of records. Nothing downstream
// writes to it: filters and groups read it through engine.RecordView.
type Dataset struct {
	Name     string
	Schema   schema.Config
	LoadedAt time.Time
	Skipped  int // malformed rows dropped while parsing

	records []engine.Record
}

// NewDataset wraps already-parsed records.
func NewDataset(name string, sch schema.Config, records []engine.Record) *Dataset {
	return &Dataset{Name: name, Schema: sch, LoadedAt: time.Now(), records: records}
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// View returns a read-only view over all records, keys in schema order.
func (d *Dataset) View() engine.RecordView {
	return engine.NewOrderedView(d.records, d.Schema.DimensionKeys(), d.Schema.MeasureKeys())
}

// ============================================================================
// ERRORS
// ============================================================================

// ErrNoRows is returned when a source yields no usable record.
var ErrNoRows = errors.New("dataset has no records")

// LoadError is the single failure class of a run: the dataset could not be
// read, fetched or parsed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// loadFailed wraps err as a *LoadError unless it already is one.
func loadFailed(source string, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Source: source, Err: err}
}
