package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// ============================================================================
// EXECUTOR — One panel against an already-filtered view
// ============================================================================
// Entry point: Execute(spec, view, opts...)
//
// Pipeline:
//   1. Normalize the QuerySpec (fix inconsistent intent/aggregation combos)
//   2. Group and aggregate
//   3. Dispatch to builder (chart / table / metric)
//
// Execute never filters and never mutates the view; the caller filters once
// and runs every panel of a dashboard against the same SubView.
// ============================================================================

// Intents understood by Execute.
const (
	IntentChart  = "chart"
	IntentTable  = "table"
	IntentMetric = "metric"
)

// Execute runs a QuerySpec against a RecordView and returns a render-ready Result.
// An empty view is not an error: charts and tables come back empty and metrics 0.
func Execute(spec QuerySpec, view RecordView, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)

	if err := ValidateQuerySpec(spec); err != nil {
		return nil, err
	}
	spec = NormalizeQuerySpec(spec)

	measure := spec.Measure
	if measure == "" {
		measure = cfg.DefaultMeasure
	}

	cfg.Logger.Debug("executing panel",
		zap.String("panel", spec.ID),
		zap.String("intent", spec.Intent),
		zap.String("aggregation", spec.Aggregation),
		zap.String("measure", measure),
		zap.Int("records", view.Len()))

	result := &Result{
		ID:    spec.ID,
		Type:  spec.Intent,
		Title: spec.Title,
		Count: view.Len(),
	}

	switch spec.Intent {
	case IntentMetric:
		result.Metric = BuildMetric(spec.Title, view, measure, spec.Aggregation, cfg.Unit)

	case IntentTable:
		groups := GroupAndAggregate(view, spec.GroupBy, measure, spec.Aggregation, spec.SortBy, spec.Limit)
		result.TableData = BuildTable(spec, groups, view, measure, cfg.Unit)

	case IntentChart:
		groups := GroupAndAggregate(view, spec.GroupBy, measure, spec.Aggregation, spec.SortBy, spec.Limit)
		result.ChartConfig = BuildChart(spec, groups, cfg.Geo)
		if result.ChartConfig == nil {
			result.ChartConfig = emptyChart(spec)
		}
	}

	return result, nil
}

// BuildMetric computes a scalar aggregate over the whole view.
// Sums are prefixed with the unit; counts are plain.
func BuildMetric(label string, view RecordView, measure, aggregation, unit string) *Metric {
	value := Aggregate(view, measure, aggregation)
	prefix := unit
	if aggregation == AggCount {
		prefix = ""
	}
	return &Metric{
		Label:    label,
		Value:    FormatNumber(value, prefix),
		RawValue: value,
		Count:    view.Len(),
	}
}

// ============================================================================
// QUERYSPEC VALIDATION + NORMALIZATION
// ============================================================================

// ValidateQuerySpec rejects specs the engine cannot run.
func ValidateQuerySpec(spec QuerySpec) error {
	switch spec.Intent {
	case IntentChart, IntentTable, IntentMetric:
	default:
		return fmt.Errorf("panel %q: unknown intent %q", spec.ID, spec.Intent)
	}
	if !ValidAggregation(spec.Aggregation) {
		return fmt.Errorf("panel %q: %w", spec.ID, errUnknownAggregation(spec.Aggregation))
	}
	if spec.Limit < 0 {
		return fmt.Errorf("panel %q: negative limit %d", spec.ID, spec.Limit)
	}
	return nil
}

// NormalizeQuerySpec applies deterministic rules to fix inconsistent combinations.
func NormalizeQuerySpec(spec QuerySpec) QuerySpec {
	// Rule 1: "list" aggregation must be a table
	if spec.Aggregation == AggList && spec.Intent != IntentTable {
		spec.Intent = IntentTable
		spec.Visualize = "table"
	}

	// Rule 2: charts must have a groupBy dimension
	if spec.Intent == IntentChart && len(spec.GroupBy) == 0 {
		spec.Intent = IntentMetric
		spec.Visualize = ""
	}

	return spec
}

func emptyChart(spec QuerySpec) *ChartConfig {
	chartType := spec.Visualize
	if chartType == "" {
		chartType = "bar"
	}
	return &ChartConfig{
		ChartType: chartType,
		Title:     spec.Title,
		Series:    []ChartSeries{},
	}
}
