package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting via RecordView
// ============================================================================
// All functions operate on RecordView: zero-copy access to any data source.
// Grouping produces SubViews (index lists into parent view).
// Every aggregation over an empty view yields 0.
// ============================================================================

// Aggregation names understood by the engine.
const (
	AggSum   = "sum"
	AggCount = "count"
	AggAvg   = "avg"
	AggMax   = "max"
	AggMin   = "min"
	AggList  = "list"
)

var knownAggregations = map[string]bool{
	AggSum: true, AggCount: true, AggAvg: true, AggMax: true, AggMin: true, AggList: true,
}

// ValidAggregation reports whether the aggregation name is supported.
func ValidAggregation(aggregation string) bool {
	return knownAggregations[aggregation]
}

// GroupAndAggregate is the main entry point for the aggregation pipeline.
// Pipeline: group → aggregate → sort → limit.
func GroupAndAggregate(
	view RecordView,
	groupBy []string,
	measure string,
	aggregation string,
	sortBy string,
	limit int,
) []Group {
	if view.Len() == 0 {
		return nil
	}

	// 1. Group
	var groups []Group
	switch len(groupBy) {
	case 0:
		groups = []Group{{
			Key:   "all",
			Label: "Total",
			View:  view,
		}}
	case 1:
		groups = groupBySingle(view, groupBy[0])
	default:
		groups = groupByMulti(view, groupBy)
	}

	// 2. Aggregate
	for i := range groups {
		aggregateGroup(&groups[i], measure, aggregation)
		for j := range groups[i].SubGroups {
			aggregateGroup(&groups[i].SubGroups[j], measure, aggregation)
		}
	}

	// 3. Sort
	SortGroups(groups, sortBy)

	// 4. Limit
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	return groups
}

// ============================================================================
// GROUPING
// ============================================================================

func groupBySingle(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, dimension)
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

func groupByMulti(view RecordView, dimensions []string) []Group {
	primaryGroups := groupBySingle(view, dimensions[0])
	for i := range primaryGroups {
		primaryGroups[i].SubGroups = groupBySingle(primaryGroups[i].View, dimensions[1])
	}
	return primaryGroups
}

// ============================================================================
// AGGREGATION
// ============================================================================

func aggregateGroup(group *Group, measure string, aggregation string) {
	group.Count = group.View.Len()
	group.Value = Aggregate(group.View, measure, aggregation)
}

// Aggregate computes one aggregation of a measure over a view.
// "list" aggregates as "sum" so list tables can still be sorted by value.
func Aggregate(view RecordView, measure string, aggregation string) float64 {
	switch aggregation {
	case AggCount:
		return float64(view.Len())
	case AggAvg:
		return AvgMeasure(view, measure)
	case AggMax:
		return MaxMeasure(view, measure)
	case AggMin:
		return MinMeasure(view, measure)
	default:
		return SumMeasure(view, measure)
	}
}

// SumMeasure sums a named measure across a view.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		total += view.Measure(i, measure)
	}
	return total
}

// AvgMeasure computes average of a named measure.
func AvgMeasure(view RecordView, measure string) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	return SumMeasure(view, measure) / float64(n)
}

// MaxMeasure returns the largest value of a named measure.
func MaxMeasure(view RecordView, measure string) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	m := math.Inf(-1)
	for i := 0; i < n; i++ {
		if v := view.Measure(i, measure); v > m {
			m = v
		}
	}
	return m
}

// MinMeasure returns the smallest value of a named measure.
func MinMeasure(view RecordView, measure string) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	m := math.Inf(1)
	for i := 0; i < n; i++ {
		if v := view.Measure(i, measure); v < m {
			m = v
		}
	}
	return m
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts aggregate groups by the specified sort mode.
// Sorting is stable, so ties keep their first-seen order.
func SortGroups(groups []Group, sortBy string) {
	var less func(a, b Group) bool
	switch sortBy {
	case "value_desc":
		less = func(a, b Group) bool { return a.Value > b.Value }
	case "value_asc":
		less = func(a, b Group) bool { return a.Value < b.Value }
	case "date_asc", "chronological":
		less = func(a, b Group) bool { return parseSortableDate(a.Key) < parseSortableDate(b.Key) }
	case "date_desc":
		less = func(a, b Group) bool { return parseSortableDate(a.Key) > parseSortableDate(b.Key) }
	case "month_asc":
		less = func(a, b Group) bool { return MonthNumber(a.Key) < MonthNumber(b.Key) }
	case "label_asc", "alpha_asc":
		less = func(a, b Group) bool { return strings.ToLower(a.Key) < strings.ToLower(b.Key) }
	case "label_desc":
		less = func(a, b Group) bool { return strings.ToLower(a.Key) > strings.ToLower(b.Key) }
	default:
		return // preserve grouping order
	}
	sort.SliceStable(groups, func(i, j int) bool { return less(groups[i], groups[j]) })
}

// MonthNumber converts an English month name ("March") to 1–12, or 0.
func MonthNumber(name string) int {
	t, err := time.Parse("January", name)
	if err != nil {
		return 0
	}
	return int(t.Month())
}

// parseSortableDate maps "2021-03", "2021" and "Mar-2021" keys to a sortable int.
func parseSortableDate(key string) int {
	for _, layout := range []string{"2006-01", "Jan-2006"} {
		if t, err := time.Parse(layout, key); err == nil {
			return t.Year()*100 + int(t.Month())
		}
	}
	if t, err := time.Parse("2006", key); err == nil {
		return t.Year() * 100
	}
	return 0
}

// UniqueValues returns distinct non-empty values for a dimension in first-seen order.
func UniqueValues(view RecordView, dimension string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := view.Dimension(i, dimension)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// LabelForDimension returns a display label for a dimension key:
// "payment_type" → "Payment type".
func LabelForDimension(dimension string) string {
	if len(dimension) == 0 {
		return ""
	}
	s := strings.ReplaceAll(dimension, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

// LabelForAggregation returns a human-readable label for an aggregation type.
func LabelForAggregation(aggregation string) string {
	switch aggregation {
	case AggSum:
		return "Amount"
	case AggCount:
		return "Count"
	case AggAvg:
		return "Average"
	case AggMax:
		return "Maximum"
	case AggMin:
		return "Minimum"
	default:
		return "Value"
	}
}

func errUnknownAggregation(aggregation string) error {
	return fmt.Errorf("unknown aggregation %q", aggregation)
}
