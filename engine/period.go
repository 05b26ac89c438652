package engine

import "fmt"

// ============================================================================
// PERIOD HELPER
// ============================================================================

// PeriodDimension holds a sortable "2006-01" key for each record.
const PeriodDimension = "period"

// DerivePeriod builds a human-readable period string from a view's
// "period" dimension: "No data", "All time", "2021-03" or "2020-01 – 2023-12".
func DerivePeriod(view RecordView) string {
	if view.Len() == 0 {
		return "No data"
	}

	var earliest, latest string
	var earliestOrder, latestOrder int
	for i := 0; i < view.Len(); i++ {
		p := view.Dimension(i, PeriodDimension)
		order := parseSortableDate(p)
		if order == 0 {
			continue
		}
		if earliest == "" || order < earliestOrder {
			earliest, earliestOrder = p, order
		}
		if latest == "" || order > latestOrder {
			latest, latestOrder = p, order
		}
	}

	switch {
	case earliest == "":
		return "All time"
	case earliest == latest:
		return earliest
	}
	return fmt.Sprintf("%s – %s", earliest, latest)
}
