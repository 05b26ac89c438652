package engine

// ============================================================================
// FILTERS — Exact-Match Dimension Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL dimension constraints per record in one loop.
// Returns a SubView (index list into parent), zero data copy, parent order kept.
// ============================================================================

// ApplyFilters returns a view of records matching all dimension filters.
// Dimensions are AND-combined; values within a dimension are OR-combined.
// A dimension with no values, or with AllValue among them, is a no-op.
// With no active filter the original view is returned.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	if filters.IsEmpty() {
		return view
	}

	sets := make(map[string]map[string]bool)
	for dim := range filters.Dimensions {
		if allowed := filters.Active(dim); allowed != nil {
			sets[dim] = toSet(allowed)
		}
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if matchesAll(view, i, sets) {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

func matchesAll(view RecordView, i int, sets map[string]map[string]bool) bool {
	for dim, set := range sets {
		if !set[view.Dimension(i, dim)] {
			return false
		}
	}
	return true
}

// toSet converts a string slice to a lookup set.
func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
