package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FILTER TESTS
// ============================================================================

func rec(region, category, seller string, revenue float64) Record {
	return Record{
		Dimensions: map[string]string{"region": region, "category": category, "seller": seller},
		Measures:   map[string]float64{"revenue": revenue},
	}
}

var sample = []Record{
	rec("SP", "books", "Ana", 100),
	rec("RJ", "toys", "Beto", 50),
	rec("SP", "toys", "Caio", 30),
	rec("MG", "books", "Ana", 70),
	rec("SP", "books", "Beto", 5),
}

func revenues(view RecordView) []float64 {
	out := make([]float64, view.Len())
	for i := range out {
		out[i] = view.Measure(i, "revenue")
	}
	return out
}

func TestApplyFiltersSpecExample(t *testing.T) {
	view := NewSliceView([]Record{
		rec("SP", "", "", 100),
		rec("RJ", "", "", 50),
		rec("SP", "", "", 30),
	})

	sp := ApplyFilters(view, Filters{Dimensions: map[string][]string{"region": {"SP"}}})
	assert.Equal(t, []float64{100, 30}, revenues(sp))
	assert.Equal(t, 130.0, SumMeasure(sp, "revenue"))

	all := ApplyFilters(view, Filters{Dimensions: map[string][]string{"region": {AllValue}}})
	assert.Equal(t, []float64{100, 50, 30}, revenues(all))
	assert.Equal(t, 180.0, SumMeasure(all, "revenue"))
}

func TestApplyFiltersMatchAllReturnsInput(t *testing.T) {
	view := NewSliceView(sample)
	cases := map[string]Filters{
		"nil map":    {},
		"empty list": {Dimensions: map[string][]string{"region": {}}},
		"ALL":        {Dimensions: map[string][]string{"region": {AllValue}, "seller": nil}},
		"ALL in set": {Dimensions: map[string][]string{"category": {"books", AllValue}}},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			got := ApplyFilters(view, f)
			assert.Same(t, view, got)
			assert.Empty(t, cmp.Diff(sample, Collect(got)))
		})
	}
}

func TestApplyFiltersPrecisionAndRecall(t *testing.T) {
	view := NewSliceView(sample)
	regions := []string{AllValue, "SP", "RJ", "MG", "BA"}
	categories := []string{AllValue, "books", "toys"}
	sellers := [][]string{nil, {"Ana"}, {"Ana", "Beto"}, {"Nobody"}}

	for _, r := range regions {
		for _, c := range categories {
			for _, s := range sellers {
				f := Filters{Dimensions: map[string][]string{
					"region":   {r},
					"category": {c},
					"seller":   s,
				}}
				got := ApplyFilters(view, f)

				var want []float64
				for i := 0; i < view.Len(); i++ {
					if matches(view, i, f) {
						want = append(want, view.Measure(i, "revenue"))
					}
				}
				if want == nil {
					want = []float64{}
				}
				require.Equal(t, want, revenues(got), "region=%s category=%s sellers=%v", r, c, s)
			}
		}
	}
}

func TestApplyFiltersExactMatch(t *testing.T) {
	view := NewSliceView(sample)
	got := ApplyFilters(view, Filters{Dimensions: map[string][]string{"region": {"sp"}}})
	assert.Equal(t, 0, got.Len(), "matching is case sensitive")
}

func TestApplyFiltersNoMatchIsEmptyNotError(t *testing.T) {
	view := NewSliceView(sample)
	got := ApplyFilters(view, Filters{Dimensions: map[string][]string{"region": {"AC"}}})
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, 0.0, SumMeasure(got, "revenue"))
	assert.Equal(t, 0.0, MaxMeasure(got, "revenue"))
	assert.Equal(t, 0.0, AvgMeasure(got, "revenue"))
}

func TestApplyFiltersDoesNotMutateDataset(t *testing.T) {
	before := Collect(NewSliceView(sample))
	view := NewSliceView(sample)
	_ = ApplyFilters(view, Filters{Dimensions: map[string][]string{"region": {"SP"}, "seller": {"Ana"}}})
	assert.Empty(t, cmp.Diff(before, sample))
}

func TestFiltersActive(t *testing.T) {
	f := Filters{Dimensions: map[string][]string{"a": {"x"}, "b": {AllValue}, "c": {}}}
	assert.Equal(t, []string{"x"}, f.Active("a"))
	assert.Nil(t, f.Active("b"))
	assert.Nil(t, f.Active("c"))
	assert.Nil(t, f.Active("missing"))
	assert.False(t, f.IsEmpty())
	assert.True(t, Filters{Dimensions: map[string][]string{"b": {AllValue}}}.IsEmpty())
}

// matches is the per-record reading of the filter rules: every dimension
// with a value other than ALL must contain the record's value.
func matches(view RecordView, i int, f Filters) bool {
	for dim, vals := range f.Dimensions {
		if len(vals) == 0 || contains(vals, AllValue) {
			continue
		}
		if !contains(vals, view.Dimension(i, dim)) {
			return false
		}
	}
	return true
}

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
