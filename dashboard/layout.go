package dashboard

import (
	"fmt"
	"strings"

	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/schema"
)

// ============================================================================
// LAYOUT — What the dashboard shows, as configuration
// ============================================================================
// A Layout lists the filter widgets in the sidebar and the tabs of panels.
// Each panel is an engine.QuerySpec; Build runs them all against one
// filtered view.
// ============================================================================

// Control kinds.
const (
	KindSelect      = "select"
	KindMultiSelect = "multiselect"
	KindNumber      = "number"
)

// Option orderings for filter controls.
const (
	OrderFirstSeen = "first_seen"
	OrderAsc       = "asc"
)

// TopNKey is the query parameter of the top-N number input.
const TopNKey = "top"

// Layout describes one dashboard.
type Layout struct {
	Title        string          `json:"title" yaml:"title"`
	Currency     string          `json:"currency" yaml:"currency"`
	Measure      string          `json:"measure" yaml:"measure"` // revenue measure
	Filters      []FilterControl `json:"filters" yaml:"filters"`
	Tabs         []Tab           `json:"tabs" yaml:"tabs"`
	TopN         TopN            `json:"topN" yaml:"top_n"`
	RecordsTitle string          `json:"recordsTitle" yaml:"records_title"`
}

// FilterControl is one sidebar widget bound to a dimension.
// A select offers AllLabel as its match-all entry; an empty multiselect
// matches all.
type FilterControl struct {
	Key      string `json:"key" yaml:"key"`
	Label    string `json:"label" yaml:"label"`
	Kind     string `json:"kind" yaml:"kind"`
	AllLabel string `json:"allLabel,omitempty" yaml:"all_label,omitempty"`
	Order    string `json:"order,omitempty" yaml:"order,omitempty"`
}

// Tab groups panels under one heading.
type Tab struct {
	Title  string  `json:"title" yaml:"title"`
	Panels []Panel `json:"panels" yaml:"panels"`
}

// Panel is a QuerySpec plus dashboard-level switches. With TopN set the
// panel's limit follows the top-N input and "{n}" in its title is replaced.
type Panel struct {
	engine.QuerySpec `yaml:",inline"`
	TopN             bool `json:"topN,omitempty" yaml:"top_n,omitempty"`
}

// TopN bounds the top-N number input.
type TopN struct {
	Min     int `json:"min" yaml:"min"`
	Max     int `json:"max" yaml:"max"`
	Default int `json:"default" yaml:"default"`
}

// Clamp returns n bounded to [Min, Max], or Default when n is unset.
func (t TopN) Clamp(n int) int {
	if n == 0 {
		n = t.Default
	}
	if n < t.Min {
		return t.Min
	}
	if n > t.Max {
		return t.Max
	}
	return n
}

// DefaultLayout reproduces the original sales dashboard: income and sales
// quantity by state, month and category, plus top sellers.
func DefaultLayout() Layout {
	byMetric := func(suffix, agg, noun string) []Panel {
		return []Panel{
			{QuerySpec: engine.QuerySpec{ID: "map_" + suffix, Intent: engine.IntentChart, Aggregation: agg,
				GroupBy: []string{"state"}, SortBy: "value_desc", Visualize: "geo", Title: noun + " by state"}},
			{QuerySpec: engine.QuerySpec{ID: "top_states_" + suffix, Intent: engine.IntentChart, Aggregation: agg,
				GroupBy: []string{"state"}, SortBy: "value_desc", Limit: 5, Visualize: "bar", Title: "Top states (" + strings.ToLower(noun) + ")"}},
			{QuerySpec: engine.QuerySpec{ID: "monthly_" + suffix, Intent: engine.IntentChart, Aggregation: agg,
				GroupBy: []string{schema.MonthKey, schema.YearKey}, SortBy: "month_asc", Visualize: "line", Title: "Monthly " + strings.ToLower(noun)}},
			{QuerySpec: engine.QuerySpec{ID: "category_" + suffix, Intent: engine.IntentChart, Aggregation: agg,
				GroupBy: []string{"category"}, SortBy: "value_desc", Visualize: "bar", Title: noun + " by category"}},
		}
	}

	return Layout{
		Title:    "Sales dashboard",
		Currency: "R$",
		Measure:  "price",
		Filters: []FilterControl{
			{Key: "region", Label: "Region", Kind: KindSelect, AllLabel: "Brasil", Order: OrderAsc},
			{Key: schema.YearKey, Label: "Year", Kind: KindSelect, AllLabel: "Whole period", Order: OrderAsc},
			{Key: "seller", Label: "Sellers", Kind: KindMultiSelect, Order: OrderAsc},
			{Key: "category", Label: "Category", Kind: KindSelect, AllLabel: "All", Order: OrderAsc},
		},
		Tabs: []Tab{
			{Title: "Income", Panels: byMetric("income", engine.AggSum, "Income")},
			{Title: "Sales quantity", Panels: byMetric("qty", engine.AggCount, "Sales")},
			{Title: "Sellers", Panels: []Panel{
				{TopN: true, QuerySpec: engine.QuerySpec{ID: "top_sellers_income", Intent: engine.IntentChart, Aggregation: engine.AggSum,
					GroupBy: []string{"seller"}, SortBy: "value_desc", Visualize: "barh", Title: "Top {n} sellers (income)"}},
				{TopN: true, QuerySpec: engine.QuerySpec{ID: "top_sellers_qty", Intent: engine.IntentChart, Aggregation: engine.AggCount,
					GroupBy: []string{"seller"}, SortBy: "value_desc", Visualize: "barh", Title: "Top {n} sellers (sales quantity)"}},
			}},
		},
		TopN:         TopN{Min: 2, Max: 10, Default: 5},
		RecordsTitle: "Records",
	}
}

// Panels returns every panel in tab order.
func (l Layout) Panels() []Panel {
	var out []Panel
	for _, tab := range l.Tabs {
		out = append(out, tab.Panels...)
	}
	return out
}

// Validate checks the layout against the dataset schema.
func (l Layout) Validate(sch schema.Config) error {
	dims := make(map[string]bool)
	for _, k := range sch.DimensionKeys() {
		dims[k] = true
	}
	measures := make(map[string]bool)
	for _, k := range sch.MeasureKeys() {
		measures[k] = true
	}

	if !measures[l.Measure] {
		return fmt.Errorf("layout measure %q is not a schema measure", l.Measure)
	}

	seen := make(map[string]bool)
	for _, f := range l.Filters {
		if !dims[f.Key] {
			return fmt.Errorf("filter %q is not a schema dimension", f.Key)
		}
		if f.Key == TopNKey {
			return fmt.Errorf("filter key %q is reserved", TopNKey)
		}
		switch f.Kind {
		case KindSelect, KindMultiSelect:
		default:
			return fmt.Errorf("filter %q has unknown kind %q", f.Key, f.Kind)
		}
		if f.Kind == KindSelect && f.AllLabel == "" {
			return fmt.Errorf("select filter %q needs an all label", f.Key)
		}
		if seen[f.Key] {
			return fmt.Errorf("duplicate filter %q", f.Key)
		}
		seen[f.Key] = true
	}

	if l.TopN.Min < 1 || l.TopN.Min > l.TopN.Default || l.TopN.Default > l.TopN.Max {
		return fmt.Errorf("top-N bounds must satisfy 1 <= min <= default <= max, got %+v", l.TopN)
	}

	ids := make(map[string]bool)
	for _, p := range l.Panels() {
		if p.ID == "" {
			return fmt.Errorf("panel %q has no id", p.Title)
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate panel id %q", p.ID)
		}
		ids[p.ID] = true
		if err := engine.ValidateQuerySpec(p.QuerySpec); err != nil {
			return err
		}
		for _, g := range p.GroupBy {
			if !dims[g] {
				return fmt.Errorf("panel %q groups by unknown dimension %q", p.ID, g)
			}
		}
		if p.Measure != "" && !measures[p.Measure] {
			return fmt.Errorf("panel %q uses unknown measure %q", p.ID, p.Measure)
		}
		if p.Visualize == "geo" && sch.Geo == nil {
			return fmt.Errorf("panel %q is a map but the schema has no geo columns", p.ID)
		}
	}
	return nil
}
