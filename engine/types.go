package engine

// ============================================================================
// ENGINE TYPES — Records, Filters, Panel Queries, Render-Ready Results
// ============================================================================
// The engine knows nothing about sales. It sees rows as string dimensions and
// numeric measures, applies filters, groups, aggregates and hands back
// chart/table/metric payloads that any renderer can draw.
// ============================================================================

// AllValue is the universal filter value. A dimension filter containing it
// matches every record.
const AllValue = "ALL"

// ============================================================================
// RECORD — Generic data row
// ============================================================================

// Record is a single data row with string dimensions and numeric measures.
//
//	Record{Dimensions: {"state": "SP"}, Measures: {"price": 100}}
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// ============================================================================
// QUERYSPEC — What one dashboard panel computes
// ============================================================================

// QuerySpec defines what the engine should compute for one panel.
// Filtering is not part of it: a dashboard filters once and runs every
// panel against the same filtered view.
type QuerySpec struct {
	ID          string   `json:"id" yaml:"id"`
	Intent      string   `json:"intent" yaml:"intent"`           // "chart", "table", "metric"
	Aggregation string   `json:"aggregation" yaml:"aggregation"` // "sum", "count", "avg", "max", "min", "list"
	Measure     string   `json:"measure" yaml:"measure"`         // empty → default measure
	GroupBy     []string `json:"groupBy" yaml:"group_by"`        // ["state"], ["month", "year"]
	SortBy      string   `json:"sortBy" yaml:"sort_by"`          // see SortGroups
	Limit       int      `json:"limit" yaml:"limit"`             // 0 = all
	Visualize   string   `json:"visualize" yaml:"visualize"`     // "bar", "barh", "line", "geo", "table"
	Title       string   `json:"title" yaml:"title"`
	YLabel      string   `json:"yLabel,omitempty" yaml:"y_label"`
}

// Filters define which records to include.
// Keys are dimension names. Values are allowed values.
// OR within a dimension, AND across dimensions. Empty or ALL = no restriction.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions"`
}

// Active returns the selected values for a dimension, or nil when the
// dimension is unrestricted.
func (f Filters) Active(dimension string) []string {
	if f.Dimensions == nil {
		return nil
	}
	vals := f.Dimensions[dimension]
	if len(vals) == 0 {
		return nil
	}
	for _, v := range vals {
		if v == AllValue {
			return nil
		}
	}
	return vals
}

// HasFilter returns true if a specific dimension filter restricts records.
func (f Filters) HasFilter(dimension string) bool {
	return f.Active(dimension) != nil
}

// IsEmpty returns true if no filter restricts records.
func (f Filters) IsEmpty() bool {
	for dim := range f.Dimensions {
		if f.HasFilter(dim) {
			return false
		}
	}
	return true
}

// ============================================================================
// RESULT — Render-ready output of one panel
// ============================================================================

// Result is the engine's render-ready output.
type Result struct {
	ID    string `json:"id"`
	Type  string `json:"type"` // "chart", "table", "metric"
	Title string `json:"title"`

	// Exactly one of these is populated based on Type.
	ChartConfig *ChartConfig `json:"chartConfig,omitempty"`
	TableData   *TableData   `json:"tableData,omitempty"`
	Metric      *Metric      `json:"metric,omitempty"`

	// Count is the number of records the panel was computed over.
	Count int `json:"count"`
}

// Empty reports whether the result has nothing to draw.
func (r *Result) Empty() bool {
	switch {
	case r == nil:
		return true
	case r.ChartConfig != nil:
		return r.ChartConfig.Empty()
	case r.TableData != nil:
		return len(r.TableData.Rows) == 0
	case r.Metric != nil:
		return false
	}
	return true
}

// ============================================================================
// GROUP — Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
// Builders convert these into ChartConfig or TableData.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Count     int        `json:"count"`
	SubGroups []Group    `json:"subGroups,omitempty"`
	View      RecordView `json:"-"` // records in this group (zero-copy)
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Points     []GeoPoint    `json:"points,omitempty"` // chartType "geo" only
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// Empty reports whether the chart has no data points.
func (c *ChartConfig) Empty() bool {
	if c == nil {
		return true
	}
	if len(c.Points) > 0 {
		return false
	}
	for _, s := range c.Series {
		if len(s.Data) > 0 {
			return false
		}
	}
	return true
}

// Labels returns the x-axis labels in first-series order.
func (c *ChartConfig) Labels() []string {
	if c == nil || len(c.Series) == 0 {
		return nil
	}
	labels := make([]string, len(c.Series[0].Data))
	for i, p := range c.Series[0].Data {
		labels[i] = p.Label
	}
	return labels
}

// MaxValue returns the largest point value across all series.
func (c *ChartConfig) MaxValue() float64 {
	var m float64
	if c == nil {
		return m
	}
	for _, s := range c.Series {
		for _, p := range s.Data {
			if p.Value > m {
				m = p.Value
			}
		}
	}
	for _, p := range c.Points {
		if p.Value > m {
			m = p.Value
		}
	}
	return m
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// GeoPoint is a sized marker on a map.
type GeoPoint struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Headers returns the column labels in order.
func (t *TableData) Headers() []string {
	if t == nil {
		return nil
	}
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Label
	}
	return headers
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "currency"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// METRIC TYPES
// ============================================================================

// Metric is a single scalar aggregate shown as a card.
type Metric struct {
	Label    string  `json:"label"`
	Value    string  `json:"value"`
	RawValue float64 `json:"rawValue"`
	Count    int     `json:"count"`
}
