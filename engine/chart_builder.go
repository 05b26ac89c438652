package engine

import "sort"

// ============================================================================
// CHART BUILDER — Produces ChartConfig from QuerySpec + Groups
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Geo options name the measures holding marker coordinates.
type Geo struct {
	Lat string
	Lon string
}

// BuildChart produces a ChartConfig from a QuerySpec and aggregated groups.
// Returns nil when there is nothing to draw.
func BuildChart(spec QuerySpec, groups []Group, geo Geo) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	chartType := spec.Visualize
	if chartType == "" {
		chartType = "bar"
	}

	config := &ChartConfig{
		ChartType:  chartType,
		Title:      spec.Title,
		ShowLegend: true,
		ShowGrid:   true,
	}

	if len(spec.GroupBy) > 0 {
		config.XAxis = LabelForDimension(spec.GroupBy[0])
	}
	config.YAxis = spec.YLabel
	if config.YAxis == "" {
		config.YAxis = LabelForAggregation(spec.Aggregation)
	}

	switch {
	case chartType == "geo":
		config.Points = buildGeoPoints(groups, geo)
		config.ShowLegend = false
		config.ShowGrid = false
		config.Series = buildSingleSeries(groups, spec.Title)
	case len(spec.GroupBy) >= 2 && hasSubGroups(groups):
		config.Series = buildMultiSeries(groups)
	default:
		config.Series = buildSingleSeries(groups, spec.Title)
		config.ShowLegend = false
	}

	config.Colors = assignColors(len(config.Series))
	return config
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(groups []Group, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Label,
			Value: RoundTo2(g.Value),
		})
	}

	return []ChartSeries{{
		Name:  seriesName,
		Data:  points,
		Color: defaultColors[0],
	}}
}

// buildMultiSeries turns sub-groups into one series per sub-group key.
// Series are ordered by key so equal inputs always draw identically;
// a primary group lacking a sub-key contributes a 0 point.
func buildMultiSeries(groups []Group) []ChartSeries {
	subKeySet := make(map[string]bool)
	for _, g := range groups {
		for _, sg := range g.SubGroups {
			subKeySet[sg.Key] = true
		}
	}

	subKeys := make([]string, 0, len(subKeySet))
	for k := range subKeySet {
		subKeys = append(subKeys, k)
	}
	sort.Strings(subKeys)

	seriesMap := make(map[string][]ChartPoint, len(subKeys))
	for _, g := range groups {
		sgLookup := make(map[string]float64, len(g.SubGroups))
		for _, sg := range g.SubGroups {
			sgLookup[sg.Key] = sg.Value
		}

		for _, key := range subKeys {
			seriesMap[key] = append(seriesMap[key], ChartPoint{
				Label: g.Label,
				Value: RoundTo2(sgLookup[key]),
			})
		}
	}

	series := make([]ChartSeries, 0, len(subKeys))
	for i, key := range subKeys {
		series = append(series, ChartSeries{
			Name:  key,
			Data:  seriesMap[key],
			Color: defaultColors[i%len(defaultColors)],
		})
	}

	return series
}

// buildGeoPoints places one marker per group, at the coordinates of the
// group's first record.
func buildGeoPoints(groups []Group, geo Geo) []GeoPoint {
	points := make([]GeoPoint, 0, len(groups))
	for _, g := range groups {
		if g.View == nil || g.View.Len() == 0 {
			continue
		}
		points = append(points, GeoPoint{
			Label: g.Label,
			Lat:   g.View.Measure(0, geo.Lat),
			Lon:   g.View.Measure(0, geo.Lon),
			Value: RoundTo2(g.Value),
		})
	}
	return points
}

func hasSubGroups(groups []Group) bool {
	for _, g := range groups {
		if len(g.SubGroups) > 0 {
			return true
		}
	}
	return false
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
