package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/source"
)

// ============================================================================
// BUILD — One run: (dataset, selection) → filtered rows, aggregates, panels
// ============================================================================
// Pipeline:
//   1. Selection → engine.Filters (all labels become no-ops)
//   2. engine.ApplyFilters over the dataset view (zero copy)
//   3. Headline metrics: income and sales quantity
//   4. Every layout panel through engine.Execute
//   5. Records table of the filtered rows
//
// Build holds no state and never writes to the dataset; equal inputs give
// equal output.
// ============================================================================

// Dashboard is the render-ready outcome of one run.
type Dashboard struct {
	Title     string            `json:"title"`
	Source    string            `json:"source"`
	LoadedAt  time.Time         `json:"loadedAt"`
	Period    string            `json:"period"`
	Selection Selection         `json:"selection"`
	Filters   engine.Filters    `json:"filters"`
	Controls  []Control         `json:"controls"`
	Metrics   []*engine.Metric  `json:"metrics"`
	Tabs      []TabResult       `json:"tabs"`
	Records   *engine.TableData `json:"records"`
	Total     int               `json:"total"`   // records in the dataset
	Matched   int               `json:"matched"` // records passing the filters
}

// TabResult is a tab of executed panels.
type TabResult struct {
	Title  string           `json:"title"`
	Panels []*engine.Result `json:"panels"`
}

// Metric labels shown as headline cards.
const (
	MetricIncome   = "Income"
	MetricQuantity = "Sales quantity"
)

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	logger *zap.Logger
}

// WithLogger sets the logger passed down to the engine.
func WithLogger(logger *zap.Logger) Option {
	return func(c *buildConfig) { c.logger = logger }
}

// Build runs the dashboard against ds for one selection.
func Build(ds *source.Dataset, sel Selection, layout Layout, opts ...Option) (*Dashboard, error) {
	cfg := &buildConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	all := ds.View()
	filters := Filters(sel, layout)
	view := engine.ApplyFilters(all, filters)

	engineOpts := []engine.Option{
		engine.WithDefaultMeasure(layout.Measure),
		engine.WithUnit(layout.Currency),
		engine.WithLogger(cfg.logger),
	}
	if g := ds.Schema.Geo; g != nil {
		engineOpts = append(engineOpts, engine.WithGeo(g.Lat, g.Lon))
	}

	d := &Dashboard{
		Title:     layout.Title,
		Source:    ds.Name,
		LoadedAt:  ds.LoadedAt,
		Period:    engine.DerivePeriod(view),
		Selection: sel,
		Filters:   filters,
		Controls:  Controls(all, layout, sel),
		Metrics: []*engine.Metric{
			engine.BuildMetric(MetricIncome, view, layout.Measure, engine.AggSum, layout.Currency),
			engine.BuildMetric(MetricQuantity, view, layout.Measure, engine.AggCount, ""),
		},
		Records: engine.BuildListTable(layout.RecordsTitle, view, layout.Measure, layout.Currency),
		Total:   all.Len(),
		Matched: view.Len(),
	}
	d.Records.Columns = relabel(d.Records.Columns, ds)

	topN := layout.TopN.Clamp(sel.TopN)
	for _, tab := range layout.Tabs {
		tr := TabResult{Title: tab.Title}
		for _, p := range tab.Panels {
			spec := p.QuerySpec
			if p.TopN {
				spec.Limit = topN
				spec.Title = strings.ReplaceAll(spec.Title, "{n}", strconv.Itoa(topN))
			}
			res, err := engine.Execute(spec, view, engineOpts...)
			if err != nil {
				return nil, fmt.Errorf("tab %q: %w", tab.Title, err)
			}
			tr.Panels = append(tr.Panels, res)
		}
		d.Tabs = append(d.Tabs, tr)
	}

	cfg.logger.Debug("dashboard built",
		zap.String("source", ds.Name),
		zap.Int("total", d.Total),
		zap.Int("matched", d.Matched),
		zap.Int("top_n", topN))
	return d, nil
}

// Panel finds an executed panel by id.
func (d *Dashboard) Panel(id string) (*engine.Result, bool) {
	for _, tab := range d.Tabs {
		for _, p := range tab.Panels {
			if p.ID == id {
				return p, true
			}
		}
	}
	return nil, false
}

// Metric finds a headline metric by label.
func (d *Dashboard) Metric(label string) *engine.Metric {
	for _, m := range d.Metrics {
		if m.Label == label {
			return m
		}
	}
	return nil
}

// relabel swaps generated column labels for the schema's display labels.
func relabel(cols []engine.Column, ds *source.Dataset) []engine.Column {
	out := make([]engine.Column, len(cols))
	for i, c := range cols {
		c.Label = ds.Schema.Label(c.Key)
		out[i] = c
	}
	return out
}
