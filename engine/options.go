package engine

import "go.uber.org/zap"

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	DefaultMeasure string // measure key used when QuerySpec.Measure is empty
	Unit           string // currency prefix for totals
	Geo            Geo
	Logger         *zap.Logger
}

// WithDefaultMeasure sets the measure to aggregate when QuerySpec.Measure is empty.
func WithDefaultMeasure(measure string) Option {
	return func(c *config) {
		c.DefaultMeasure = measure
	}
}

// WithUnit sets the currency prefix used when formatting sums.
func WithUnit(unit string) Option {
	return func(c *config) {
		c.Unit = unit
	}
}

// WithGeo names the measures holding latitude and longitude for geo charts.
func WithGeo(lat, lon string) Option {
	return func(c *config) {
		c.Geo = Geo{Lat: lat, Lon: lon}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		DefaultMeasure: "price",
		Geo:            Geo{Lat: "lat", Lon: "lon"},
		Logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
