// Package config loads the salesdash YAML configuration and applies
// environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/salesdash/dashboard"
	"github.com/spektr-org/salesdash/logging"
	"github.com/spektr-org/salesdash/schema"
	"github.com/spektr-org/salesdash/source"
)

// Config holds all salesdash configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`

	// Schema replaces the built-in sales schema when set.
	Schema *schema.Config `yaml:"schema,omitempty"`

	// Dashboard starts from the built-in layout; fields present in the
	// file replace it, lists as a whole.
	Dashboard dashboard.Layout `yaml:"dashboard"`

	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ReadTimeout     string   `yaml:"read_timeout"`
	WriteTimeout    string   `yaml:"write_timeout"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// DataConfig selects where the dataset comes from.
type DataConfig struct {
	Source  string            `yaml:"source"` // embedded, file, http, s3, sql
	Path    string            `yaml:"path"`
	Watch   bool              `yaml:"watch"`
	URL     string            `yaml:"url"`
	Params  map[string]string `yaml:"params,omitempty"`
	Timeout string            `yaml:"timeout"`
	S3      S3Config          `yaml:"s3"`
	SQL     SQLConfig         `yaml:"sql"`
}

// S3Config locates a dataset object.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
}

// SQLConfig configures a database/sql query source.
type SQLConfig struct {
	Driver string `yaml:"driver"` // sqlite, pgx
	DSN    string `yaml:"dsn"`
	Query  string `yaml:"query"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Environment variables read by Load.
const (
	EnvConfig     = "SALESDASH_CONFIG"
	EnvAddr       = "SALESDASH_ADDR"
	EnvPort       = "PORT"
	EnvDataSource = "SALESDASH_DATA_SOURCE"
	EnvDataPath   = "SALESDASH_DATA_PATH"
	EnvDataURL    = "SALESDASH_DATA_URL"
	EnvLogLevel   = "SALESDASH_LOG_LEVEL"
)

// DefaultConfig serves the embedded dataset with the built-in layout.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8501",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     "15s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
		},
		Data: DataConfig{
			Source:  source.KindEmbedded,
			Timeout: "30s",
		},
		Dashboard: dashboard.DefaultLayout(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML file over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applySchemaDefaults()
	return cfg, nil
}

// applySchemaDefaults points the dashboard at the schema's revenue measure
// when the configured one is not a measure of a custom schema.
func (c *Config) applySchemaDefaults() {
	if c.Schema == nil || len(c.Schema.Columns) == 0 {
		return
	}
	for _, k := range c.Schema.MeasureKeys() {
		if k == c.Dashboard.Measure {
			return
		}
	}
	c.Dashboard.Measure = c.Schema.RevenueMeasure()
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv(EnvPort); port != "" {
		c.Server.Addr = ":" + port
	}
	if addr := os.Getenv(EnvAddr); addr != "" {
		c.Server.Addr = addr
	}
	if kind := os.Getenv(EnvDataSource); kind != "" {
		c.Data.Source = kind
	}
	if path := os.Getenv(EnvDataPath); path != "" {
		c.Data.Path = path
		if os.Getenv(EnvDataSource) == "" {
			c.Data.Source = source.KindFile
		}
	}
	if u := os.Getenv(EnvDataURL); u != "" {
		c.Data.URL = u
		if os.Getenv(EnvDataSource) == "" {
			c.Data.Source = source.KindHTTP
		}
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
}

// ============================================================================
// ACCESSORS
// ============================================================================

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetReadTimeout returns the server read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	return duration(c.Server.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout returns the server write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return duration(c.Server.WriteTimeout, 30*time.Second)
}

// GetShutdownTimeout returns how long shutdown waits for open requests.
func (c *Config) GetShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

// GetDataTimeout returns the load timeout for remote sources.
func (c *Config) GetDataTimeout() time.Duration {
	return duration(c.Data.Timeout, 30*time.Second)
}

// SchemaConfig returns the configured schema or the built-in sales schema.
func (c *Config) SchemaConfig() schema.Config {
	if c.Schema != nil && len(c.Schema.Columns) > 0 {
		return *c.Schema
	}
	return schema.Sales()
}

// SourceOptions converts the data section for source.Open.
func (c *Config) SourceOptions(logger *zap.Logger) source.Options {
	var params url.Values
	if len(c.Data.Params) > 0 {
		params = url.Values{}
		for k, v := range c.Data.Params {
			params.Set(k, v)
		}
	}
	return source.Options{
		Kind:    c.Data.Source,
		Path:    c.Data.Path,
		Watch:   c.Data.Watch,
		URL:     c.Data.URL,
		Params:  params,
		Timeout: c.GetDataTimeout(),
		S3: source.S3Options{
			Region:    c.Data.S3.Region,
			Endpoint:  c.Data.S3.Endpoint,
			PathStyle: c.Data.S3.PathStyle,
		},
		Bucket: c.Data.S3.Bucket,
		Key:    c.Data.S3.Key,
		Driver: c.Data.SQL.Driver,
		DSN:    c.Data.SQL.DSN,
		Query:  c.Data.SQL.Query,
		Schema: c.SchemaConfig(),
		Logger: logger,
	}
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	for _, f := range []struct{ name, value string }{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"data.timeout", c.Data.Timeout},
	} {
		if f.value == "" {
			continue
		}
		if _, err := time.ParseDuration(f.value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", f.name, f.value)
		}
	}

	if err := c.validateData(); err != nil {
		return err
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "", logging.FormatJSON, logging.FormatConsole, "text":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}

	sch := c.SchemaConfig()
	if err := sch.Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if err := c.Dashboard.Validate(sch); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func (c *Config) validateData() error {
	d := c.Data
	switch d.Source {
	case "", source.KindEmbedded:
	case source.KindFile:
		if d.Path == "" {
			return fmt.Errorf("data.path is required for a file source")
		}
	case source.KindHTTP:
		if d.URL == "" {
			return fmt.Errorf("data.url is required for an http source")
		}
		if _, err := url.ParseRequestURI(d.URL); err != nil {
			return fmt.Errorf("data.url: %w", err)
		}
	case source.KindS3:
		if d.S3.Bucket == "" || d.S3.Key == "" {
			return fmt.Errorf("data.s3.bucket and data.s3.key are required for an s3 source")
		}
	case source.KindSQL:
		if d.SQL.Driver != source.DriverSQLite && d.SQL.Driver != source.DriverPostgres {
			return fmt.Errorf("data.sql.driver must be %q or %q, got %q", source.DriverSQLite, source.DriverPostgres, d.SQL.Driver)
		}
		if d.SQL.Query == "" {
			return fmt.Errorf("data.sql.query is required for a sql source")
		}
	default:
		return fmt.Errorf("data.source: unknown kind %q", d.Source)
	}
	if d.Watch && d.Source != source.KindFile {
		return fmt.Errorf("data.watch only applies to a file source")
	}
	return nil
}
