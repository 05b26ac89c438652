package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// SCHEMA — Describes the shape of a sales dataset
// ============================================================================
// Maps source column headers to record keys and roles. The source package
// uses it to turn rows into engine.Records; the dashboard uses it for labels,
// the revenue measure and the geo columns.
//
// A schema comes from the YAML config, from DiscoverFromCSV, or from Sales().
// ============================================================================

// Role is what a column becomes in a record.
type Role string

const (
	RoleDimension Role = "dimension"
	RoleMeasure   Role = "measure"
	RoleTemporal  Role = "temporal"
)

// Keys of the dimensions derived from the temporal column at load time.
const (
	YearKey   = "year"
	MonthKey  = "month"
	PeriodKey = "period"
)

// Config describes the complete shape of a dataset.
type Config struct {
	Name     string    `json:"name" yaml:"name"`
	Columns  []Column  `json:"columns" yaml:"columns"`
	Temporal *Temporal `json:"temporal,omitempty" yaml:"temporal,omitempty"`
	Geo      *Geo      `json:"geo,omitempty" yaml:"geo,omitempty"`
}

// Column maps one source header to a record key.
type Column struct {
	Header string `json:"header" yaml:"header"`
	Key    string `json:"key" yaml:"key"`
	Role   Role   `json:"role" yaml:"role"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
	Unit   string `json:"unit,omitempty" yaml:"unit,omitempty"` // "R$" for currency measures
}

// Temporal names the date column and its time.Parse layout.
type Temporal struct {
	Column string `json:"column" yaml:"column"`
	Layout string `json:"layout" yaml:"layout"`
}

// Geo names the label dimension and coordinate measures used by map panels.
type Geo struct {
	Label string `json:"label" yaml:"label"`
	Lat   string `json:"lat" yaml:"lat"`
	Lon   string `json:"lon" yaml:"lon"`
}

// Sales returns the schema of the bundled sales dataset.
func Sales() Config {
	return Config{
		Name: "Sales",
		Columns: []Column{
			{Header: "Produto", Key: "product", Role: RoleDimension, Label: "Product"},
			{Header: "Categoria do Produto", Key: "category", Role: RoleDimension, Label: "Category"},
			{Header: "Preço", Key: "price", Role: RoleMeasure, Label: "Income", Unit: "R$"},
			{Header: "Frete", Key: "shipping", Role: RoleMeasure, Label: "Shipping", Unit: "R$"},
			{Header: "Data da Compra", Key: "purchase_date", Role: RoleTemporal, Label: "Purchase date"},
			{Header: "Vendedor", Key: "seller", Role: RoleDimension, Label: "Seller"},
			{Header: "Local da compra", Key: "state", Role: RoleDimension, Label: "State"},
			{Header: "Regiao", Key: "region", Role: RoleDimension, Label: "Region"},
			{Header: "Avaliação da compra", Key: "rating", Role: RoleMeasure, Label: "Rating"},
			{Header: "Tipo de pagamento", Key: "payment_type", Role: RoleDimension, Label: "Payment type"},
			{Header: "Quantidade de parcelas", Key: "installments", Role: RoleMeasure, Label: "Installments"},
			{Header: "lat", Key: "lat", Role: RoleMeasure, Label: "Latitude"},
			{Header: "lon", Key: "lon", Role: RoleMeasure, Label: "Longitude"},
		},
		Temporal: &Temporal{Column: "purchase_date", Layout: "02/01/2006"},
		Geo:      &Geo{Label: "state", Lat: "lat", Lon: "lon"},
	}
}

// ============================================================================
// LOOKUPS
// ============================================================================

// Lookup finds a column by source header or by key.
// Headers are compared after trimming surrounding whitespace.
func (c Config) Lookup(name string) (Column, bool) {
	name = strings.TrimSpace(name)
	for _, col := range c.Columns {
		if col.Header == name || col.Key == name {
			return col, true
		}
	}
	return Column{}, false
}

// DimensionKeys returns dimension keys in column order, temporal columns
// included, followed by the derived year, month and period keys.
func (c Config) DimensionKeys() []string {
	var keys []string
	for _, col := range c.Columns {
		if col.Role == RoleDimension || col.Role == RoleTemporal {
			keys = append(keys, col.Key)
		}
	}
	if c.Temporal != nil {
		keys = append(keys, YearKey, MonthKey, PeriodKey)
	}
	return keys
}

// MeasureKeys returns measure keys in column order.
func (c Config) MeasureKeys() []string {
	var keys []string
	for _, col := range c.Columns {
		if col.Role == RoleMeasure {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// RevenueMeasure returns the first currency measure, or the first measure.
func (c Config) RevenueMeasure() string {
	first := ""
	for _, col := range c.Columns {
		if col.Role != RoleMeasure {
			continue
		}
		if col.Unit != "" {
			return col.Key
		}
		if first == "" {
			first = col.Key
		}
	}
	return first
}

// Label returns the display label for a key. Derived keys and unknown keys
// get a title-cased version of the key.
func (c Config) Label(key string) string {
	for _, col := range c.Columns {
		if col.Key == key && col.Label != "" {
			return col.Label
		}
	}
	return toDisplayName(key)
}

// ============================================================================
// VALIDATION
// ============================================================================

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("invalid schema")

// Validate reports the first structural problem in the schema.
func (c Config) Validate() error {
	if len(c.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalid)
	}

	keys := make(map[string]Role, len(c.Columns))
	headers := make(map[string]bool, len(c.Columns))
	for i, col := range c.Columns {
		if col.Header == "" || col.Key == "" {
			return fmt.Errorf("%w: column %d needs both header and key", ErrInvalid, i)
		}
		switch col.Role {
		case RoleDimension, RoleMeasure, RoleTemporal:
		default:
			return fmt.Errorf("%w: column %q has unknown role %q", ErrInvalid, col.Header, col.Role)
		}
		if _, dup := keys[col.Key]; dup {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalid, col.Key)
		}
		if headers[col.Header] {
			return fmt.Errorf("%w: duplicate header %q", ErrInvalid, col.Header)
		}
		keys[col.Key] = col.Role
		headers[col.Header] = true
	}

	if t := c.Temporal; t != nil {
		if keys[t.Column] != RoleTemporal {
			return fmt.Errorf("%w: temporal column %q is not a temporal column", ErrInvalid, t.Column)
		}
		if t.Layout == "" {
			return fmt.Errorf("%w: temporal column %q has no layout", ErrInvalid, t.Column)
		}
		for _, derived := range []string{YearKey, MonthKey, PeriodKey} {
			if _, clash := keys[derived]; clash {
				return fmt.Errorf("%w: key %q is reserved for the derived %s dimension", ErrInvalid, derived, derived)
			}
		}
	}

	if g := c.Geo; g != nil {
		if role, ok := keys[g.Label]; !ok || role == RoleMeasure {
			return fmt.Errorf("%w: geo label %q is not a dimension", ErrInvalid, g.Label)
		}
		for _, k := range []string{g.Lat, g.Lon} {
			if keys[k] != RoleMeasure {
				return fmt.Errorf("%w: geo coordinate %q is not a measure", ErrInvalid, k)
			}
		}
	}
	return nil
}
