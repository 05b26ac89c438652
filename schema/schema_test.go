package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalesSchemaIsValid(t *testing.T) {
	s := Sales()
	require.NoError(t, s.Validate())

	assert.Equal(t, "price", s.RevenueMeasure())
	assert.Equal(t, []string{"price", "shipping", "rating", "installments", "lat", "lon"}, s.MeasureKeys())
	assert.Contains(t, s.DimensionKeys(), "region")
	assert.Equal(t, []string{"year", "month", "period"}, s.DimensionKeys()[len(s.DimensionKeys())-3:])
}

func TestLookup(t *testing.T) {
	s := Sales()

	col, ok := s.Lookup(" Preço ")
	require.True(t, ok)
	assert.Equal(t, "price", col.Key)

	col, ok = s.Lookup("seller")
	require.True(t, ok)
	assert.Equal(t, "Vendedor", col.Header)

	_, ok = s.Lookup("Desconto")
	assert.False(t, ok)
}

func TestLabel(t *testing.T) {
	s := Sales()
	assert.Equal(t, "Income", s.Label("price"))
	assert.Equal(t, "Year", s.Label("year"))
	assert.Equal(t, "Payment type", s.Label("payment_type"))
	assert.Equal(t, "Some Key", s.Label("some_key"))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no columns", func(c *Config) { c.Columns = nil }, "no columns"},
		{"duplicate key", func(c *Config) { c.Columns[1].Key = "product" }, `duplicate key "product"`},
		{"duplicate header", func(c *Config) { c.Columns[1].Header = "Produto" }, `duplicate header "Produto"`},
		{"unknown role", func(c *Config) { c.Columns[0].Role = "weight" }, "unknown role"},
		{"missing key", func(c *Config) { c.Columns[0].Key = "" }, "needs both header and key"},
		{"temporal not temporal", func(c *Config) { c.Temporal.Column = "seller" }, "not a temporal column"},
		{"temporal without layout", func(c *Config) { c.Temporal.Layout = "" }, "has no layout"},
		{"reserved derived key", func(c *Config) { c.Columns[0].Key = "year" }, "reserved"},
		{"geo label is a measure", func(c *Config) { c.Geo.Label = "price" }, "geo label"},
		{"geo coordinate missing", func(c *Config) { c.Geo.Lon = "longitude" }, "geo coordinate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Sales()
			tt.mutate(&c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateWithoutTemporalOrGeo(t *testing.T) {
	c := Config{Columns: []Column{
		{Header: "Vendedor", Key: "seller", Role: RoleDimension},
		{Header: "Preço", Key: "price", Role: RoleMeasure},
	}}
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"seller"}, c.DimensionKeys())
	assert.Equal(t, "price", c.RevenueMeasure())
}
