package iocore

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapper_UserOverridesDefaults(t *testing.T) {
	defaults, err := ParseMappingConfig(map[string]any{"": map[string]any{"Revenue": "revenue"}})
	require.NoError(t, err)
	user, err := ParseMappingConfig(map[string]any{"": map[string]any{"Revenue": "total_revenue"}})
	require.NoError(t, err)

	m := Mapper{Defaults: defaults, User: user}
	assert.Equal(t, "total_revenue", ApplyMapping("Revenue", m.Mapping("")))
	assert.Equal(t, "total_revenue", ApplyMapping("Revenue", m.Mapping("income_statement")))
	assert.Equal(t, "Unmapped", ApplyMapping("Unmapped", m.Mapping("")))
}

func TestParseMappingConfig(t *testing.T) {
	t.Run("flat mapping ignores context", func(t *testing.T) {
		m, err := ParseMappingConfig(map[string]any{"Sales": "revenue"})
		require.NoError(t, err)
		assert.Equal(t, Mapping{"Sales": "revenue"}, m.Resolve("balance_sheet"))
	})

	t.Run("scoped mapping overlays context", func(t *testing.T) {
		m, err := ParseMappingConfig(map[string]any{
			"":                 map[string]any{"Sales": "revenue", "Total": "total"},
			"balance_sheet":    map[string]any{"Total": "total_assets"},
			"income_statement": map[string]string{"Total": "net_income"},
		})
		require.NoError(t, err)
		assert.Equal(t, Mapping{"Sales": "revenue", "Total": "total"}, m.Resolve(""))
		assert.Equal(t, Mapping{"Sales": "revenue", "Total": "total_assets"}, m.Resolve("balance_sheet"))
		assert.Equal(t, "net_income", m.Resolve("income_statement")["Total"])
		assert.Equal(t, Mapping{"Sales": "revenue", "Total": "total"}, m.Resolve("cash_flow"))
		assert.Equal(t, []string{"balance_sheet", "income_statement"}, m.ScopeNames())
	})

	t.Run("scoped without default", func(t *testing.T) {
		m, err := ParseMappingConfig(map[string]any{"balance_sheet": map[string]any{"Cash": "cash"}})
		require.NoError(t, err)
		assert.Empty(t, m.Resolve(""))
		assert.Equal(t, "cash", m.Resolve("balance_sheet")["Cash"])
	})

	t.Run("typed inputs", func(t *testing.T) {
		m, err := ParseMappingConfig(map[string]string{"a": "b"})
		require.NoError(t, err)
		assert.Equal(t, Mapping{"a": "b"}, m.Default)

		m, err = ParseMappingConfig(map[string]Mapping{"": {"a": "b"}, "x": {"a": "c"}})
		require.NoError(t, err)
		assert.Equal(t, "c", m.Resolve("x")["a"])

		m, err = ParseMappingConfig(nil)
		require.NoError(t, err)
		assert.True(t, m.IsZero())
	})

	t.Run("errors", func(t *testing.T) {
		_, err := ParseMappingConfig(map[string]any{"Sales": 1})
		assert.ErrorContains(t, err, `"Sales" must be a string`)

		_, err = ParseMappingConfig(map[string]any{"": map[string]any{"a": "b"}, "x": "y"})
		assert.ErrorContains(t, err, "must all be mappings")

		_, err = ParseMappingConfig([]string{"a"})
		assert.Error(t, err)
	})
}

func TestMappingLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"good.yaml":   {Data: []byte("~:\n  revenue: revenue\n  costOfRevenue: cost_of_goods_sold\nbalance_sheet:\n  totalAssets: total_assets\n")},
		"flat.yaml":   {Data: []byte("Sales: revenue\n")},
		"broken.yaml": {Data: []byte("revenue: [unclosed\n")},
	}
	l := NewMappingLoader(fsys)

	good := l.Load("good.yaml")
	assert.Equal(t, "cost_of_goods_sold", good.Resolve("")["costOfRevenue"])
	assert.Equal(t, "total_assets", good.Resolve("balance_sheet")["totalAssets"])

	assert.Equal(t, Mapping{"Sales": "revenue"}, l.Load("flat.yaml").Default)

	assert.True(t, l.Load("broken.yaml").IsZero())
	assert.True(t, l.Load("missing.yaml").IsZero())
	assert.True(t, l.Load("").IsZero())
	assert.True(t, NewMappingLoader(nil).Load("good.yaml").IsZero())

	delete(fsys, "good.yaml")
	assert.Equal(t, good, l.Load("good.yaml"), "loaded mappings are cached per path")
}
