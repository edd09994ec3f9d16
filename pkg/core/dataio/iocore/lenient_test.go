package iocore

import (
	"os"
	"path/filepath"
	"testing"

	"finstatements/pkg/core/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLenientJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"standard", `{"Revenue": {"2023": 100}}`},
		{"trailing comma", `{"Revenue": {"2023": 100,},}`},
		{"hjson comments", "{\n  # bundled\n  Revenue: {\n    \"2023\": 100\n  }\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]map[string]float64
			require.NoError(t, DecodeLenientJSON([]byte(tt.input), &out))
			assert.Equal(t, 100.0, out["Revenue"]["2023"])
		})
	}
}

func TestLoadStructuredSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbf{\"a\": {\"2023\": 1}}"), 0644))

	for _, src := range []any{path, `{"a": {"2023": 1}}`, []byte(`{"a": {"2023": 1}}`)} {
		v, err := LoadStructuredSource(src)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": map[string]any{"2023": 1.0}}, v)
	}

	m := map[string]any{"x": 1}
	v, err := LoadStructuredSource(m)
	require.NoError(t, err)
	assert.Equal(t, m, v)

	_, err = LoadStructuredSource(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read")
}

func TestExtractGraphData(t *testing.T) {
	g := graph.New()
	_, err := g.AddFinancialStatementItem("revenue", map[string]float64{"2022": 100, "2023": 120})
	require.NoError(t, err)
	_, err = g.AddFinancialStatementItem("cogs", map[string]float64{"2023": 0})
	require.NoError(t, err)
	_, err = g.AddCalculation("ratio", []string{"revenue", "cogs"}, graph.CalcDivision, nil)
	require.NoError(t, err)

	data := ExtractGraphData(g, nil, false)
	assert.Equal(t, []string{"revenue", "cogs", "ratio"}, data.Nodes)
	assert.Equal(t, []string{"2022", "2023"}, data.Periods)
	assert.Equal(t, map[string]float64{"2023": 0}, data.Values["cogs"], "missing stored values stay absent")
	assert.Empty(t, data.Values["ratio"], "division by zero leaves the entry absent")

	v, ok := data.Value("revenue", "2022")
	assert.True(t, ok)
	assert.Equal(t, 100.0, v)

	subset := ExtractGraphData(g, []string{"cogs", "ghost"}, true)
	assert.Equal(t, []string{"cogs"}, subset.Nodes)
}
