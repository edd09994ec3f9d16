package writers

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/mappings"
	"finstatements/pkg/core/dataio/readers"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/store"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New("2023", "2024", "2025")
	_, err := g.AddFinancialStatementItem("revenue", map[string]float64{"2023": 100, "2024": 110})
	require.NoError(t, err)
	_, err = g.AddFinancialStatementItem("cogs", map[string]float64{"2023": 60, "2024": 66})
	require.NoError(t, err)
	_, err = g.AddCalculation("gross_profit", []string{"revenue", "cogs"}, graph.CalcSubtraction, nil)
	require.NoError(t, err)
	_, err = g.AddCalculation("blended", []string{"revenue", "cogs"}, graph.CalcWeightedAverage, []float64{0.25, 0.75})
	require.NoError(t, err)
	_, err = g.AddForecast("revenue_forecast", "revenue", "2024", []string{"2025"}, graph.ForecastSimple, graph.ForecastParams{GrowthRate: 0.1})
	require.NoError(t, err)
	_, err = g.AddAdjustment(graph.NewAdjustment("revenue", "2024", 5, "audit true-up"))
	require.NoError(t, err)
	return g
}

func writerRegistry(t *testing.T) *iocore.Registry[iocore.Writer] {
	t.Helper()
	r := iocore.NewRegistry[iocore.Writer]("writer", iocore.NewMappingLoader(mappings.FS))
	require.NoError(t, Register(r))
	return r
}

func write(t *testing.T, formatType string, g *graph.Graph, target any, cfg map[string]any) (any, error) {
	t.Helper()
	w, err := iocore.GetWriter(writerRegistry(t), formatType, target, cfg)
	require.NoError(t, err)
	return w.Write(context.Background(), g, target, nil)
}

func readBack(t *testing.T, formatType string, source any, cfg map[string]any) *graph.Graph {
	t.Helper()
	r := iocore.NewRegistry[iocore.Reader]("reader", iocore.NewMappingLoader(mappings.FS))
	require.NoError(t, readers.Register(r))
	reader, err := iocore.GetReader(r, formatType, source, cfg)
	require.NoError(t, err)
	g, err := reader.Read(context.Background(), source, nil)
	require.NoError(t, err)
	return g
}

func TestRegister_AllWriterFormats(t *testing.T) {
	r := writerRegistry(t)
	assert.Equal(t,
		[]string{"dataframe", "dict", "excel", "graph_definition_dict", "graph_store", "markdown"},
		r.Formats())

	_, err := iocore.GetWriter(r, "yaml", nil, nil)
	assert.True(t, errors.Is(err, iocore.ErrFormatNotSupported))
	assert.EqualError(t, err, "Format 'yaml' is not supported for write operations")
}

func TestWriters_RejectNilGraph(t *testing.T) {
	for _, format := range []string{"dict", "dataframe", "markdown", "graph_definition_dict"} {
		_, err := write(t, format, nil, nil, nil)
		var we *iocore.WriteError
		require.True(t, errors.As(err, &we), format)
		assert.Equal(t, "Graph is nil", we.Message)
	}
}

func TestDictWriter_RoundTrip(t *testing.T) {
	g := modelGraph(t)

	out, err := write(t, "dict", g, nil, nil)
	require.NoError(t, err)
	data := out.(map[string]map[string]float64)

	assert.Equal(t, map[string]float64{"2023": 100, "2024": 110}, data["revenue"], "data nodes keep stored values only")
	assert.InDelta(t, 121.0, data["revenue_forecast"]["2025"], 1e-9)

	back := readBack(t, "dict", data, nil)
	again, err := write(t, "dict", back, nil, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(data, again); diff != "" {
		t.Errorf("dict round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDictWriter_IncludeNodesAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "data.json")

	out, err := write(t, "dict", modelGraph(t), path, map[string]any{"include_nodes": []string{"gross_profit", "ghost"}})
	require.NoError(t, err)
	data := out.(map[string]map[string]float64)
	require.Len(t, data, 1)
	assert.InDelta(t, 44.0, data["gross_profit"]["2024"], 1e-9)

	back := readBack(t, "dict", path, nil)
	v, err := back.Calculate("gross_profit", "2023")
	require.NoError(t, err)
	assert.InDelta(t, 40.0, v, 1e-9)
}

func TestGraphDefinitionWriter_RoundTrip(t *testing.T) {
	g := modelGraph(t)
	path := filepath.Join(t.TempDir(), "model.json")

	out, err := write(t, "graph_definition_dict", g, path, nil)
	require.NoError(t, err)
	def := out.(map[string]any)
	assert.Contains(t, def, "nodes")
	assert.Contains(t, def, "adjustments")

	for _, source := range []any{def, path} {
		back := readBack(t, "graph_definition_dict", source, nil)
		assert.ElementsMatch(t, g.NodeNames(), back.NodeNames())
		for _, name := range g.NodeNames() {
			for _, p := range g.Periods() {
				want, werr := g.Calculate(name, p)
				got, gerr := back.Calculate(name, p)
				assert.Equal(t, werr == nil, gerr == nil, "%s[%s]", name, p)
				assert.InDelta(t, want, got, 1e-9, "%s[%s]", name, p)
			}
		}
		assert.Len(t, back.Adjustments(), 1)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n  "), "indented by default")
}

func TestDataFrameWriter(t *testing.T) {
	out, err := write(t, "dataframe", modelGraph(t), nil, map[string]any{"include_nodes": []string{"revenue", "gross_profit"}})
	require.NoError(t, err)
	df := out.(dataframe.DataFrame)

	assert.Equal(t, []string{"name", "2023", "2024", "2025"}, df.Names())
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, "revenue", df.Col("name").Elem(0).String())
	assert.True(t, math.IsNaN(df.Col("2025").Elem(0).Float()), "missing values are NaN")
	assert.InDelta(t, 44.0, df.Col("2024").Elem(1).Float(), 1e-9)

	back := readBack(t, "dataframe", df, nil)
	node, ok := back.GetNode("revenue")
	require.True(t, ok)
	assert.False(t, node.(*graph.ItemNode).HasValue("2025"))
	v, err := back.Calculate("revenue", "2024")
	require.NoError(t, err)
	assert.Equal(t, 110.0, v)
}

func TestExcelWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.xlsx")

	out, err := write(t, "excel", modelGraph(t), path, map[string]any{"sheet_name": "Model"})
	require.NoError(t, err)
	assert.Equal(t, path, out)

	back := readBack(t, "excel", path, map[string]any{"sheet_name": "Model"})
	assert.Equal(t, []string{"2023", "2024", "2025"}, back.Periods())
	v, err := back.Calculate("gross_profit", "2024")
	require.NoError(t, err)
	assert.InDelta(t, 44.0, v, 1e-9)
}

func TestExcelWriter_InvalidTarget(t *testing.T) {
	_, err := iocore.GetWriter(writerRegistry(t), "excel", "model.csv", nil)
	var we *iocore.WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "Invalid writer configuration", we.Message)
	assert.ErrorContains(t, err, "must be an .xlsx path")
}

func TestMarkdownWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.md")

	out, err := write(t, "markdown", modelGraph(t), path, map[string]any{
		"title":         "ACME plan",
		"include_nodes": []string{"revenue", "gross_profit", "revenue_forecast"},
	})
	require.NoError(t, err)
	doc := out.(string)

	assert.True(t, strings.HasPrefix(doc, "# ACME plan\n\n| Item | 2023 | 2024 | 2025E |\n| :--- | ---: | ---: | ---: |\n"))
	assert.Contains(t, doc, `| revenue | 100.00 | 115.00\* |  |`)
	assert.Contains(t, doc, "| gross_profit | 40.00 | 44.00 | 0.00 |")
	assert.Contains(t, doc, "\\* Includes adjustments.")
	assert.Contains(t, doc, "## Forecast Notes\n\n- **revenue_forecast**: simple growth of 10.0% per period on revenue from 2024; forecast periods 2025\n")
	assert.Contains(t, doc, "## Adjustments\n\n- **revenue** 2024: additive 5.00 (audit true-up)\n")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(raw))
}

func TestMarkdownWriter_ExplicitPeriodsAndNoNotes(t *testing.T) {
	out, err := write(t, "markdown", modelGraph(t), nil, map[string]any{
		"historical_periods": []string{"2024"},
		"forecast_periods":   []string{"2025"},
		"forecast_notes":     false,
		"adjustment_notes":   false,
		"decimals":           0,
	})
	require.NoError(t, err)
	doc := out.(string)

	assert.True(t, strings.HasPrefix(doc, "| Item | 2024 | 2025E |\n"))
	assert.Contains(t, doc, "| revenue | 110 |  |")
	assert.Contains(t, doc, "| revenue_forecast | 110 | 121 |")
	assert.NotContains(t, doc, "## Forecast Notes")
	assert.NotContains(t, doc, "## Adjustments")
}

func TestValidateMarkdownTable(t *testing.T) {
	ok := "| a | b |\n| --- | --- |\n| 1 | 2 |\n"
	assert.NoError(t, validateMarkdownTable(ok, 2, 1))
	assert.ErrorContains(t, validateMarkdownTable(ok, 3, 1), "table header has 2 cells, expected 3")
	assert.ErrorContains(t, validateMarkdownTable(ok, 2, 2), "table has 1 rows, expected 2")
	assert.ErrorContains(t, validateMarkdownTable("just text", 1, 0), "no table found")
}

func TestGraphStoreWriter(t *testing.T) {
	dir := t.TempDir()

	out, err := write(t, "graph_store", modelGraph(t), "acme/plan", map[string]any{"dir": dir})
	require.NoError(t, err)
	assert.Equal(t, "acme/plan", out)

	def, err := store.NewGraphStore(nil, dir).Load(context.Background(), "acme/plan")
	require.NoError(t, err)
	assert.Len(t, def.Nodes, 5)

	back := readBack(t, "graph_store", "acme/plan", map[string]any{"dir": dir})
	v, err := back.Calculate("revenue_forecast", "2025")
	require.NoError(t, err)
	assert.InDelta(t, 121.0, v, 1e-9)
}
