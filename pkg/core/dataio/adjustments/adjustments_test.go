package adjustments

import (
	"errors"
	"path/filepath"
	"testing"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/graph"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeSheet(t *testing.T, rows ...[]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adjustments.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New("2023", "2024")
	_, err := g.AddFinancialStatementItem("revenue", map[string]float64{"2023": 100, "2024": 110})
	require.NoError(t, err)
	_, err = g.AddFinancialStatementItem("cogs", map[string]float64{"2023": 60, "2024": 66})
	require.NoError(t, err)
	return g
}

func TestReadExcel(t *testing.T) {
	id := uuid.New()
	path := writeSheet(t,
		[]any{"Node Name", "Period", "Value", "Reason", "Type", "Scale", "Priority", "Scenario", "Tags", "ID"},
		[]any{"revenue", "2024", 5, "audit true-up", "", "", "", "", "audit, q4", id.String()},
		[]any{"cogs", "2024", 1.1, "inflation", "Multiplicative", 0.5, 2, "bear", "", ""},
		[]any{"", "", "", "", "", "", "", "", "", ""},
		[]any{"revenue", "2023", "lots", "typo", "", "", "", "", "", ""},
		[]any{"revenue", "2023", 1, "", "", "", "", "", "", ""},
		[]any{"revenue", "2023", 1, "bad scale", "", 3, "", "", "", ""},
	)

	adjs, rowErrs, err := ReadExcel(path, "")
	require.NoError(t, err)
	require.Len(t, adjs, 2)

	first := adjs[0]
	assert.Equal(t, id, first.ID)
	assert.Equal(t, "revenue", first.NodeName)
	assert.Equal(t, 5.0, first.Value)
	assert.Equal(t, graph.AdjustmentAdditive, first.Type)
	assert.Equal(t, 1.0, first.Scale)
	assert.Equal(t, graph.DefaultScenario, first.Scenario)
	assert.Equal(t, []string{"audit", "q4"}, first.Tags)

	second := adjs[1]
	assert.Equal(t, graph.AdjustmentMultiplicative, second.Type)
	assert.Equal(t, 0.5, second.Scale)
	assert.Equal(t, 2, second.Priority)
	assert.Equal(t, "bear", second.Scenario)
	assert.NotEqual(t, uuid.Nil, second.ID)

	require.Len(t, rowErrs, 3)
	assert.Equal(t, 5, rowErrs[0].Row)
	assert.Equal(t, `row 5: value "lots" is not numeric`, rowErrs[0].Error())
	assert.Contains(t, rowErrs[1].Message, "reason is required")
	assert.Contains(t, rowErrs[2].Message, "scale must be between 0 and 1")
}

func TestReadExcel_MissingColumns(t *testing.T) {
	path := writeSheet(t, []any{"node_name", "value"}, []any{"revenue", 1})

	_, _, err := ReadExcel(path, "")
	var re *iocore.ReadError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Message, "Missing required columns")
	assert.Contains(t, re.Message, "period, reason")
	assert.Equal(t, "excel", re.FormatType)

	_, _, err = ReadExcel(filepath.Join(t.TempDir(), "missing.xlsx"), "")
	assert.ErrorContains(t, err, "Failed to open adjustments workbook")
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	src := testGraph(t)
	adj := graph.NewAdjustment("revenue", "2024", 5, "audit true-up")
	adj.Tags = []string{"audit"}
	_, err := src.AddAdjustment(adj)
	require.NoError(t, err)
	mult := graph.NewAdjustment("cogs", "2023", 1.5, "price shock")
	mult.Type = graph.AdjustmentMultiplicative
	mult.Priority = 3
	_, err = src.AddAdjustment(mult)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "adjustments.xlsx")
	n, err := ExportFromGraph(src, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := testGraph(t)
	n, err = LoadIntoGraph(dst, path, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded := dst.Adjustments()
	require.Len(t, loaded, 2)
	assert.Equal(t, adj.ID, loaded[0].ID)
	assert.Equal(t, []string{"audit"}, loaded[0].Tags)
	assert.Equal(t, 3, loaded[1].Priority)

	v, applied, err := dst.AdjustedValue("revenue", "2024", "")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.InDelta(t, 115.0, v, 1e-9)

	v, _, err = dst.AdjustedValue("cogs", "2023", "")
	require.NoError(t, err)
	assert.InDelta(t, 90.0, v, 1e-9)

	_, err = LoadIntoGraph(dst, path, false)
	assert.ErrorContains(t, err, "already exists", "same IDs cannot be added twice")
	assert.Len(t, dst.Adjustments(), 2, "failed load leaves adjustments unchanged")

	n, err = LoadIntoGraph(dst, path, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, dst.Adjustments(), 2)
}

func TestLoadIntoGraph_NoPartialLoad(t *testing.T) {
	path := writeSheet(t,
		[]any{"node_name", "period", "value", "reason"},
		[]any{"revenue", "2024", 5, "ok"},
		[]any{"opex", "2024", 1, "unknown node"},
		[]any{"revenue", "2023", "x", "bad value"},
	)

	g := testGraph(t)
	n, err := LoadIntoGraph(g, path, false)
	assert.Equal(t, 0, n)

	var re *iocore.ReadError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Message, "Validation errors occurred during loading adjustments from")
	assert.Contains(t, re.Message, `row 4: value "x" is not numeric`)
	assert.Contains(t, re.Message, "opex: Node not found in graph")
	assert.Empty(t, g.Adjustments())
}

func TestLoadIntoGraph_ZeroScale(t *testing.T) {
	path := writeSheet(t,
		[]any{"node_name", "period", "value", "reason", "scale"},
		[]any{"revenue", "2024", 50, "parked", 0},
	)

	g := testGraph(t)
	n, err := LoadIntoGraph(g, path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0.0, g.Adjustments()[0].Scale)

	v, _, err := g.AdjustedValue("revenue", "2024", "")
	require.NoError(t, err)
	assert.Equal(t, 110.0, v)
}
