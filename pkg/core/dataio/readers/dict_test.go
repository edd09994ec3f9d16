package readers

import (
	"testing"

	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDictReader_TypedMap(t *testing.T) {
	data := map[string]map[string]float64{
		"Revenue": {"2023": 100, "2024": 110},
		"COGS":    {"2023": 60, "2024": 65},
	}

	g, err := read(t, "dict", data, map[string]any{"periods": []string{"2023", "2024"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"2023", "2024"}, g.Periods())
	assert.Equal(t, []string{"COGS", "Revenue"}, g.NodeNames())
	requireValue(t, g, "Revenue", "2024", 110)
	requireValue(t, g, "COGS", "2023", 60)
}

func TestDictReader_InfersPeriodsFromSparseData(t *testing.T) {
	data := map[string]any{
		"Revenue": map[string]any{"2023": 100.0, "2024": 110.0},
		"COGS":    map[string]any{"2023": 60.0},
	}

	g, err := read(t, "dict", data, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"2023", "2024"}, g.Periods())
	requireValue(t, g, "Revenue", "2024", 110)
	requireValue(t, g, "COGS", "2023", 60)
}

func TestDictReader_PeriodFilter(t *testing.T) {
	data := map[string]any{
		"Revenue": map[string]any{"2022": 90, "2023": 100},
	}

	g, err := read(t, "dict", data, map[string]any{"periods": []string{"2023"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023"}, g.Periods())

	node, ok := g.GetNode("Revenue")
	require.True(t, ok)
	assert.False(t, node.(*graph.ItemNode).HasValue("2022"), "periods outside the filter are dropped")
}

func TestDictReader_LenientJSON(t *testing.T) {
	doc := `{
		// exported from a notebook
		"Revenue": {"2023": 100, "2024": 110,},
	}`

	g, err := read(t, "dict", doc, nil)
	require.NoError(t, err)
	requireValue(t, g, "Revenue", "2023", 100)
}

func TestDictReader_JSONFile(t *testing.T) {
	path := writeFile(t, "data.json", `{"Revenue": {"2024": 7}}`)

	g, err := read(t, "dict", path, nil)
	require.NoError(t, err)
	requireValue(t, g, "Revenue", "2024", 7)
}

func TestDictReader_RejectsStringsAndBadShapes(t *testing.T) {
	_, err := read(t, "dict", map[string]any{
		"Revenue": map[string]any{"2023": "100"},
	}, nil)
	re := requireReadError(t, err)
	assert.Contains(t, re.Message, "Revenue: Non-numeric value '100' for period 2023")

	_, err = read(t, "dict", map[string]any{"Revenue": 5}, nil)
	assert.ErrorContains(t, err, "Expected a mapping of period to value, got int")

	_, err = read(t, "dict", []any{1, 2}, nil)
	assert.ErrorContains(t, err, "Invalid dict structure")
}

func TestDictReader_WarnsOnDroppedValues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	prev := logging.L()
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(prev) })

	data := map[string]any{
		"Revenue": map[string]any{"2022": 90, "2023": 100},
		"Legacy":  map[string]any{"2021": 5},
	}
	g, err := read(t, "dict", data, map[string]any{"periods": []string{"2023"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Revenue"}, g.NodeNames())

	dropped := logs.FilterMessage("dropping value outside configured periods").All()
	require.Len(t, dropped, 2)
	var pairs []string
	for _, e := range dropped {
		ctx := e.ContextMap()
		pairs = append(pairs, ctx["node"].(string)+"@"+ctx["period"].(string))
	}
	assert.ElementsMatch(t, []string{"Revenue@2022", "Legacy@2021"}, pairs)

	empty := logs.FilterMessage("node has no values and is skipped").All()
	require.Len(t, empty, 1)
	assert.Equal(t, "Legacy", empty[0].ContextMap()["node"])
}
