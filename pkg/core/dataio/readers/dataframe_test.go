package readers

import (
	"context"
	"testing"

	"finstatements/pkg/core/dataio/iocore"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataFrameReader_Wide(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"name", "2023", "2024"},
		{"Revenue", "100", "110"},
		{"COGS", "60", "65"},
	})

	g, err := read(t, "dataframe", df, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023", "2024"}, g.Periods())
	assert.Equal(t, []string{"Revenue", "COGS"}, g.NodeNames())
	requireValue(t, g, "COGS", "2024", 65)

	g, err = read(t, "dataframe", &df, nil)
	require.NoError(t, err)
	requireValue(t, g, "Revenue", "2023", 100)
}

func TestDataFrameReader_PeriodsOption(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"name", "2023", "2024"},
		{"Revenue", "100", "110"},
	})

	reader, err := iocore.GetReader(newRegistry(t), "dataframe", df, nil)
	require.NoError(t, err)

	g, err := reader.Read(context.Background(), df, iocore.Options{"periods": []string{"2024"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024"}, g.Periods())

	_, err = reader.Read(context.Background(), df, iocore.Options{"periods": []string{"2030"}})
	assert.ErrorContains(t, err, "Missing required columns in DataFrame: 2030")
}

func TestDataFrameReader_Long(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"name", "period", "value"},
		{"Revenue", "FY23", "100.5"},
		{"Revenue", "FY24", "110"},
	})

	g, err := read(t, "dataframe", df, map[string]any{"layout": "long"})
	require.NoError(t, err)
	assert.Equal(t, []string{"FY23", "FY24"}, g.Periods())
	requireValue(t, g, "Revenue", "FY23", 100.5)
}

func TestDataFrameReader_RejectsOtherSources(t *testing.T) {
	_, err := read(t, "dataframe", "not a frame", nil)
	re := requireReadError(t, err)
	assert.Contains(t, re.Message, "Source must be a gota DataFrame, got string")
}
