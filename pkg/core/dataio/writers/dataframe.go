package writers

import (
	"context"
	"fmt"
	"math"

	"finstatements/pkg/core/config"
	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DataFrameWriter renders the graph as a gota DataFrame: one row per node, a
// name column, then one float column per period. Missing values are NaN.
type DataFrameWriter struct {
	cfg ioconfig.DataFrameWriterConfig
}

// NewDataFrameWriter is the dataframe writer factory.
func NewDataFrameWriter(cfg any, hc iocore.HandlerContext) (iocore.Writer, error) {
	c, ok := cfg.(ioconfig.DataFrameWriterConfig)
	if !ok {
		return nil, fmt.Errorf("dataframe writer requires DataFrameWriterConfig, got %T", cfg)
	}
	return &DataFrameWriter{cfg: c}, nil
}

// Write returns a dataframe.DataFrame. target is ignored.
func (w *DataFrameWriter) Write(ctx context.Context, g *graph.Graph, target any, opts iocore.Options) (any, error) {
	if err := requireGraph(g, target, ioconfig.FormatDataFrame); err != nil {
		return nil, err
	}
	data := extract(g, opts, w.cfg.IncludeNodes, w.cfg.Recalculate)

	df := toDataFrame(data, config.Get().IO.DefaultItemColumn)
	if df.Err != nil {
		return nil, iocore.NewWriteError("Failed to build DataFrame", target, ioconfig.FormatDataFrame, df.Err)
	}
	return df, nil
}

func toDataFrame(data *iocore.GraphData, itemColumn string) dataframe.DataFrame {
	cols := make([]series.Series, 0, len(data.Periods)+1)
	cols = append(cols, series.New(data.Nodes, series.String, itemColumn))

	for _, p := range data.Periods {
		vals := make([]float64, len(data.Nodes))
		for i, name := range data.Nodes {
			if v, ok := data.Value(name, p); ok {
				vals[i] = v
			} else {
				vals[i] = math.NaN()
			}
		}
		cols = append(cols, series.New(vals, series.Float, p))
	}
	return dataframe.New(cols...)
}
