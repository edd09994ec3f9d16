package readers

import (
	"context"
	"fmt"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"

	"github.com/go-gota/gota/dataframe"
)

// DataFrameReader reads an in-memory gota DataFrame. The wide layout has one
// row per item and one column per period; the long layout has item, period
// and value columns.
type DataFrameReader struct {
	cfg      ioconfig.DataFrameReaderConfig
	defaults iocore.ScopedMapping
}

// NewDataFrameReader is the dataframe reader factory.
func NewDataFrameReader(cfg any, hc iocore.HandlerContext) (iocore.Reader, error) {
	c, ok := cfg.(ioconfig.DataFrameReaderConfig)
	if !ok {
		return nil, fmt.Errorf("dataframe reader requires DataFrameReaderConfig, got %T", cfg)
	}
	return &DataFrameReader{cfg: c, defaults: hc.Defaults}, nil
}

// Read converts source (dataframe.DataFrame or *dataframe.DataFrame). The
// "periods" option restricts the period columns of a wide frame.
func (r *DataFrameReader) Read(ctx context.Context, source any, opts iocore.Options) (*graph.Graph, error) {
	const sourceID = "DataFrame"

	var df dataframe.DataFrame
	switch s := source.(type) {
	case dataframe.DataFrame:
		df = s
	case *dataframe.DataFrame:
		if s == nil {
			return nil, iocore.NewReadError("Source DataFrame is nil", sourceID, ioconfig.FormatDataFrame, nil)
		}
		df = *s
	default:
		return nil, iocore.NewReadError(
			fmt.Sprintf("Source must be a gota DataFrame, got %T", source), source, ioconfig.FormatDataFrame, nil)
	}
	if df.Err != nil {
		return nil, iocore.NewReadError("Source DataFrame is in an error state", sourceID, ioconfig.FormatDataFrame, df.Err)
	}

	cfg := r.cfg
	cfg.Periods = opts.StringSlice("periods", cfg.Periods)
	cfg.StatementType = opts.String("statement_type", cfg.StatementType)

	header := df.Names()
	rows := make([][]any, df.Nrow())
	for i := range rows {
		rows[i] = make([]any, len(header))
	}
	for j, name := range header {
		col := df.Col(name)
		for i := 0; i < df.Nrow(); i++ {
			e := col.Elem(i)
			if e.IsNA() {
				continue
			}
			rows[i][j] = e.Val()
		}
	}

	t := &table{
		sourceID:   sourceID,
		formatType: ioconfig.FormatDataFrame,
		header:     header,
		rows:       rows,
		mapping:    iocore.Mapper{Defaults: r.defaults, User: cfg.MappingConfig}.Mapping(cfg.StatementType),
	}

	if cfg.Layout == ioconfig.LayoutLong {
		required := []string{cfg.ItemCol, cfg.PeriodCol, cfg.ValueCol}
		if err := iocore.ValidateRequiredColumns(header, required, sourceID); err != nil {
			return nil, iocore.WithFormat(err, ioconfig.FormatDataFrame)
		}
		return t.longGraph(columnIndex(header, cfg.ItemCol), columnIndex(header, cfg.PeriodCol), columnIndex(header, cfg.ValueCol))
	}

	if err := iocore.ValidateRequiredColumns(header, append([]string{cfg.ItemCol}, cfg.Periods...), sourceID); err != nil {
		return nil, iocore.WithFormat(err, ioconfig.FormatDataFrame)
	}
	itemIdx := columnIndex(header, cfg.ItemCol)

	var periodCols []int
	if len(cfg.Periods) > 0 {
		for _, p := range cfg.Periods {
			periodCols = append(periodCols, columnIndex(header, p))
		}
	} else {
		for i := range header {
			if i != itemIdx {
				periodCols = append(periodCols, i)
			}
		}
	}
	return t.wideGraph(itemIdx, periodCols)
}
