package readers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
)

const utf8BOM = "\uFEFF"

// CSVReader reads long (item, period, value) or wide (item column plus one
// column per period) CSV files.
type CSVReader struct {
	cfg      ioconfig.CSVReaderConfig
	defaults iocore.ScopedMapping
}

// NewCSVReader is the csv reader factory.
func NewCSVReader(cfg any, hc iocore.HandlerContext) (iocore.Reader, error) {
	c, ok := cfg.(ioconfig.CSVReaderConfig)
	if !ok {
		return nil, fmt.Errorf("csv reader requires CSVReaderConfig, got %T", cfg)
	}
	return &CSVReader{cfg: c, defaults: hc.Defaults}, nil
}

// Read loads source (a .csv/.txt/.tsv path). Options override the
// constructor configuration for delimiter, header_row, layout, the column
// names and statement_type.
func (r *CSVReader) Read(ctx context.Context, source any, opts iocore.Options) (*graph.Graph, error) {
	cfg := r.cfg
	cfg.Delimiter = opts.String("delimiter", cfg.Delimiter)
	cfg.HeaderRow = opts.Int("header_row", cfg.HeaderRow)
	cfg.Layout = opts.String("layout", cfg.Layout)
	cfg.ItemCol = opts.String("item_col", cfg.ItemCol)
	cfg.PeriodCol = opts.String("period_col", cfg.PeriodCol)
	cfg.ValueCol = opts.String("value_col", cfg.ValueCol)
	cfg.StatementType = opts.String("statement_type", cfg.StatementType)

	path, err := sourcePath(source, ioconfig.FormatCSV, ".csv", ".txt", ".tsv")
	if err != nil {
		return nil, err
	}
	if err := checkOptions(path, ioconfig.FormatCSV,
		[2]string{"delimiter", singleRune(cfg.Delimiter)},
		[2]string{"header_row", atLeast(cfg.HeaderRow, 1)},
	); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, iocore.NewReadError("Read cancelled", path, ioconfig.FormatCSV, err)
	}

	header, rows, err := loadCSV(path, cfg.Delimiter, cfg.HeaderRow)
	if err != nil {
		return nil, iocore.NewReadError("Failed to parse CSV file", path, ioconfig.FormatCSV, err)
	}

	t := &table{
		sourceID:   path,
		formatType: ioconfig.FormatCSV,
		header:     header,
		rows:       rows,
		mapping:    iocore.Mapper{Defaults: r.defaults, User: cfg.MappingConfig}.Mapping(cfg.StatementType),
	}

	switch cfg.Layout {
	case ioconfig.LayoutLong:
		required := []string{cfg.ItemCol, cfg.PeriodCol, cfg.ValueCol}
		if err := iocore.ValidateRequiredColumns(header, required, path); err != nil {
			return nil, iocore.WithFormat(err, ioconfig.FormatCSV)
		}
		return t.longGraph(columnIndex(header, cfg.ItemCol), columnIndex(header, cfg.PeriodCol), columnIndex(header, cfg.ValueCol))

	case ioconfig.LayoutWide:
		if err := iocore.ValidateRequiredColumns(header, []string{cfg.ItemCol}, path); err != nil {
			return nil, iocore.WithFormat(err, ioconfig.FormatCSV)
		}
		itemIdx := columnIndex(header, cfg.ItemCol)
		var periodCols []int
		for i := range header {
			if i != itemIdx {
				periodCols = append(periodCols, i)
			}
		}
		return t.wideGraph(itemIdx, periodCols)
	}

	return nil, iocore.NewReadError(fmt.Sprintf("Unsupported layout %q", cfg.Layout), path, ioconfig.FormatCSV, nil)
}

// loadCSV returns the header found on the 1-based headerRow and every row
// after it. A UTF-8 BOM on the first header cell is stripped.
func loadCSV(path, delimiter string, headerRow int) ([]string, [][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = []rune(delimiter)[0]
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var header []string
	var rows [][]any
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line++

		if line < headerRow {
			continue
		}
		if line == headerRow {
			header = make([]string, len(rec))
			for i, c := range rec {
				if i == 0 {
					c = strings.TrimPrefix(c, utf8BOM)
				}
				header[i] = strings.TrimSpace(c)
			}
			continue
		}

		row := make([]any, len(rec))
		for i, c := range rec {
			row[i] = c
		}
		rows = append(rows, row)
	}

	if header == nil {
		return nil, nil, fmt.Errorf("header row %d not found (file has %d rows)", headerRow, line)
	}
	return header, rows, nil
}
