package readers

import (
	"context"
	"fmt"
	"strings"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"

	"github.com/xuri/excelize/v2"
)

// ExcelReader reads a worksheet laid out wide (an items column plus a row of
// period headers) or long (item, period, value columns).
type ExcelReader struct {
	cfg      ioconfig.ExcelReaderConfig
	defaults iocore.ScopedMapping
}

// NewExcelReader is the excel reader factory.
func NewExcelReader(cfg any, hc iocore.HandlerContext) (iocore.Reader, error) {
	c, ok := cfg.(ioconfig.ExcelReaderConfig)
	if !ok {
		return nil, fmt.Errorf("excel reader requires ExcelReaderConfig, got %T", cfg)
	}
	return &ExcelReader{cfg: c, defaults: hc.Defaults}, nil
}

// Read loads source (an .xlsx/.xlsm path). Options may override sheet_name,
// items_col, periods_row and statement_type.
func (r *ExcelReader) Read(ctx context.Context, source any, opts iocore.Options) (*graph.Graph, error) {
	cfg := r.cfg
	cfg.SheetName = opts.String("sheet_name", cfg.SheetName)
	cfg.ItemsCol = opts.Int("items_col", cfg.ItemsCol)
	cfg.PeriodsRow = opts.Int("periods_row", cfg.PeriodsRow)
	cfg.StatementType = opts.String("statement_type", cfg.StatementType)

	path, err := sourcePath(source, ioconfig.FormatExcel, ".xlsx", ".xlsm")
	if err != nil {
		return nil, err
	}
	if err := checkOptions(path, ioconfig.FormatExcel,
		[2]string{"items_col", atLeast(cfg.ItemsCol, 1)},
		[2]string{"periods_row", atLeast(cfg.PeriodsRow, 1)},
		[2]string{"sheet_name", nonBlank(cfg.SheetName)},
	); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, iocore.NewReadError("Read cancelled", path, ioconfig.FormatExcel, err)
	}

	grid, err := loadSheet(path, cfg.SheetName)
	if err != nil {
		return nil, iocore.NewReadError("Failed to read Excel file", path, ioconfig.FormatExcel, err)
	}
	if cfg.PeriodsRow > len(grid) {
		return nil, iocore.NewReadError(
			fmt.Sprintf("Periods row %d is beyond the last row (%d) of sheet %q", cfg.PeriodsRow, len(grid), cfg.SheetName),
			path, ioconfig.FormatExcel, nil)
	}

	headerCells := grid[cfg.PeriodsRow-1]
	header := make([]string, len(headerCells))
	for i, c := range headerCells {
		header[i] = strings.TrimSpace(c)
	}
	rows := make([][]any, 0, len(grid)-cfg.PeriodsRow)
	for _, rec := range grid[cfg.PeriodsRow:] {
		row := make([]any, len(rec))
		for i, c := range rec {
			row[i] = c
		}
		rows = append(rows, row)
	}

	sourceID := fmt.Sprintf("%s[%s]", path, cfg.SheetName)
	t := &table{
		sourceID:   sourceID,
		formatType: ioconfig.FormatExcel,
		header:     header,
		rows:       rows,
		mapping:    iocore.Mapper{Defaults: r.defaults, User: cfg.MappingConfig}.Mapping(cfg.StatementType),
	}

	if cfg.Layout == ioconfig.LayoutLong {
		required := []string{cfg.ItemCol, cfg.PeriodCol, cfg.ValueCol}
		if err := iocore.ValidateRequiredColumns(header, required, sourceID); err != nil {
			return nil, iocore.WithFormat(err, ioconfig.FormatExcel)
		}
		return t.longGraph(columnIndex(header, cfg.ItemCol), columnIndex(header, cfg.PeriodCol), columnIndex(header, cfg.ValueCol))
	}

	itemIdx := cfg.ItemsCol - 1
	var periodCols []int
	for i := itemIdx + 1; i < len(header); i++ {
		periodCols = append(periodCols, i)
	}
	return t.wideGraph(itemIdx, periodCols)
}

func loadSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found (available: %s)", sheet, strings.Join(f.GetSheetList(), ", "))
	}
	return f.GetRows(sheet, excelize.Options{RawCellValue: true})
}
