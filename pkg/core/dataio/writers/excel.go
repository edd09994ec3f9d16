package writers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"finstatements/pkg/core/config"
	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExcelWriter writes the graph to a single worksheet in the wide layout the
// excel reader expects: a header row of periods and one row per node.
type ExcelWriter struct {
	cfg ioconfig.ExcelWriterConfig
}

// NewExcelWriter is the excel writer factory.
func NewExcelWriter(cfg any, hc iocore.HandlerContext) (iocore.Writer, error) {
	c, ok := cfg.(ioconfig.ExcelWriterConfig)
	if !ok {
		return nil, fmt.Errorf("excel writer requires ExcelWriterConfig, got %T", cfg)
	}
	return &ExcelWriter{cfg: c}, nil
}

// Write saves the workbook and returns its path.
func (w *ExcelWriter) Write(ctx context.Context, g *graph.Graph, target any, opts iocore.Options) (any, error) {
	path := w.cfg.Target
	if p := targetPath(target); p != "" {
		path = p
	}
	if err := requireGraph(g, path, ioconfig.FormatExcel); err != nil {
		return nil, err
	}
	sheet := opts.String("sheet_name", w.cfg.SheetName)
	data := extract(g, opts, w.cfg.IncludeNodes, w.cfg.Recalculate)

	if err := saveWorkbook(path, sheet, data); err != nil {
		return nil, iocore.NewWriteError("Failed to write Excel file", path, ioconfig.FormatExcel, err)
	}

	logging.Named("io.writers").Info("wrote workbook",
		zap.String("path", path), zap.String("sheet", sheet), zap.Int("nodes", len(data.Nodes)))
	return path, nil
}

func saveWorkbook(path, sheet string, data *iocore.GraphData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	header := make([]any, 0, len(data.Periods)+1)
	header = append(header, config.Get().IO.DefaultItemColumn)
	for _, p := range data.Periods {
		header = append(header, p)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, name := range data.Nodes {
		row := make([]any, 0, len(data.Periods)+1)
		row = append(row, name)
		for _, p := range data.Periods {
			if v, ok := data.Value(name, p); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return f.SaveAs(path)
}
