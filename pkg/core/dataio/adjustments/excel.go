// Package adjustments reads and writes adjustment workbooks: one adjustment
// per row, with node_name, period, value and reason columns plus optional
// type, scale, priority, scenario, tags, period range, user and id columns.
package adjustments

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// DefaultSheet is the worksheet WriteExcel creates.
const DefaultSheet = "Adjustments"

// RequiredColumns must be present in every workbook.
var RequiredColumns = []string{"node_name", "period", "value", "reason"}

// Column order written by WriteExcel.
var exportColumns = []string{
	"id", "node_name", "period", "start_period", "end_period", "value", "type",
	"scale", "priority", "scenario", "tags", "reason", "user", "timestamp",
}

// RowError describes one rejected workbook row. Row is the 1-based sheet row.
type RowError struct {
	Row     int
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ReadExcel parses the adjustments on sheet (the first sheet when empty). It
// returns the valid adjustments and one RowError per rejected row; err is
// set only when the workbook itself cannot be used.
func ReadExcel(path, sheet string) ([]graph.Adjustment, []RowError, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, iocore.NewReadError("Failed to open adjustments workbook", path, ioconfig.FormatExcel, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, iocore.NewReadError(fmt.Sprintf("Failed to read sheet %q", sheet), path, ioconfig.FormatExcel, err)
	}
	if len(rows) == 0 {
		return nil, nil, iocore.NewReadError(fmt.Sprintf("Sheet %q is empty", sheet), path, ioconfig.FormatExcel, nil)
	}

	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		name := strings.ToLower(strings.Join(strings.Fields(h), "_"))
		header[i] = name
		index[name] = i
	}
	if err := iocore.ValidateRequiredColumns(header, RequiredColumns, path); err != nil {
		return nil, nil, iocore.WithFormat(err, ioconfig.FormatExcel)
	}

	var (
		adjs    []graph.Adjustment
		rowErrs []RowError
	)
	for i, rec := range rows[1:] {
		rowNum := i + 2
		if blankRow(rec) {
			continue
		}
		cell := func(col string) string {
			idx, ok := index[col]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}

		adj, err := parseRow(cell)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		adjs = append(adjs, adj)
	}

	logging.Named("io.adjustments").Info("read adjustments workbook",
		zap.String("path", path), zap.Int("valid", len(adjs)), zap.Int("rejected", len(rowErrs)))
	return adjs, rowErrs, nil
}

func parseRow(cell func(string) string) (graph.Adjustment, error) {
	adj := graph.Adjustment{
		NodeName:    cell("node_name"),
		Period:      cell("period"),
		StartPeriod: cell("start_period"),
		EndPeriod:   cell("end_period"),
		Type:        graph.AdjustmentAdditive,
		Scale:       1,
		Scenario:    graph.DefaultScenario,
		Reason:      cell("reason"),
		User:        cell("user"),
	}
	if name, ok := iocore.ValidateNodeName(adj.NodeName, false); ok {
		adj.NodeName = name
	}

	raw := cell("value")
	v, err := strconv.ParseFloat(iocore.CleanNumericText(raw), 64)
	if err != nil {
		return adj, fmt.Errorf("value %q is not numeric", raw)
	}
	adj.Value = v

	if s := cell("type"); s != "" {
		adj.Type = graph.AdjustmentType(strings.ToLower(s))
	}
	if s := cell("scale"); s != "" {
		scale, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return adj, fmt.Errorf("scale %q is not numeric", s)
		}
		adj.Scale = scale
	}
	if s := cell("priority"); s != "" {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil || p != float64(int(p)) {
			return adj, fmt.Errorf("priority %q is not an integer", s)
		}
		adj.Priority = int(p)
	}
	if s := cell("scenario"); s != "" {
		adj.Scenario = s
	}
	if s := cell("tags"); s != "" {
		for _, tag := range strings.Split(s, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				adj.Tags = append(adj.Tags, tag)
			}
		}
	}
	if s := cell("id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return adj, fmt.Errorf("id %q is not a UUID", s)
		}
		adj.ID = id
	} else {
		adj.ID = uuid.New()
	}
	if s := cell("timestamp"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return adj, fmt.Errorf("timestamp %q is not RFC 3339", s)
		}
		adj.Timestamp = ts
	} else {
		adj.Timestamp = time.Now().UTC()
	}

	if err := adj.Validate(); err != nil {
		return adj, err
	}
	return adj, nil
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteExcel writes adjs to a new workbook at path, one row per adjustment.
func WriteExcel(adjs []graph.Adjustment, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DefaultSheet); err != nil {
		return iocore.NewWriteError("Failed to prepare adjustments workbook", path, ioconfig.FormatExcel, err)
	}

	header := make([]any, len(exportColumns))
	for i, c := range exportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(DefaultSheet, "A1", &header); err != nil {
		return iocore.NewWriteError("Failed to write adjustments header", path, ioconfig.FormatExcel, err)
	}

	for i, a := range adjs {
		row := []any{
			a.ID.String(), a.NodeName, a.Period, a.StartPeriod, a.EndPeriod, a.Value, string(a.Type),
			a.Scale, a.Priority, a.Scenario, strings.Join(a.Tags, ", "), a.Reason, a.User,
			a.Timestamp.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return iocore.NewWriteError("Failed to write adjustment row", path, ioconfig.FormatExcel, err)
		}
		if err := f.SetSheetRow(DefaultSheet, cell, &row); err != nil {
			return iocore.NewWriteError("Failed to write adjustment row", path, ioconfig.FormatExcel, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return iocore.NewWriteError("Failed to create directory", path, ioconfig.FormatExcel, err)
	}
	if err := f.SaveAs(path); err != nil {
		return iocore.NewWriteError("Failed to save adjustments workbook", path, ioconfig.FormatExcel, err)
	}
	return nil
}
