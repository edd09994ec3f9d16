// Package readers implements the format readers that build a Graph from
// external sources.
package readers

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"go.uber.org/zap"
)

// =============================================================================
// TABLE PIPELINE - shared by csv, excel, dataframe and html
// =============================================================================

// table is a header plus data rows of raw cell values. Rows may be shorter
// than the header; missing cells read as nil.
type table struct {
	sourceID   string
	formatType string
	header     []string
	rows       [][]any
	mapping    iocore.Mapping
	// clean, when set, pre-processes every value cell.
	clean func(any) any
}

func (t *table) cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	v := row[idx]
	if t.clean != nil {
		v = t.clean(v)
	}
	return v
}

// itemValues accumulates period values per item in first-seen order.
type itemValues struct {
	order  []string
	values map[string]map[string]float64
}

func newItemValues() *itemValues {
	return &itemValues{values: make(map[string]map[string]float64)}
}

func (iv *itemValues) touch(name string) map[string]float64 {
	vals, ok := iv.values[name]
	if !ok {
		vals = make(map[string]float64)
		iv.values[name] = vals
		iv.order = append(iv.order, name)
	}
	return vals
}

// wideGraph reads rows as items and the header cells at periodCols as periods.
func (t *table) wideGraph(itemIdx int, periodCols []int) (*graph.Graph, error) {
	if err := iocore.ValidateColumnBounds(len(t.header), itemIdx, t.sourceID, "items column"); err != nil {
		return nil, iocore.WithFormat(err, t.formatType)
	}

	type periodCol struct {
		idx    int
		period string
	}
	var cols []periodCol
	var periods []string
	for _, idx := range periodCols {
		p := periodLabel(t.header[idx])
		if p == "" {
			continue
		}
		cols = append(cols, periodCol{idx: idx, period: p})
		periods = append(periods, p)
	}
	if err := iocore.ValidatePeriodsExist(periods, t.sourceID, 1); err != nil {
		return nil, iocore.WithFormat(err, t.formatType)
	}

	collector := iocore.NewValidationResultCollector()
	items := newItemValues()

	for _, row := range t.rows {
		name, ok := iocore.ValidateNodeName(cellAt(row, itemIdx), true)
		if !ok || name == "" {
			continue
		}
		name = iocore.ApplyMapping(name, t.mapping)
		vals := items.touch(name)

		for _, c := range cols {
			valid, v := iocore.ValidateNumericValue(t.cell(row, c.idx), name, c.period, collector, true)
			if valid && v != nil {
				vals[c.period] = *v
			}
		}
	}

	return t.finish(periods, items, collector)
}

// longGraph reads one (item, period, value) observation per row.
func (t *table) longGraph(itemIdx, periodIdx, valueIdx int) (*graph.Graph, error) {
	for _, c := range []struct {
		idx  int
		name string
	}{{itemIdx, "item column"}, {periodIdx, "period column"}, {valueIdx, "value column"}} {
		if err := iocore.ValidateColumnBounds(len(t.header), c.idx, t.sourceID, c.name); err != nil {
			return nil, iocore.WithFormat(err, t.formatType)
		}
	}

	collector := iocore.NewValidationResultCollector()
	items := newItemValues()
	var periods []string
	seen := make(map[string]bool)

	for i, row := range t.rows {
		name, ok := iocore.ValidateNodeName(cellAt(row, itemIdx), true)
		if !ok || name == "" {
			continue
		}
		name = iocore.ApplyMapping(name, t.mapping)

		period := periodLabel(cellAt(row, periodIdx))
		if period == "" {
			collector.AddError(name, fmt.Sprintf("Missing period in row %d", i+1), iocore.CategoryPeriod)
			continue
		}
		if !seen[period] {
			seen[period] = true
			periods = append(periods, period)
		}

		vals := items.touch(name)
		valid, v := iocore.ValidateNumericValue(t.cell(row, valueIdx), name, period, collector, true)
		if valid && v != nil {
			vals[period] = *v
		}
	}

	if err := iocore.ValidatePeriodsExist(periods, t.sourceID, 1); err != nil {
		return nil, iocore.WithFormat(err, t.formatType)
	}
	return t.finish(periods, items, collector)
}

// finish raises the aggregated validation error, or builds the Graph.
func (t *table) finish(periods []string, items *itemValues, collector *iocore.ValidationResultCollector) (*graph.Graph, error) {
	if collector.HasErrors() {
		return nil, iocore.NewReadError(
			iocore.CreateValidationSummary(collector, t.sourceID, "reading"),
			t.sourceID, t.formatType, nil)
	}
	return buildItemGraph(periods, items, t.sourceID, t.formatType)
}

func buildItemGraph(periods []string, items *itemValues, sourceID, formatType string) (*graph.Graph, error) {
	log := logging.Named("io.readers")

	g := graph.New(periods...)
	for _, name := range items.order {
		vals := items.values[name]
		if len(vals) == 0 {
			log.Debug("skipping item without values", zap.String("item", name), zap.String("source", sourceID))
			continue
		}
		if _, err := g.AddFinancialStatementItem(name, vals); err != nil {
			return nil, iocore.NewReadError("Failed to add node to graph", sourceID, formatType, err)
		}
	}

	log.Info("read graph",
		zap.String("format", formatType),
		zap.String("source", sourceID),
		zap.Int("nodes", g.Len()),
		zap.Int("periods", len(g.Periods())))
	return g, nil
}

func cellAt(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// periodLabel renders a header or period cell as a period string. Integral
// numbers (2023 stored as a float) drop their fraction.
func periodLabel(v any) string {
	switch p := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(p)
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && strings.HasSuffix(s, ".0") {
			return strconv.FormatInt(int64(f), 10)
		}
		return s
	case float64:
		if math.IsNaN(p) {
			return ""
		}
		if p == math.Trunc(p) {
			return strconv.FormatInt(int64(p), 10)
		}
		return strconv.FormatFloat(p, 'f', -1, 64)
	case int:
		return strconv.Itoa(p)
	case int64:
		return strconv.FormatInt(p, 10)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// checkOptions rejects call-time overrides that the constructor schema would
// have refused. Each entry is an option name and a problem, empty when fine.
func checkOptions(sourceID, formatType string, checks ...[2]string) error {
	var problems []string
	for _, c := range checks {
		if c[1] != "" {
			problems = append(problems, c[0]+": "+c[1])
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return iocore.NewReadError("Invalid read options: "+strings.Join(problems, "; "), sourceID, formatType, nil)
}

func atLeast(v, floor int) string {
	if v < floor {
		return fmt.Sprintf("must be >= %d, got %d", floor, v)
	}
	return ""
}

func nonBlank(s string) string {
	if strings.TrimSpace(s) == "" {
		return "must not be empty"
	}
	return ""
}

func singleRune(s string) string {
	if len([]rune(s)) != 1 {
		return fmt.Sprintf("must be a single character, got %q", s)
	}
	return ""
}

// =============================================================================
// FILE CHECKS
// =============================================================================

// sourcePath validates a file source: it must be a string naming an existing
// regular file with one of the allowed extensions.
func sourcePath(source any, formatType string, exts ...string) (string, error) {
	path, ok := source.(string)
	if !ok || strings.TrimSpace(path) == "" {
		return "", iocore.NewReadError(
			fmt.Sprintf("Source must be a file path string, got %T", source), source, formatType, nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", iocore.NewReadError("File not found", path, formatType, err)
	}
	if info.IsDir() {
		return "", iocore.NewReadError("Source is a directory, not a file", path, formatType, nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range exts {
		if ext == allowed {
			return path, nil
		}
	}
	return "", iocore.NewReadError(
		fmt.Sprintf("Invalid file extension %q, expected one of %s", ext, strings.Join(exts, ", ")),
		path, formatType, nil)
}
