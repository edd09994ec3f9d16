package readers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"

	"github.com/PuerkitoBio/goquery"
)

// HTMLReader extracts a wide financial table (line items down, periods
// across) from an HTML filing.
type HTMLReader struct {
	cfg      ioconfig.HTMLReaderConfig
	defaults iocore.ScopedMapping
}

// NewHTMLReader is the html reader factory.
func NewHTMLReader(cfg any, hc iocore.HandlerContext) (iocore.Reader, error) {
	c, ok := cfg.(ioconfig.HTMLReaderConfig)
	if !ok {
		return nil, fmt.Errorf("html reader requires HTMLReaderConfig, got %T", cfg)
	}
	return &HTMLReader{cfg: c, defaults: hc.Defaults}, nil
}

// Read parses source, an .html/.htm path or an HTML document string, and
// reads the table at table_index.
func (r *HTMLReader) Read(ctx context.Context, source any, opts iocore.Options) (*graph.Graph, error) {
	cfg := r.cfg
	cfg.TableIndex = opts.Int("table_index", cfg.TableIndex)
	cfg.StatementType = opts.String("statement_type", cfg.StatementType)

	var (
		sourceID string
		in       io.Reader
	)
	if s, ok := source.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "<") {
		sourceID = "html document"
		in = strings.NewReader(s)
	} else {
		path, err := sourcePath(source, ioconfig.FormatHTML, ".html", ".htm")
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, iocore.NewReadError("Failed to open HTML file", path, ioconfig.FormatHTML, err)
		}
		defer f.Close()
		sourceID, in = path, f
	}

	if err := checkOptions(sourceID, ioconfig.FormatHTML,
		[2]string{"table_index", atLeast(cfg.TableIndex, 0)},
	); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(in)
	if err != nil {
		return nil, iocore.NewReadError("Failed to parse HTML", sourceID, ioconfig.FormatHTML, err)
	}

	tables := doc.Find("table")
	if cfg.TableIndex >= tables.Length() {
		return nil, iocore.NewReadError(
			fmt.Sprintf("Table index %d out of range (%d tables found)", cfg.TableIndex, tables.Length()),
			sourceID, ioconfig.FormatHTML, nil)
	}
	grid := tableGrid(tables.Eq(cfg.TableIndex))
	if cfg.PeriodsRow > len(grid) {
		return nil, iocore.NewReadError(
			fmt.Sprintf("Periods row %d is beyond the last table row (%d)", cfg.PeriodsRow, len(grid)),
			sourceID, ioconfig.FormatHTML, nil)
	}

	header := grid[cfg.PeriodsRow-1]
	rows := make([][]any, 0, len(grid)-cfg.PeriodsRow)
	for _, rec := range grid[cfg.PeriodsRow:] {
		row := make([]any, len(rec))
		for i, c := range rec {
			row[i] = c
		}
		rows = append(rows, row)
	}

	t := &table{
		sourceID:   fmt.Sprintf("%s#table%d", sourceID, cfg.TableIndex),
		formatType: ioconfig.FormatHTML,
		header:     header,
		rows:       rows,
		mapping:    iocore.Mapper{Defaults: r.defaults, User: cfg.MappingConfig}.Mapping(cfg.StatementType),
		clean: func(v any) any {
			if s, ok := v.(string); ok {
				return iocore.CleanNumericText(s)
			}
			return v
		},
	}

	itemIdx := cfg.ItemsCol - 1
	var periodCols []int
	for i := itemIdx + 1; i < len(header); i++ {
		if header[i] != "" {
			periodCols = append(periodCols, i)
		}
	}
	return t.wideGraph(itemIdx, periodCols)
}

// tableGrid flattens a <table> into rows of trimmed cell text. A cell with
// colspan=n is followed by n-1 blank cells so columns stay aligned.
func tableGrid(sel *goquery.Selection) [][]string {
	var grid [][]string
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.Join(strings.Fields(cell.Text()), " "))
			if span, err := strconv.Atoi(cell.AttrOr("colspan", "1")); err == nil {
				for i := 1; i < span; i++ {
					row = append(row, "")
				}
			}
		})
		grid = append(grid, row)
	})
	return grid
}
