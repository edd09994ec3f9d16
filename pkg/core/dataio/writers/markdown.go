package writers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

// Keys accepted in MarkdownWriterConfig.Extra and as call-time options.
var markdownRenderKeys = map[string]bool{
	"title":       true,
	"decimals":    true,
	"item_header": true,
}

// MarkdownWriter renders a statement table followed by forecast and
// adjustment notes.
type MarkdownWriter struct {
	cfg ioconfig.MarkdownWriterConfig
}

// NewMarkdownWriter is the markdown writer factory.
func NewMarkdownWriter(cfg any, hc iocore.HandlerContext) (iocore.Writer, error) {
	c, ok := cfg.(ioconfig.MarkdownWriterConfig)
	if !ok {
		return nil, fmt.Errorf("markdown writer requires MarkdownWriterConfig, got %T", cfg)
	}
	for k := range c.Extra {
		if !markdownRenderKeys[k] {
			logging.Named("io.writers").Debug("ignoring unknown markdown option", zap.String("key", k))
		}
	}
	return &MarkdownWriter{cfg: c}, nil
}

type markdownColumn struct {
	period   string
	forecast bool
}

// Write returns the Markdown document. A string target is also written to
// that file.
func (w *MarkdownWriter) Write(ctx context.Context, g *graph.Graph, target any, opts iocore.Options) (any, error) {
	if err := requireGraph(g, target, ioconfig.FormatMarkdown); err != nil {
		return nil, err
	}

	render := iocore.Options{}
	for k, v := range w.cfg.Extra {
		render[k] = v
	}
	for k, v := range opts {
		render[k] = v
	}

	data := extract(g, opts, w.cfg.IncludeNodes, w.cfg.Recalculate)
	columns := w.columns(g, render)
	scenario := render.String("adjustment_scenario", w.cfg.AdjustmentScenario)
	decimals := render.Int("decimals", 2)

	var b strings.Builder
	if title := render.String("title", ""); title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}

	b.WriteString("| ")
	b.WriteString(escapeCell(render.String("item_header", "Item")))
	for _, c := range columns {
		label := c.period
		if c.forecast {
			label += "E"
		}
		b.WriteString(" | ")
		b.WriteString(escapeCell(label))
	}
	b.WriteString(" |\n| :---")
	for range columns {
		b.WriteString(" | ---:")
	}
	b.WriteString(" |\n")

	adjusted := false
	for _, name := range data.Nodes {
		b.WriteString("| ")
		b.WriteString(escapeCell(name))
		for _, c := range columns {
			b.WriteString(" | ")
			v, ok := data.Value(name, c.period)
			if !ok {
				continue
			}
			cell := strconv.FormatFloat(v, 'f', decimals, 64)
			if w.cfg.AdjustmentNotes && len(g.AdjustmentsFor(name, c.period, scenario)) > 0 {
				if av, applied, err := g.AdjustedValue(name, c.period, scenario); err == nil && applied {
					cell = strconv.FormatFloat(av, 'f', decimals, 64) + `\*`
					adjusted = true
				}
			}
			b.WriteString(cell)
		}
		b.WriteString(" |\n")
	}
	if adjusted {
		b.WriteString("\n\\* Includes adjustments.\n")
	}

	if w.cfg.ForecastNotes {
		if notes := forecastNotes(g, data.Nodes); len(notes) > 0 {
			b.WriteString("\n## Forecast Notes\n\n")
			for _, n := range notes {
				fmt.Fprintf(&b, "- %s\n", n)
			}
		}
	}
	if w.cfg.AdjustmentNotes {
		if notes := adjustmentNotes(g, data.Nodes, scenario, decimals); len(notes) > 0 {
			b.WriteString("\n## Adjustments\n\n")
			for _, n := range notes {
				fmt.Fprintf(&b, "- %s\n", n)
			}
		}
	}

	doc := b.String()
	if err := validateMarkdownTable(doc, len(columns)+1, len(data.Nodes)); err != nil {
		return nil, iocore.NewWriteError("Rendered Markdown failed validation", target, ioconfig.FormatMarkdown, err)
	}

	if path := targetPath(target); path != "" {
		if err := writeFile(path, []byte(doc)); err != nil {
			return nil, iocore.NewWriteError("Failed to write Markdown file", path, ioconfig.FormatMarkdown, err)
		}
	}
	return doc, nil
}

// columns lists historical then forecast periods. Without explicit
// configuration every graph period is shown and periods projected by a
// forecast node are flagged.
func (w *MarkdownWriter) columns(g *graph.Graph, opts iocore.Options) []markdownColumn {
	historical := opts.StringSlice("historical_periods", w.cfg.HistoricalPeriods)
	forecast := opts.StringSlice("forecast_periods", w.cfg.ForecastPeriods)

	var cols []markdownColumn
	if len(historical) > 0 || len(forecast) > 0 {
		for _, p := range historical {
			cols = append(cols, markdownColumn{period: p})
		}
		for _, p := range forecast {
			cols = append(cols, markdownColumn{period: p, forecast: true})
		}
		return cols
	}

	projected := make(map[string]bool)
	for _, n := range g.Nodes() {
		if f, ok := n.(*graph.ForecastNode); ok {
			for _, p := range f.ForecastPeriods() {
				projected[p] = true
			}
		}
	}
	for _, p := range g.Periods() {
		cols = append(cols, markdownColumn{period: p, forecast: projected[p]})
	}
	return cols
}

func forecastNotes(g *graph.Graph, nodes []string) []string {
	var notes []string
	for _, name := range nodes {
		n, ok := g.GetNode(name)
		if !ok {
			continue
		}
		f, ok := n.(*graph.ForecastNode)
		if !ok {
			continue
		}
		notes = append(notes, fmt.Sprintf("**%s**: %s on %s from %s; forecast periods %s",
			escapeInline(name), describeForecast(f), escapeInline(f.BaseNode()), f.BasePeriod(),
			strings.Join(f.ForecastPeriods(), ", ")))
	}
	return notes
}

func describeForecast(f *graph.ForecastNode) string {
	params := f.Params()
	switch f.Method() {
	case graph.ForecastSimple:
		return fmt.Sprintf("simple growth of %s per period", percent(params.GrowthRate))
	case graph.ForecastCurve:
		rates := make([]string, len(params.GrowthCurve))
		for i, r := range params.GrowthCurve {
			rates[i] = percent(r)
		}
		return "growth curve " + strings.Join(rates, ", ")
	case graph.ForecastAverage:
		return "historical average"
	case graph.ForecastHistoricalGrowth:
		return "average historical growth"
	}
	return string(f.Method())
}

func adjustmentNotes(g *graph.Graph, nodes []string, scenario string, decimals int) []string {
	if scenario == "" {
		scenario = graph.DefaultScenario
	}
	include := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		include[n] = true
	}

	adjs := g.Adjustments()
	sort.SliceStable(adjs, func(i, j int) bool {
		if adjs[i].NodeName != adjs[j].NodeName {
			return adjs[i].NodeName < adjs[j].NodeName
		}
		return adjs[i].Priority < adjs[j].Priority
	})

	var notes []string
	for _, a := range adjs {
		if !include[a.NodeName] || a.Scenario != scenario {
			continue
		}
		period := a.Period
		if period == "" {
			period = a.StartPeriod + ".." + a.EndPeriod
		}
		note := fmt.Sprintf("**%s** %s: %s %s", escapeInline(a.NodeName), period, a.Type,
			strconv.FormatFloat(a.Value, 'f', decimals, 64))
		if a.Scale != 0 && a.Scale != 1 {
			note += fmt.Sprintf(" at %s scale", percent(a.Scale))
		}
		if a.Reason != "" {
			note += fmt.Sprintf(" (%s)", escapeInline(a.Reason))
		}
		notes = append(notes, note)
	}
	return notes
}

// validateMarkdownTable parses doc with the GFM table extension and checks
// the first table's shape.
func validateMarkdownTable(doc string, wantCols, wantRows int) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader([]byte(doc)))

	var table *extast.Table
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*extast.Table); ok && entering {
			table = t
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if table == nil {
		return fmt.Errorf("no table found in output")
	}

	rows := 0
	for c := table.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *extast.TableHeader:
			if got := c.ChildCount(); got != wantCols {
				return fmt.Errorf("table header has %d cells, expected %d", got, wantCols)
			}
		case *extast.TableRow:
			rows++
		}
	}
	if rows != wantRows {
		return fmt.Errorf("table has %d rows, expected %d", rows, wantRows)
	}
	return nil
}

func percent(r float64) string {
	return strconv.FormatFloat(r*100, 'f', 1, 64) + "%"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeInline(s), "|", `\|`)
}

func escapeInline(s string) string {
	return strings.NewReplacer("*", `\*`, "\n", " ").Replace(s)
}
