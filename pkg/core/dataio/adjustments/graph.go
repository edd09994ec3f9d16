package adjustments

import (
	"fmt"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"go.uber.org/zap"
)

// LoadIntoGraph reads the workbook at path and adds its adjustments to g,
// replacing the existing ones when replace is set. Any rejected row or
// unknown node fails the whole load and leaves g unchanged. It returns the
// number of adjustments added.
func LoadIntoGraph(g *graph.Graph, path string, replace bool) (int, error) {
	adjs, rowErrs, err := ReadExcel(path, "")
	if err != nil {
		return 0, err
	}

	collector := iocore.NewValidationResultCollector()
	for _, re := range rowErrs {
		collector.AddError(fmt.Sprintf("row %d", re.Row), re.Message, iocore.CategoryStructure)
	}
	for _, a := range adjs {
		if !g.HasNode(a.NodeName) {
			collector.AddError(a.NodeName, "Node not found in graph", iocore.CategoryNodeName)
		}
	}
	if collector.HasErrors() {
		return 0, iocore.NewReadError(
			iocore.CreateValidationSummary(collector, path, "loading adjustments from"),
			path, ioconfig.FormatExcel, nil)
	}

	previous := g.Adjustments()
	if replace {
		g.ClearAdjustments()
	}
	for _, a := range adjs {
		if _, err := g.AddAdjustment(a); err != nil {
			restore(g, previous)
			return 0, iocore.NewReadError("Failed to add adjustment", path, ioconfig.FormatExcel, err)
		}
	}

	logging.Named("io.adjustments").Info("loaded adjustments",
		zap.String("path", path), zap.Int("count", len(adjs)), zap.Bool("replace", replace))
	return len(adjs), nil
}

func restore(g *graph.Graph, adjs []graph.Adjustment) {
	g.ClearAdjustments()
	for _, a := range adjs {
		if _, err := g.AddAdjustment(a); err != nil {
			logging.Named("io.adjustments").Error("failed to restore adjustment",
				zap.String("id", a.ID.String()), zap.Error(err))
		}
	}
}

// ExportFromGraph writes every adjustment in g to a workbook at path and
// returns how many were written.
func ExportFromGraph(g *graph.Graph, path string) (int, error) {
	adjs := g.Adjustments()
	if err := WriteExcel(adjs, path); err != nil {
		return 0, err
	}
	return len(adjs), nil
}
