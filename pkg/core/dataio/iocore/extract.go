package iocore

import (
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"go.uber.org/zap"
)

// GraphData is the {node: {period: value}} view writers render from.
// Entries are absent where a node has no value for a period.
type GraphData struct {
	Nodes   []string
	Periods []string
	Values  map[string]map[string]float64
}

// Value returns the entry for node and period.
func (d *GraphData) Value(node, period string) (float64, bool) {
	v, ok := d.Values[node][period]
	return v, ok
}

// ExtractGraphData collects values for includeNodes (all nodes when empty).
// Data nodes contribute their stored values; other nodes are calculated and
// periods that fail to calculate are left absent. Unknown node names are
// skipped with a warning. With recalculate set, calculation caches are
// cleared first.
func ExtractGraphData(g *graph.Graph, includeNodes []string, recalculate bool) *GraphData {
	log := logging.Named("io.extract")

	if recalculate {
		g.ClearCalculationCache()
	}

	names := includeNodes
	if len(names) == 0 {
		names = g.NodeNames()
	}

	data := &GraphData{
		Periods: g.Periods(),
		Values:  make(map[string]map[string]float64, len(names)),
	}

	for _, name := range names {
		node, ok := g.GetNode(name)
		if !ok {
			log.Warn("node not found in graph, skipping", zap.String("node", name))
			continue
		}
		data.Nodes = append(data.Nodes, name)

		row := make(map[string]float64)
		if item, isItem := node.(*graph.ItemNode); isItem {
			for _, p := range data.Periods {
				if v, has := item.Value(p); has {
					row[p] = v
				}
			}
		} else {
			for _, p := range data.Periods {
				v, err := node.Calculate(p)
				if err != nil {
					log.Debug("value unavailable", zap.String("node", name), zap.String("period", p), zap.Error(err))
					continue
				}
				row[p] = v
			}
		}
		data.Values[name] = row
	}
	return data
}
