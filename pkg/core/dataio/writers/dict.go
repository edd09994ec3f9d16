package writers

import (
	"context"
	"fmt"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
)

// DictWriter renders {node: {period: value}}. Periods without a value are
// omitted.
type DictWriter struct {
	cfg ioconfig.DictWriterConfig
}

// NewDictWriter is the dict writer factory.
func NewDictWriter(cfg any, hc iocore.HandlerContext) (iocore.Writer, error) {
	c, ok := cfg.(ioconfig.DictWriterConfig)
	if !ok {
		return nil, fmt.Errorf("dict writer requires DictWriterConfig, got %T", cfg)
	}
	return &DictWriter{cfg: c}, nil
}

// Write returns a map[string]map[string]float64. A string target is also
// written as a JSON file.
func (w *DictWriter) Write(ctx context.Context, g *graph.Graph, target any, opts iocore.Options) (any, error) {
	if err := requireGraph(g, target, ioconfig.FormatDict); err != nil {
		return nil, err
	}
	data := extract(g, opts, w.cfg.IncludeNodes, w.cfg.Recalculate)

	out := make(map[string]map[string]float64, len(data.Nodes))
	for _, name := range data.Nodes {
		row := make(map[string]float64, len(data.Values[name]))
		for p, v := range data.Values[name] {
			row[p] = v
		}
		out[name] = row
	}

	if path := targetPath(target); path != "" {
		if err := writeJSONFile(path, out, true); err != nil {
			return nil, iocore.NewWriteError("Failed to write dict", path, ioconfig.FormatDict, err)
		}
	}
	return out, nil
}
