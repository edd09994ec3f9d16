package writers

import (
	"context"
	"encoding/json"
	"fmt"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/store"
)

// GraphDefinitionWriter serializes the whole graph (periods, node
// definitions and adjustments) to a JSON-compatible map.
type GraphDefinitionWriter struct {
	cfg ioconfig.GraphDefinitionWriterConfig
}

// NewGraphDefinitionWriter is the graph_definition_dict writer factory.
func NewGraphDefinitionWriter(cfg any, hc iocore.HandlerContext) (iocore.Writer, error) {
	c, ok := cfg.(ioconfig.GraphDefinitionWriterConfig)
	if !ok {
		return nil, fmt.Errorf("graph definition writer requires GraphDefinitionWriterConfig, got %T", cfg)
	}
	return &GraphDefinitionWriter{cfg: c}, nil
}

// Write returns the definition as map[string]any. A string target is also
// written as a JSON file.
func (w *GraphDefinitionWriter) Write(ctx context.Context, g *graph.Graph, target any, opts iocore.Options) (any, error) {
	if err := requireGraph(g, target, ioconfig.FormatGraphDefinition); err != nil {
		return nil, err
	}
	def := g.ToDefinition()

	data, err := json.Marshal(def)
	if err != nil {
		return nil, iocore.NewWriteError("Failed to serialize graph definition", target, ioconfig.FormatGraphDefinition, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, iocore.NewWriteError("Failed to serialize graph definition", target, ioconfig.FormatGraphDefinition, err)
	}

	path := targetPath(target)
	if path == "" {
		path = targetPath(w.cfg.Target)
	}
	if path != "" {
		if err := writeJSONFile(path, def, opts.Bool("indent", w.cfg.Indent)); err != nil {
			return nil, iocore.NewWriteError("Failed to write graph definition", path, ioconfig.FormatGraphDefinition, err)
		}
	}
	return out, nil
}

// =============================================================================
// GRAPH STORE WRITER
// =============================================================================

// GraphStoreWriter saves the graph definition under a key.
type GraphStoreWriter struct {
	cfg ioconfig.GraphStoreWriterConfig
}

// NewGraphStoreWriter is the graph_store writer factory.
func NewGraphStoreWriter(cfg any, hc iocore.HandlerContext) (iocore.Writer, error) {
	c, ok := cfg.(ioconfig.GraphStoreWriterConfig)
	if !ok {
		return nil, fmt.Errorf("graph store writer requires GraphStoreWriterConfig, got %T", cfg)
	}
	return &GraphStoreWriter{cfg: c}, nil
}

// Write stores the graph and returns the key.
func (w *GraphStoreWriter) Write(ctx context.Context, g *graph.Graph, target any, opts iocore.Options) (any, error) {
	key := targetPath(target)
	if key == "" {
		key = w.cfg.Target
	}
	if err := requireGraph(g, key, ioconfig.FormatGraphStore); err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, w.cfg.DSN, w.cfg.Dir)
	if err != nil {
		return nil, iocore.NewWriteError("Failed to open graph store", key, ioconfig.FormatGraphStore, err)
	}
	defer s.Close()

	if err := s.EnsureSchema(ctx); err != nil {
		return nil, iocore.NewWriteError("Failed to prepare graph store", key, ioconfig.FormatGraphStore, err)
	}
	if err := s.Save(ctx, key, g.ToDefinition()); err != nil {
		return nil, iocore.NewWriteError("Failed to save graph", key, ioconfig.FormatGraphStore, err)
	}
	return key, nil
}
