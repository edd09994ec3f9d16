package readers

import (
	"context"
	"encoding/json"
	"fmt"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/store"
)

// GraphDefinitionReader rebuilds a whole Graph (periods, nodes of every
// kind and adjustments) from a graph definition.
type GraphDefinitionReader struct {
	cfg ioconfig.GraphDefinitionReaderConfig
}

// NewGraphDefinitionReader is the graph_definition_dict reader factory.
func NewGraphDefinitionReader(cfg any, hc iocore.HandlerContext) (iocore.Reader, error) {
	c, ok := cfg.(ioconfig.GraphDefinitionReaderConfig)
	if !ok {
		return nil, fmt.Errorf("graph definition reader requires GraphDefinitionReaderConfig, got %T", cfg)
	}
	return &GraphDefinitionReader{cfg: c}, nil
}

// Read accepts a *graph.Definition, a map as produced by the
// graph_definition_dict writer, JSON bytes, a JSON string or a file path.
func (r *GraphDefinitionReader) Read(ctx context.Context, source any, opts iocore.Options) (*graph.Graph, error) {
	sourceID := "graph definition"
	if s, ok := source.(string); ok && len(s) < 256 {
		sourceID = s
	}

	def, err := toDefinition(source)
	if err != nil {
		return nil, iocore.NewReadError("Invalid graph definition", sourceID, ioconfig.FormatGraphDefinition, err)
	}
	return graphFromDefinition(def, sourceID, ioconfig.FormatGraphDefinition)
}

func toDefinition(source any) (*graph.Definition, error) {
	switch s := source.(type) {
	case *graph.Definition:
		if s == nil {
			return nil, fmt.Errorf("definition is nil")
		}
		return s, nil
	case graph.Definition:
		return &s, nil
	}

	doc, err := iocore.LoadStructuredSource(source)
	if err != nil {
		return nil, err
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", doc)
	}
	if _, ok := m["nodes"]; !ok {
		return nil, fmt.Errorf("missing required key \"nodes\"")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var def graph.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func graphFromDefinition(def *graph.Definition, sourceID, formatType string) (*graph.Graph, error) {
	g, err := graph.FromDefinition(def)
	if err != nil {
		return nil, iocore.NewReadError("Failed to rebuild graph from definition", sourceID, formatType, err)
	}
	return g, nil
}

// =============================================================================
// GRAPH STORE READER
// =============================================================================

// GraphStoreReader loads a graph saved by the graph_store writer.
type GraphStoreReader struct {
	cfg ioconfig.GraphStoreReaderConfig
}

// NewGraphStoreReader is the graph_store reader factory.
func NewGraphStoreReader(cfg any, hc iocore.HandlerContext) (iocore.Reader, error) {
	c, ok := cfg.(ioconfig.GraphStoreReaderConfig)
	if !ok {
		return nil, fmt.Errorf("graph store reader requires GraphStoreReaderConfig, got %T", cfg)
	}
	return &GraphStoreReader{cfg: c}, nil
}

// Read loads the graph stored under source (the key).
func (r *GraphStoreReader) Read(ctx context.Context, source any, opts iocore.Options) (*graph.Graph, error) {
	key, ok := source.(string)
	if !ok || key == "" {
		key = r.cfg.Source
	}

	s, err := store.Open(ctx, r.cfg.DSN, r.cfg.Dir)
	if err != nil {
		return nil, iocore.NewReadError("Failed to open graph store", key, ioconfig.FormatGraphStore, err)
	}
	defer s.Close()

	def, err := s.Load(ctx, key)
	if err != nil {
		return nil, iocore.NewReadError("Failed to load graph", key, ioconfig.FormatGraphStore, err)
	}
	return graphFromDefinition(def, key, ioconfig.FormatGraphStore)
}
