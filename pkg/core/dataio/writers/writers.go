// Package writers implements the format writers that render a Graph to
// external shapes: DataFrames, maps, workbooks, Markdown, graph definitions
// and the graph store.
package writers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/graph"
)

// extract applies the include_nodes/recalculate call-time overrides and
// returns the values to render.
func extract(g *graph.Graph, opts iocore.Options, includeNodes []string, recalculate bool) *iocore.GraphData {
	return iocore.ExtractGraphData(g,
		opts.StringSlice("include_nodes", includeNodes),
		opts.Bool("recalculate", recalculate))
}

func requireGraph(g *graph.Graph, target any, formatType string) error {
	if g == nil {
		return iocore.NewWriteError("Graph is nil", target, formatType, nil)
	}
	return nil
}

// writeJSONFile writes v to path, creating parent directories.
func writeJSONFile(path string, v any, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// targetPath returns target as a file path, or "" when target is not a
// non-empty string.
func targetPath(target any) string {
	if s, ok := target.(string); ok {
		return s
	}
	return ""
}
