package readers

import (
	"context"
	"fmt"
	"sort"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"go.uber.org/zap"
)

// DictReader reads {node: {period: value}} data from Go maps, JSON bytes, a
// JSON string or a JSON/Hjson file.
type DictReader struct {
	cfg ioconfig.DictReaderConfig
}

// NewDictReader is the dict reader factory.
func NewDictReader(cfg any, hc iocore.HandlerContext) (iocore.Reader, error) {
	c, ok := cfg.(ioconfig.DictReaderConfig)
	if !ok {
		return nil, fmt.Errorf("dict reader requires DictReaderConfig, got %T", cfg)
	}
	return &DictReader{cfg: c}, nil
}

// Read builds one data node per entry. Nodes are added in name order. The
// "periods" option (or config) fixes the graph periods; otherwise they are
// inferred from the data.
func (r *DictReader) Read(ctx context.Context, source any, opts iocore.Options) (*graph.Graph, error) {
	sourceID := "dict"
	if s, ok := source.(string); ok && len(s) < 256 {
		sourceID = s
	}

	doc, err := iocore.LoadStructuredSource(source)
	if err != nil {
		return nil, iocore.NewReadError("Failed to load dict source", sourceID, ioconfig.FormatDict, err)
	}
	entries, err := dictEntries(doc)
	if err != nil {
		return nil, iocore.NewReadError("Invalid dict structure", sourceID, ioconfig.FormatDict, err)
	}

	log := logging.Named("io.readers")
	explicit := opts.StringSlice("periods", r.cfg.Periods)
	allowed := make(map[string]bool, len(explicit))
	for _, p := range explicit {
		allowed[p] = true
	}

	collector := iocore.NewValidationResultCollector()
	items := newItemValues()
	var periods []string
	seen := make(map[string]bool)

	names := make([]string, 0, len(entries))
	for k := range entries {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, raw := range names {
		name, ok := iocore.ValidateNodeName(raw, false)
		if !ok {
			collector.AddError(raw, "Invalid node name", iocore.CategoryNodeName)
			continue
		}

		periodValues, ok := entries[raw].(map[string]any)
		if !ok {
			collector.AddError(name, fmt.Sprintf("Expected a mapping of period to value, got %T", entries[raw]), iocore.CategoryStructure)
			continue
		}

		vals := items.touch(name)
		for period, v := range periodValues {
			if period == "" {
				collector.AddError(name, "Empty period key", iocore.CategoryPeriod)
				continue
			}
			if len(allowed) > 0 && !allowed[period] {
				log.Warn("dropping value outside configured periods",
					zap.String("node", name), zap.String("period", period), zap.String("source", sourceID))
				continue
			}
			valid, f := iocore.ValidateNumericValue(v, name, period, collector, false)
			if !valid || f == nil {
				continue
			}
			vals[period] = *f
			if !seen[period] {
				seen[period] = true
				periods = append(periods, period)
			}
		}
		if len(vals) == 0 {
			log.Warn("node has no values and is skipped", zap.String("node", name), zap.String("source", sourceID))
		}
	}

	if collector.HasErrors() {
		return nil, iocore.NewReadError(
			iocore.CreateValidationSummary(collector, sourceID, "reading"),
			sourceID, ioconfig.FormatDict, nil)
	}

	if len(explicit) > 0 {
		periods = explicit
	} else if err := iocore.ValidatePeriodsExist(periods, sourceID, 1); err != nil {
		return nil, iocore.WithFormat(err, ioconfig.FormatDict)
	}
	return buildItemGraph(periods, items, sourceID, ioconfig.FormatDict)
}

// dictEntries normalizes the accepted map shapes to name -> map[string]any.
func dictEntries(doc any) (map[string]any, error) {
	switch d := doc.(type) {
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, v := range d {
			out[k] = periodMap(v)
		}
		return out, nil
	case map[string]map[string]float64:
		out := make(map[string]any, len(d))
		for k, v := range d {
			m := make(map[string]any, len(v))
			for p, f := range v {
				m[p] = f
			}
			out[k] = m
		}
		return out, nil
	case map[string]map[string]any:
		out := make(map[string]any, len(d))
		for k, v := range d {
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a mapping of node name to period values, got %T", doc)
}

func periodMap(v any) any {
	switch m := v.(type) {
	case map[string]float64:
		out := make(map[string]any, len(m))
		for p, f := range m {
			out[p] = f
		}
		return out
	case map[string]int:
		out := make(map[string]any, len(m))
		for p, n := range m {
			out[p] = n
		}
		return out
	}
	return v
}
