// Package iocore holds the machinery shared by every reader and writer: the
// error taxonomy, the format-handler registry, configuration decoding,
// validation helpers and name mapping.
package iocore

import (
	"context"

	"finstatements/pkg/core/graph"
)

// Reader builds a Graph from a source.
type Reader interface {
	Read(ctx context.Context, source any, opts Options) (*graph.Graph, error)
}

// Writer renders a Graph to a target and returns the produced artifact
// (a DataFrame, a map, a string, or the written path).
type Writer interface {
	Write(ctx context.Context, g *graph.Graph, target any, opts Options) (any, error)
}

// Options are call-time arguments forwarded verbatim to Read/Write.
type Options map[string]any

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. Integral float64 values (as
// decoded from JSON) are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			if n == float64(int(n)) {
				return int(n)
			}
		}
	}
	return def
}

// StringSlice returns a []string for key, accepting []string or []any of
// strings. Missing keys return def.
func (o Options) StringSlice(key string, def []string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []string:
			return vv
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return def
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	return o[key]
}
