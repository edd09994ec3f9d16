package iocore

import (
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"finstatements/pkg/core/logging"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Mapping translates source field names to canonical node names.
type Mapping map[string]string

// ScopedMapping is a default mapping plus per-context overlays, e.g. one
// overlay per statement type.
type ScopedMapping struct {
	Default Mapping
	Scopes  map[string]Mapping
}

// IsZero reports whether the mapping has no entries at all.
func (s ScopedMapping) IsZero() bool {
	return len(s.Default) == 0 && len(s.Scopes) == 0
}

// Resolve returns the default entries overlaid with the entries scoped to
// context. Context entries win. The result is a fresh map.
func (s ScopedMapping) Resolve(context string) Mapping {
	out := make(Mapping, len(s.Default))
	for k, v := range s.Default {
		out[k] = v
	}
	if context == "" {
		return out
	}
	for k, v := range s.Scopes[context] {
		out[k] = v
	}
	return out
}

// ScopeNames returns the declared scopes, sorted.
func (s ScopedMapping) ScopeNames() []string {
	names := make([]string, 0, len(s.Scopes))
	for k := range s.Scopes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ParseMappingConfig accepts a flat mapping (source -> canonical) or a scoped
// one (context -> mapping). A scoped mapping names its default entry with the
// empty key "" (a nil key, as produced by YAML "~", is accepted too); the
// default entry is optional when every value is itself a mapping.
func ParseMappingConfig(raw any) (ScopedMapping, error) {
	switch m := raw.(type) {
	case nil:
		return ScopedMapping{}, nil
	case ScopedMapping:
		return m, nil
	case *ScopedMapping:
		if m == nil {
			return ScopedMapping{}, nil
		}
		return *m, nil
	case Mapping:
		return ScopedMapping{Default: copyMapping(m)}, nil
	case map[string]string:
		return ScopedMapping{Default: copyMapping(m)}, nil
	case map[string]Mapping:
		return scopedFromTyped(m), nil
	case map[string]map[string]string:
		typed := make(map[string]Mapping, len(m))
		for k, v := range m {
			typed[k] = v
		}
		return scopedFromTyped(typed), nil
	case map[string]any:
		return parseGenericMapping(m)
	case map[any]any:
		generic := make(map[string]any, len(m))
		for k, v := range m {
			key, err := mappingKey(k)
			if err != nil {
				return ScopedMapping{}, err
			}
			generic[key] = v
		}
		return parseGenericMapping(generic)
	}
	return ScopedMapping{}, fmt.Errorf("mapping must be a map of strings or a map of scoped maps, got %T", raw)
}

func scopedFromTyped(m map[string]Mapping) ScopedMapping {
	out := ScopedMapping{}
	for k, v := range m {
		if k == "" {
			out.Default = copyMapping(v)
			continue
		}
		if out.Scopes == nil {
			out.Scopes = make(map[string]Mapping)
		}
		out.Scopes[k] = copyMapping(v)
	}
	return out
}

func parseGenericMapping(m map[string]any) (ScopedMapping, error) {
	_, hasDefault := m[""]
	nested := 0
	for _, v := range m {
		if isMapValue(v) {
			nested++
		}
	}

	// Flat mapping: used as-is regardless of context.
	if !hasDefault && nested == 0 {
		flat := make(Mapping, len(m))
		for k, v := range m {
			s, ok := v.(string)
			if !ok {
				return ScopedMapping{}, fmt.Errorf("mapping value for %q must be a string, got %T", k, v)
			}
			flat[k] = s
		}
		return ScopedMapping{Default: flat}, nil
	}

	if nested != len(m) {
		return ScopedMapping{}, fmt.Errorf("scoped mapping values must all be mappings")
	}

	out := ScopedMapping{}
	for _, k := range sortedKeys(m) {
		inner, err := flatMapping(m[k], k)
		if err != nil {
			return ScopedMapping{}, err
		}
		if k == "" {
			out.Default = inner
			continue
		}
		if out.Scopes == nil {
			out.Scopes = make(map[string]Mapping)
		}
		out.Scopes[k] = inner
	}
	return out, nil
}

func flatMapping(v any, scope string) (Mapping, error) {
	out := Mapping{}
	switch m := v.(type) {
	case nil:
		return out, nil
	case map[string]string:
		return copyMapping(m), nil
	case Mapping:
		return copyMapping(m), nil
	case map[string]any:
		for k, val := range m {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("mapping value for %q in scope %q must be a string, got %T", k, scope, val)
			}
			out[k] = s
		}
	case map[any]any:
		for k, val := range m {
			key, err := mappingKey(k)
			if err != nil {
				return nil, err
			}
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("mapping value for %q in scope %q must be a string, got %T", key, scope, val)
			}
			out[key] = s
		}
	}
	return out, nil
}

func isMapValue(v any) bool {
	switch v.(type) {
	case map[string]any, map[any]any, map[string]string, Mapping:
		return true
	}
	// YAML "~:" with no children decodes to a nil value under the default key.
	return v == nil
}

func mappingKey(k any) (string, error) {
	switch key := k.(type) {
	case nil:
		return "", nil
	case string:
		return key, nil
	case int, int64, float64, bool:
		return fmt.Sprint(key), nil
	}
	return "", fmt.Errorf("unsupported mapping key type %T", k)
}

func copyMapping(m map[string]string) Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyMapping returns the canonical name for name, or name unchanged when
// the mapping has no entry for it.
func ApplyMapping(name string, m Mapping) string {
	if mapped, ok := m[name]; ok {
		return mapped
	}
	return name
}

// Mapper combines a format's bundled defaults with a user-supplied mapping.
type Mapper struct {
	Defaults ScopedMapping
	User     ScopedMapping
}

// Mapping returns the effective mapping for context: defaults resolved for
// context, overlaid with the user mapping resolved the same way.
func (m Mapper) Mapping(context string) Mapping {
	out := m.Defaults.Resolve(context)
	for k, v := range m.User.Resolve(context) {
		out[k] = v
	}
	return out
}

// =============================================================================
// DEFAULT MAPPING FILES
// =============================================================================

// MappingLoader reads bundled YAML mapping files from a file system and caches
// them per path. Load never fails: unreadable or malformed files yield an
// empty mapping and a logged error.
type MappingLoader struct {
	fsys  fs.FS
	cache map[string]ScopedMapping
	mu    sync.Mutex
}

// NewMappingLoader creates a loader over fsys. A nil fsys yields empty
// mappings for every path.
func NewMappingLoader(fsys fs.FS) *MappingLoader {
	return &MappingLoader{fsys: fsys, cache: make(map[string]ScopedMapping)}
}

// Load returns the mapping stored at path.
func (l *MappingLoader) Load(path string) ScopedMapping {
	if path == "" {
		return ScopedMapping{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.cache[path]; ok {
		return m
	}

	m, err := l.load(path)
	if err != nil {
		logging.Named("io.mapping").Error("failed to load default mapping",
			zap.String("path", path), zap.Error(err))
		m = ScopedMapping{}
	}
	l.cache[path] = m
	return m
}

func (l *MappingLoader) load(path string) (ScopedMapping, error) {
	if l.fsys == nil {
		return ScopedMapping{}, fmt.Errorf("no mapping file system configured")
	}
	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return ScopedMapping{}, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var raw map[any]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return ScopedMapping{}, fmt.Errorf("failed to parse mapping file: %w", err)
	}
	return ParseMappingConfig(raw)
}
