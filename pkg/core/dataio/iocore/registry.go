package iocore

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"finstatements/pkg/core/logging"

	"go.uber.org/zap"
)

// Schema validates a merged configuration map and returns the typed,
// immutable configuration value handed to a Factory.
type Schema func(raw map[string]any) (any, error)

// HandlerContext carries registry-owned state into a Factory.
type HandlerContext struct {
	FormatType string
	// Defaults is the bundled default mapping for the format, loaded once
	// at registration.
	Defaults ScopedMapping
}

// Factory constructs a handler. cfg is the value returned by the format's
// Schema, or the raw configuration map when no schema is registered.
type Factory[H any] func(cfg any, hc HandlerContext) (H, error)

// Registration describes one format handler.
type Registration[H any] struct {
	FormatType  string
	Factory     Factory[H]
	Schema      Schema
	MappingPath string
}

// Registry maps format types to handler factories for one direction
// (readers or writers). Registration is expected at start-up; lookups are
// safe for concurrent use.
type Registry[H any] struct {
	kind      string
	loader    *MappingLoader
	factories map[string]Factory[H]
	schemas   map[string]Schema
	mappings  map[string]ScopedMapping
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry. kind is "reader" or "writer" and is
// used in error messages. loader may be nil when no defaults are bundled.
func NewRegistry[H any](kind string, loader *MappingLoader) *Registry[H] {
	return &Registry[H]{
		kind:      kind,
		loader:    loader,
		factories: make(map[string]Factory[H]),
		schemas:   make(map[string]Schema),
		mappings:  make(map[string]ScopedMapping),
	}
}

// Kind returns "reader" or "writer".
func (r *Registry[H]) Kind() string { return r.kind }

// Register adds a handler. Registering the same factory twice is a no-op;
// a different factory for a used format type fails with ErrHandlerConflict.
func (r *Registry[H]) Register(reg Registration[H]) error {
	if reg.FormatType == "" {
		return fmt.Errorf("%s format type cannot be empty", r.kind)
	}
	if reg.Factory == nil {
		return fmt.Errorf("%s factory for %q cannot be nil", r.kind, reg.FormatType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.factories[reg.FormatType]; ok {
		if sameFunc(existing, reg.Factory) {
			return nil
		}
		return fmt.Errorf("%w: %s format type %q is already registered to a different handler",
			ErrHandlerConflict, r.kind, reg.FormatType)
	}

	r.factories[reg.FormatType] = reg.Factory
	if reg.Schema != nil {
		r.schemas[reg.FormatType] = reg.Schema
	}
	if reg.MappingPath != "" && r.loader != nil {
		r.mappings[reg.FormatType] = r.loader.Load(reg.MappingPath)
	}

	logging.Named("io.registry").Debug("registered handler",
		zap.String("kind", r.kind), zap.String("format", reg.FormatType))
	return nil
}

// MustRegister is Register for start-up code; it panics on conflict.
func (r *Registry[H]) MustRegister(reg Registration[H]) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Get returns the factory for formatType.
func (r *Registry[H]) Get(formatType string) (Factory[H], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.factories[formatType]; ok {
		return f, nil
	}
	return nil, &FormatNotSupportedError{FormatType: formatType, Operation: r.operation()}
}

// Schema returns the configuration schema for formatType, if any.
func (r *Registry[H]) Schema(formatType string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[formatType]
	return s, ok
}

// DefaultMapping returns the bundled default mapping for formatType.
func (r *Registry[H]) DefaultMapping(formatType string) ScopedMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mappings[formatType]
}

// ListFormats returns a snapshot of format type -> factory. Changes to the
// returned map do not affect the registry.
func (r *Registry[H]) ListFormats() map[string]Factory[H] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Factory[H], len(r.factories))
	for k, v := range r.factories {
		out[k] = v
	}
	return out
}

// Formats returns the registered format types, sorted.
func (r *Registry[H]) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsRegistered reports whether formatType has a handler.
func (r *Registry[H]) IsRegistered(formatType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[formatType]
	return ok
}

// Contains is an alias of IsRegistered.
func (r *Registry[H]) Contains(formatType string) bool {
	return r.IsRegistered(formatType)
}

// Unregister removes formatType. Unknown format types fail with
// FormatNotSupportedError.
func (r *Registry[H]) Unregister(formatType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[formatType]; !ok {
		return &FormatNotSupportedError{FormatType: formatType, Operation: r.operation()}
	}
	delete(r.factories, formatType)
	delete(r.schemas, formatType)
	delete(r.mappings, formatType)
	return nil
}

// Clear removes all handlers (useful for testing).
func (r *Registry[H]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]Factory[H])
	r.schemas = make(map[string]Schema)
	r.mappings = make(map[string]ScopedMapping)
}

// Len returns the number of registered handlers.
func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

func (r *Registry[H]) operation() string {
	if r.kind == "writer" {
		return "write operations"
	}
	return "read operations"
}

func sameFunc(a, b any) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// =============================================================================
// INSTANTIATION
// =============================================================================

// GetReader resolves, validates and constructs the reader for formatType.
// cfg holds constructor options; source is merged in under "source".
func GetReader(r *Registry[Reader], formatType string, source any, cfg map[string]any) (Reader, error) {
	return instantiate(r, formatType, "source", source, cfg, func(msg string, err error) error {
		return NewReadError(msg, source, formatType, err)
	})
}

// GetWriter resolves, validates and constructs the writer for formatType.
// cfg holds constructor options; target is merged in under "target".
func GetWriter(r *Registry[Writer], formatType string, target any, cfg map[string]any) (Writer, error) {
	return instantiate(r, formatType, "target", target, cfg, func(msg string, err error) error {
		return NewWriteError(msg, target, formatType, err)
	})
}

func instantiate[H any](r *Registry[H], formatType, slot string, value any, cfg map[string]any, wrap func(string, error) error) (H, error) {
	var zero H

	factory, err := r.Get(formatType)
	if err != nil {
		return zero, err
	}

	merged := make(map[string]any, len(cfg)+2)
	for k, v := range cfg {
		merged[k] = v
	}
	merged[slot] = value
	merged["format_type"] = formatType

	var built any = merged
	if schema, ok := r.Schema(formatType); ok {
		built, err = schema(merged)
		if err != nil {
			return zero, wrap(fmt.Sprintf("Invalid %s configuration", r.kind), err)
		}
	}

	hc := HandlerContext{FormatType: formatType, Defaults: r.DefaultMapping(formatType)}
	h, err := callFactory(factory, built, hc)
	if err != nil {
		return zero, wrap(fmt.Sprintf("Failed to initialize %s", r.kind), err)
	}
	return h, nil
}

// callFactory turns a panicking factory into an initialization error.
func callFactory[H any](f Factory[H], cfg any, hc HandlerContext) (h H, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler constructor panicked: %v", rec)
		}
	}()
	return f(cfg, hc)
}
