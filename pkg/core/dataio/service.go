// Package dataio is the entry point of the reader/writer layer: ReadData
// builds a Graph from any registered source format and WriteData renders a
// Graph to any registered target format.
package dataio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/mappings"
	"finstatements/pkg/core/dataio/readers"
	"finstatements/pkg/core/dataio/writers"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"go.uber.org/zap"
)

// Service holds the reader and writer registries.
type Service struct {
	Readers *iocore.Registry[iocore.Reader]
	Writers *iocore.Registry[iocore.Writer]
}

// NewService builds a service with every built-in reader and writer
// registered and the bundled default mappings.
func NewService() (*Service, error) {
	loader := iocore.NewMappingLoader(mappings.FS)

	s := &Service{
		Readers: iocore.NewRegistry[iocore.Reader]("reader", loader),
		Writers: iocore.NewRegistry[iocore.Writer]("writer", loader),
	}
	if err := readers.Register(s.Readers); err != nil {
		return nil, fmt.Errorf("failed to register readers: %w", err)
	}
	if err := writers.Register(s.Writers); err != nil {
		return nil, fmt.Errorf("failed to register writers: %w", err)
	}
	return s, nil
}

// ReadData resolves the reader for formatType, validates cfg (merged with
// source) against its schema and reads source. opts are passed to Read
// unchanged. Every failure is a *iocore.ReadError or, for unknown formats, a
// *iocore.FormatNotSupportedError.
func (s *Service) ReadData(ctx context.Context, formatType string, source any, cfg map[string]any, opts iocore.Options) (*graph.Graph, error) {
	log := logging.Named("io")
	log.Debug("read", zap.String("format", formatType), zap.String("source", iocore.Describe(source)))

	reader, err := iocore.GetReader(s.Readers, formatType, source, cfg)
	if err != nil {
		return nil, err
	}

	g, err := callRead(ctx, reader, source, opts)
	if err != nil {
		err = normalizeReadError(err, formatType, source)
		log.Warn("read failed", zap.String("format", formatType), zap.Error(err))
		return nil, err
	}
	return g, nil
}

// WriteData resolves the writer for formatType, validates cfg (merged with
// target) against its schema and writes g. The result depends on the
// format: a DataFrame, a map, a Markdown string, a path or a store key.
func (s *Service) WriteData(ctx context.Context, formatType string, g *graph.Graph, target any, cfg map[string]any, opts iocore.Options) (any, error) {
	log := logging.Named("io")
	log.Debug("write", zap.String("format", formatType), zap.String("target", iocore.Describe(target)))

	writer, err := iocore.GetWriter(s.Writers, formatType, target, cfg)
	if err != nil {
		return nil, err
	}

	out, err := callWrite(ctx, writer, g, target, opts)
	if err != nil {
		err = normalizeWriteError(err, formatType, target)
		log.Warn("write failed", zap.String("format", formatType), zap.Error(err))
		return nil, err
	}
	return out, nil
}

// callRead converts a panicking reader into an error.
func callRead(ctx context.Context, r iocore.Reader, source any, opts iocore.Options) (g *graph.Graph, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			g, err = nil, fmt.Errorf("reader panicked: %v", rec)
		}
	}()
	return r.Read(ctx, source, opts)
}

func callWrite(ctx context.Context, w iocore.Writer, g *graph.Graph, target any, opts iocore.Options) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("writer panicked: %v", rec)
		}
	}()
	return w.Write(ctx, g, target, opts)
}

func normalizeReadError(err error, formatType string, source any) error {
	var re *iocore.ReadError
	var fe *iocore.FormatNotSupportedError
	if errors.As(err, &re) || errors.As(err, &fe) {
		return iocore.WithFormat(err, formatType)
	}
	return iocore.NewReadError(fmt.Sprintf("Failed to read data using %s reader", formatType), source, formatType, err)
}

func normalizeWriteError(err error, formatType string, target any) error {
	var we *iocore.WriteError
	var fe *iocore.FormatNotSupportedError
	if errors.As(err, &we) || errors.As(err, &fe) {
		return iocore.WithFormat(err, formatType)
	}
	return iocore.NewWriteError(fmt.Sprintf("Failed to write data using %s writer", formatType), target, formatType, err)
}

// =============================================================================
// DEFAULT SERVICE
// =============================================================================

var (
	defaultOnce    sync.Once
	defaultService *Service
	defaultErr     error
)

// Default returns the process-wide service, built on first use.
func Default() (*Service, error) {
	defaultOnce.Do(func() {
		defaultService, defaultErr = NewService()
		if defaultErr != nil {
			logging.Named("io").Error("failed to build default service", zap.Error(defaultErr))
		}
	})
	return defaultService, defaultErr
}

// ReadData reads source with the default service.
func ReadData(ctx context.Context, formatType string, source any, cfg map[string]any, opts iocore.Options) (*graph.Graph, error) {
	s, err := Default()
	if err != nil {
		return nil, iocore.NewReadError("Reader registry unavailable", source, formatType, err)
	}
	return s.ReadData(ctx, formatType, source, cfg, opts)
}

// WriteData writes g with the default service.
func WriteData(ctx context.Context, formatType string, g *graph.Graph, target any, cfg map[string]any, opts iocore.Options) (any, error) {
	s, err := Default()
	if err != nil {
		return nil, iocore.NewWriteError("Writer registry unavailable", target, formatType, err)
	}
	return s.WriteData(ctx, formatType, g, target, cfg, opts)
}
