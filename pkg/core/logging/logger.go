// Package logging provides the shared zap logger for the library.
package logging

import (
	"sync"

	"finstatements/pkg/core/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base *zap.Logger
	mu   sync.RWMutex
	once sync.Once
)

// L returns the process-wide logger, building it from settings on first use.
func L() *zap.Logger {
	once.Do(func() {
		l := build(config.Get().Logging)
		mu.Lock()
		if base == nil {
			base = l
		}
		mu.Unlock()
	})

	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Named returns a child logger for a component, e.g. "io.registry".
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// SetLogger replaces the process-wide logger. Passing nil installs a no-op logger.
func SetLogger(l *zap.Logger) {
	once.Do(func() {})
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
}

func build(s config.LoggingSettings) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if s.Development {
		cfg = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(s.Level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
