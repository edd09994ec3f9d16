package iocore

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exampleConfig struct {
	Name    string        `mapstructure:"name" validate:"required,notblank"`
	Source  string        `mapstructure:"source" validate:"required"`
	Count   int           `mapstructure:"count" validate:"min=1"`
	Number  int           `mapstructure:"number"`
	Flag    bool          `mapstructure:"flag"`
	List    []string      `mapstructure:"list"`
	Mode    string        `mapstructure:"mode" validate:"oneof=long wide"`
	Note    string        `mapstructure:"note"`
	Mapping ScopedMapping `mapstructure:"mapping"`
}

func TestFieldDecoder_WeakTypingAndDefaults(t *testing.T) {
	cfg := exampleConfig{Count: 5, Mode: "long", Note: "fallback"}
	d := NewFieldDecoder("Example", map[string]any{
		"name":    "acme",
		"source":  "data.csv",
		"count":   float64(3),
		"number":  json.Number("7"),
		"flag":    "true",
		"list":    []any{"a", "b"},
		"mode":    "wide",
		"note":    nil,
		"mapping": map[string]any{"Sales": "revenue"},
	})
	d.Decode(&cfg, false)
	require.NoError(t, d.Err())

	assert.Equal(t, "acme", cfg.Name)
	assert.Equal(t, 3, cfg.Count)
	assert.Equal(t, 7, cfg.Number)
	assert.True(t, cfg.Flag)
	assert.Equal(t, []string{"a", "b"}, cfg.List)
	assert.Equal(t, "wide", cfg.Mode)
	assert.Equal(t, "fallback", cfg.Note, "nil values keep the default")
	assert.Equal(t, "revenue", cfg.Mapping.Resolve("")["Sales"])
	assert.False(t, d.Present("note"))
	assert.True(t, d.Present("name"))
}

func TestFieldDecoder_CollectsEveryProblem(t *testing.T) {
	cfg := exampleConfig{Count: 5, Mode: "long"}
	d := NewFieldDecoder("Example", map[string]any{
		"name":  "  ",
		"count": 0,
		"mode":  "diagonal",
		"typo":  true,
	})
	d.Decode(&cfg, false)
	d.Errorf("custom: cross-field rule")

	err := d.Err()
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Example", se.Schema)
	assert.Len(t, se.Problems, 6)
	assert.Contains(t, se.Problems, "name: must not be empty")
	assert.Contains(t, se.Problems, "source: field required")
	assert.Contains(t, se.Problems, "count: must be >= 1, got 0")
	assert.Contains(t, se.Problems, `mode: input should be 'long' or 'wide', got "diagonal"`)
	assert.Contains(t, se.Problems, "custom: cross-field rule")
	assert.Contains(t, err.Error(), "invalid keys: typo")
	assert.Contains(t, err.Error(), "6 validation error(s) for Example")
}

func TestFieldDecoder_TypeErrors(t *testing.T) {
	cfg := exampleConfig{Name: "x", Source: "y", Count: 1, Mode: "long"}
	d := NewFieldDecoder("Example", map[string]any{
		"count":   "many",
		"mapping": 42,
	})
	d.Decode(&cfg, false)

	err := d.Err()
	require.Error(t, err)
	assert.ErrorContains(t, err, "count")
	assert.ErrorContains(t, err, "mapping must be a map")
}

func TestFieldDecoder_AllowExtra(t *testing.T) {
	var cfg struct {
		Known string         `mapstructure:"known"`
		Extra map[string]any `mapstructure:",remain"`
	}
	d := NewFieldDecoder("Example", map[string]any{"known": "x", "runtime_flag": 1})
	d.Decode(&cfg, true)
	require.NoError(t, d.Err())
	assert.Equal(t, "x", cfg.Known)
	assert.Equal(t, map[string]any{"runtime_flag": 1}, cfg.Extra)
}

func TestOptions(t *testing.T) {
	o := Options{"s": "x", "b": true, "i": float64(4), "l": []any{"a", 1, "b"}}
	assert.True(t, o.Has("s"))
	assert.Equal(t, "x", o.String("s", "d"))
	assert.Equal(t, "d", o.String("b", "d"))
	assert.True(t, o.Bool("b", false))
	assert.Equal(t, 4, o.Int("i", 0))
	assert.Equal(t, []string{"a", "b"}, o.StringSlice("l", nil))
	assert.Nil(t, o.Any("missing"))

	var empty Options
	assert.Equal(t, 3, empty.Int("i", 3))
}
