package iocore

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// SchemaError lists every problem found while decoding a configuration map.
type SchemaError struct {
	Schema   string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%d validation error(s) for %s: %s", len(e.Problems), e.Schema, strings.Join(e.Problems, "; "))
}

// FieldDecoder decodes a loosely typed configuration map into a config
// struct and validates it, collecting every problem instead of stopping at
// the first one.
//
// Config structs name their keys with `mapstructure` tags and their rules
// with `validate` tags (required, notblank, min, oneof). Defaults are the
// values already set on the struct before Decode.
type FieldDecoder struct {
	schema   string
	raw      map[string]any
	problems []string
}

// NewFieldDecoder wraps raw for decoding under the given schema name. Keys
// holding nil are treated as absent.
func NewFieldDecoder(schema string, raw map[string]any) *FieldDecoder {
	clean := make(map[string]any, len(raw))
	for k, v := range raw {
		if v != nil {
			clean[k] = v
		}
	}
	return &FieldDecoder{schema: schema, raw: clean}
}

// Decode fills target, a pointer to a config struct, and applies its
// validation rules. Unknown keys are problems unless allowExtra is set, in
// which case they land in the struct's `,remain` field.
func (d *FieldDecoder) Decode(target any, allowExtra bool) {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		ErrorUnused:      !allowExtra,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(decodeScopedMapping),
	})
	if err != nil {
		d.Errorf("%v", err)
		return
	}
	if err := dec.Decode(d.raw); err != nil {
		d.problems = append(d.problems, flattenDecodeError(err)...)
	}

	err = validate().Struct(target)
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			d.problems = append(d.problems, describeFieldError(fe))
		}
	case err != nil:
		d.Errorf("%v", err)
	}
}

// Errorf records a problem, typically from a cross-field rule.
func (d *FieldDecoder) Errorf(format string, args ...any) {
	d.problems = append(d.problems, fmt.Sprintf(format, args...))
}

// Present reports whether key was supplied with a non-nil value.
func (d *FieldDecoder) Present(key string) bool {
	_, ok := d.raw[key]
	return ok
}

// Err returns a *SchemaError when any problem was recorded.
func (d *FieldDecoder) Err() error {
	if len(d.problems) == 0 {
		return nil
	}
	return &SchemaError{Schema: d.schema, Problems: d.problems}
}

var scopedMappingType = reflect.TypeOf(ScopedMapping{})

func decodeScopedMapping(from, to reflect.Type, data any) (any, error) {
	if to != scopedMappingType {
		return data, nil
	}
	m, err := ParseMappingConfig(data)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// flattenDecodeError splits a mapstructure error into one problem per
// failing key.
func flattenDecodeError(err error) []string {
	var inner []error
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		inner = e.Unwrap()
	case interface{ WrappedErrors() []error }:
		inner = e.WrappedErrors()
	default:
		return []string{strings.TrimPrefix(err.Error(), "'' ")}
	}
	var out []string
	for _, e := range inner {
		out = append(out, flattenDecodeError(e)...)
	}
	return out
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + ": field required"
	case "notblank":
		return fe.Field() + ": must not be empty"
	case "min":
		return fmt.Sprintf("%s: must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: input should be %s, got %q", fe.Field(), quoteList(strings.Fields(fe.Param())), fmt.Sprint(fe.Value()))
	}
	return fmt.Sprintf("%s: failed %s validation", fe.Field(), fe.Tag())
}

var (
	validateOnce sync.Once
	validateInst *validator.Validate
)

// validate returns the shared validator. Field names in its errors are the
// mapstructure keys.
func validate() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validateInst = v
	})
	return validateInst
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, " or ")
}
