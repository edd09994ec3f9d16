package iocore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormatNotSupported matches any *FormatNotSupportedError via errors.Is.
var ErrFormatNotSupported = errors.New("format not supported")

// ErrHandlerConflict is returned when a format type is already bound to a
// different handler.
var ErrHandlerConflict = errors.New("handler conflict")

// IOError is the common shape of read and write failures: a message plus the
// source or target, the format type and the wrapped original error.
type IOError struct {
	Message    string
	Target     string
	FormatType string
	Err        error

	label string
}

func (e *IOError) Error() string {
	var ctx []string
	if e.Target != "" {
		label := e.label
		if label == "" {
			label = "source"
		}
		ctx = append(ctx, fmt.Sprintf("%s: %s", label, e.Target))
	}
	if e.FormatType != "" {
		ctx = append(ctx, fmt.Sprintf("format: %s", e.FormatType))
	}

	msg := e.Message
	if len(ctx) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(ctx, ", "))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *IOError) Unwrap() error { return e.Err }

// ReadError reports a failure sourcing, parsing or validating input.
type ReadError struct {
	IOError
}

// NewReadError builds a ReadError. source may be any value; it is described
// for the message.
func NewReadError(message string, source any, readerType string, err error) *ReadError {
	return &ReadError{IOError{
		Message:    message,
		Target:     Describe(source),
		FormatType: readerType,
		Err:        err,
		label:      "source",
	}}
}

// Source returns the described source.
func (e *ReadError) Source() string { return e.Target }

// WriteError reports a failure validating or serializing output.
type WriteError struct {
	IOError
}

// NewWriteError builds a WriteError.
func NewWriteError(message string, target any, writerType string, err error) *WriteError {
	return &WriteError{IOError{
		Message:    message,
		Target:     Describe(target),
		FormatType: writerType,
		Err:        err,
		label:      "target",
	}}
}

// FormatNotSupportedError is returned when no handler is registered for a
// format type.
type FormatNotSupportedError struct {
	FormatType string
	Operation  string
}

func (e *FormatNotSupportedError) Error() string {
	return fmt.Sprintf("Format '%s' is not supported for %s", e.FormatType, e.Operation)
}

func (e *FormatNotSupportedError) Is(target error) bool {
	return target == ErrFormatNotSupported
}

// AsIOError extracts the IOError carried by a ReadError or WriteError.
func AsIOError(err error) (*IOError, bool) {
	var re *ReadError
	if errors.As(err, &re) {
		return &re.IOError, true
	}
	var we *WriteError
	if errors.As(err, &we) {
		return &we.IOError, true
	}
	var ie *IOError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// Describe renders a source or target for error messages. Strings are used
// as-is; other values are described by type.
func Describe(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return fmt.Sprintf("[]byte(len=%d)", len(t))
	}
	return fmt.Sprintf("%T", v)
}
