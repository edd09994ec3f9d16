package iocore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// DecodeLenientJSON decodes data into v, trying progressively more lenient
// parsers:
// 1. Standard JSON
// 2. JSON repair (trailing commas, single quotes, unquoted keys)
// 3. Hjson (comments, unquoted strings)
func DecodeLenientJSON(data []byte, v any) error {
	stdErr := json.Unmarshal(data, v)
	if stdErr == nil {
		return nil
	}

	if repaired, err := jsonrepair.RepairJSON(string(data)); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return nil
		}
	}

	var generic any
	if err := hjson.Unmarshal(data, &generic); err == nil {
		normalized, err := json.Marshal(generic)
		if err == nil && json.Unmarshal(normalized, v) == nil {
			return nil
		}
	}

	return fmt.Errorf("invalid JSON document: %w", stdErr)
}

// LoadStructuredSource resolves a document-like source into its decoded
// value. Maps and slices are returned unchanged; []byte and strings that look
// like a JSON document are decoded; any other string is treated as a file
// path.
func LoadStructuredSource(source any) (any, error) {
	switch s := source.(type) {
	case []byte:
		return decodeDocument(s)
	case string:
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			return decodeDocument([]byte(trimmed))
		}
		data, err := os.ReadFile(s)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", s, err)
		}
		return decodeDocument(data)
	}
	return source, nil
}

func decodeDocument(data []byte) (any, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	var out any
	if err := DecodeLenientJSON(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
