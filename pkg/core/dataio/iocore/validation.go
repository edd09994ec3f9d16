package iocore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"finstatements/pkg/core/config"

	"golang.org/x/text/unicode/norm"
)

// Validation categories recorded on collectors.
const (
	CategoryNumeric   = "numeric"
	CategoryStructure = "structure"
	CategoryNodeName  = "node_name"
	CategoryPeriod    = "period"
)

// ValidateRequiredColumns fails with a ReadError listing every required
// column missing from columns.
func ValidateRequiredColumns(columns, required []string, sourceID string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var missing []string
	for _, r := range required {
		if r != "" && !present[r] {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return NewReadError(
		fmt.Sprintf("Missing required columns in %s: %s", sourceID, strings.Join(missing, ", ")),
		sourceID, "", nil)
}

// ValidateColumnBounds fails when the zero-based index does not address one
// of ncols columns.
func ValidateColumnBounds(ncols, index int, sourceID, context string) error {
	if index >= 0 && index < ncols {
		return nil
	}
	return NewReadError(
		fmt.Sprintf("Column index %d for %s is out of bounds (%d columns available)", index, context, ncols),
		sourceID, "", nil)
}

// ValidatePeriodsExist fails when fewer than minPeriods distinct periods
// were found.
func ValidatePeriodsExist(periods []string, sourceID string, minPeriods int) error {
	if minPeriods < 1 {
		minPeriods = 1
	}
	distinct := make(map[string]struct{}, len(periods))
	for _, p := range periods {
		if strings.TrimSpace(p) != "" {
			distinct[p] = struct{}{}
		}
	}
	if len(distinct) >= minPeriods {
		return nil
	}
	return NewReadError(
		fmt.Sprintf("Insufficient periods found in %s: expected at least %d, found %d", sourceID, minPeriods, len(distinct)),
		sourceID, "", nil)
}

// ValidateNumericValue classifies a raw cell value. Missing values (nil, NaN,
// blank strings) are valid and absent: the returned pointer is nil and the
// caller stores nothing. Invalid values are recorded on c when non-nil.
func ValidateNumericValue(value any, item, period string, c *ValidationResultCollector, allowConversion bool) (bool, *float64) {
	if isMissing(value) {
		return true, nil
	}

	if f, ok := asFloat(value); ok {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			recordNumeric(c, item, fmt.Sprintf("Non-finite numeric value for period %s: %v", period, value))
			return false, nil
		}
		return true, &f
	}

	if !allowConversion {
		recordNumeric(c, item, fmt.Sprintf("Non-numeric value '%v' for period %s", value, period))
		return false, nil
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(value)), 64)
	if err != nil {
		recordNumeric(c, item, fmt.Sprintf("Non-numeric value '%v' for period %s", value, period))
		return false, nil
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		recordNumeric(c, item, fmt.Sprintf("Non-finite numeric value for period %s: %v", period, value))
		return false, nil
	}
	return true, &f
}

func recordNumeric(c *ValidationResultCollector, item, msg string) {
	if c != nil {
		c.AddError(item, msg, CategoryNumeric)
	}
}

func isMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	case string:
		return strings.TrimSpace(t) == ""
	case *float64:
		return t == nil || math.IsNaN(*t)
	}
	return false
}

// asFloat converts Go numeric kinds. bool is not numeric.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case *float64:
		return *n, true
	}
	return 0, false
}

// ValidateNodeName trims and NFC-normalizes raw. Blank names are valid only
// when allowEmpty is set, in which case the returned name is empty.
func ValidateNodeName(raw any, allowEmpty bool) (string, bool) {
	var s string
	switch v := raw.(type) {
	case nil:
	case string:
		s = v
	default:
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			break
		}
		s = fmt.Sprint(v)
	}

	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return "", allowEmpty
	}
	return s, true
}

// CreateValidationSummary renders the collector's outcome as one message,
// listing at most the configured number of errors.
func CreateValidationSummary(c *ValidationResultCollector, sourceID, operation string) string {
	if c == nil || !c.HasErrors() {
		return fmt.Sprintf("Successfully completed %s %s", operation, sourceID)
	}

	limit := config.Get().IO.MaxReportedErrors
	if limit < 1 {
		limit = 5
	}

	errs := c.Errors()
	shown := errs
	if len(shown) > limit {
		shown = shown[:limit]
	}
	msg := fmt.Sprintf("Validation errors occurred during %s %s: %s", operation, sourceID, strings.Join(shown, "; "))
	if len(errs) > limit {
		msg += fmt.Sprintf(" (and %d more errors)", len(errs)-limit)
	}
	return msg
}

// CleanNumericText strips presentation formatting from a table cell:
// currency symbols, thousands separators, footnote markers and accounting
// parentheses for negatives. Dash placeholders become blank.
func CleanNumericText(s string) string {
	s = strings.TrimSpace(s)
	switch s {
	case "-", "—", "–", "$—", "$-", "N/A", "n/a":
		return ""
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	s = strings.NewReplacer("$", "", ",", "", " ", "", " ", "", "*", "").Replace(s)
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return ""
	}
	if negative && !strings.HasPrefix(s, "-") {
		s = "-" + s
	}
	return s
}

// WithFormat sets the format type on a ReadError or WriteError that does not
// carry one yet and returns err.
func WithFormat(err error, formatType string) error {
	if err == nil {
		return nil
	}
	var re *ReadError
	if errors.As(err, &re) && re.FormatType == "" {
		re.FormatType = formatType
		return err
	}
	var we *WriteError
	if errors.As(err, &we) && we.FormatType == "" {
		we.FormatType = formatType
	}
	return err
}
