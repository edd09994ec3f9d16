package iocore

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationResult is one recorded check.
type ValidationResult struct {
	Item     string
	Valid    bool
	Message  string
	Category string
}

// ValidationSummary aggregates a collector's results.
type ValidationSummary struct {
	Total      int
	Valid      int
	Invalid    int
	ErrorRate  float64
	Categories map[string]int
}

// ValidationResultCollector accumulates per-item results during a single
// read or write so that failures can be reported once, in aggregate.
type ValidationResultCollector struct {
	results []ValidationResult
}

// NewValidationResultCollector returns an empty collector.
func NewValidationResultCollector() *ValidationResultCollector {
	return &ValidationResultCollector{}
}

// Add records a result.
func (c *ValidationResultCollector) Add(item string, valid bool, message, category string) {
	c.results = append(c.results, ValidationResult{
		Item:     item,
		Valid:    valid,
		Message:  message,
		Category: category,
	})
}

// AddError records an invalid result.
func (c *ValidationResultCollector) AddError(item, message, category string) {
	c.Add(item, false, message, category)
}

// Results returns a copy of the recorded results in insertion order.
func (c *ValidationResultCollector) Results() []ValidationResult {
	return append([]ValidationResult(nil), c.results...)
}

// Len returns the number of recorded results.
func (c *ValidationResultCollector) Len() int { return len(c.results) }

// HasErrors reports whether any result is invalid.
func (c *ValidationResultCollector) HasErrors() bool {
	for _, r := range c.results {
		if !r.Valid {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any message mentions a warning.
func (c *ValidationResultCollector) HasWarnings() bool {
	for _, r := range c.results {
		if isWarning(r.Message) {
			return true
		}
	}
	return false
}

// Errors returns "item: message" for every invalid result.
func (c *ValidationResultCollector) Errors() []string {
	var out []string
	for _, r := range c.results {
		if !r.Valid {
			out = append(out, formatResult(r))
		}
	}
	return out
}

// Warnings returns "item: message" for every result mentioning a warning.
func (c *ValidationResultCollector) Warnings() []string {
	var out []string
	for _, r := range c.results {
		if isWarning(r.Message) {
			out = append(out, formatResult(r))
		}
	}
	return out
}

// Summary returns aggregate counts.
func (c *ValidationResultCollector) Summary() ValidationSummary {
	s := ValidationSummary{Total: len(c.results), Categories: make(map[string]int)}
	for _, r := range c.results {
		if r.Valid {
			s.Valid++
		} else {
			s.Invalid++
		}
		category := r.Category
		if category == "" {
			category = "general"
		}
		s.Categories[category]++
	}
	if s.Total > 0 {
		s.ErrorRate = float64(s.Invalid) / float64(s.Total)
	}
	return s
}

// DetailedReport renders the summary, the first 10 errors and the first 5
// warnings.
func (c *ValidationResultCollector) DetailedReport() string {
	s := c.Summary()

	var b strings.Builder
	b.WriteString("Validation Summary:\n")
	fmt.Fprintf(&b, "  Total items: %d\n", s.Total)
	fmt.Fprintf(&b, "  Valid: %d\n", s.Valid)
	fmt.Fprintf(&b, "  Invalid: %d\n", s.Invalid)
	fmt.Fprintf(&b, "  Error rate: %.1f%%\n", s.ErrorRate*100)

	if len(s.Categories) > 0 {
		b.WriteString("\nCategories:\n")
		names := make([]string, 0, len(s.Categories))
		for name := range s.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s: %d\n", name, s.Categories[name])
		}
	}

	writeList(&b, "Errors", c.Errors(), 10)
	writeList(&b, "Warnings", c.Warnings(), 5)
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for i, item := range items {
		if i == limit {
			fmt.Fprintf(b, "  ... and %d more\n", len(items)-limit)
			break
		}
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

func formatResult(r ValidationResult) string {
	if r.Item == "" {
		return r.Message
	}
	return r.Item + ": " + r.Message
}

func isWarning(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "warning")
}
