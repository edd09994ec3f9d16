package iocore

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationResultCollector(t *testing.T) {
	c := NewValidationResultCollector()
	assert.False(t, c.HasErrors())
	assert.Equal(t, ValidationSummary{Categories: map[string]int{}}, c.Summary())

	c.Add("Revenue", true, "", CategoryNumeric)
	c.Add("COGS", false, "Non-numeric value 'x' for period 2023", CategoryNumeric)
	c.Add("Cash", true, "Warning: negative cash balance", "")

	assert.True(t, c.HasErrors())
	assert.True(t, c.HasWarnings())
	assert.Equal(t, []string{"COGS: Non-numeric value 'x' for period 2023"}, c.Errors())
	assert.Equal(t, []string{"Cash: Warning: negative cash balance"}, c.Warnings())

	s := c.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Valid)
	assert.Equal(t, 1, s.Invalid)
	assert.InDelta(t, 1.0/3.0, s.ErrorRate, 1e-9)
	assert.Equal(t, map[string]int{CategoryNumeric: 2, "general": 1}, s.Categories)

	results := c.Results()
	results[0].Item = "mutated"
	assert.Equal(t, "Revenue", c.Results()[0].Item)
}

func TestValidationResultCollector_DetailedReport(t *testing.T) {
	c := NewValidationResultCollector()
	for i := 0; i < 12; i++ {
		c.AddError(fmt.Sprintf("row%02d", i), "bad value", CategoryStructure)
	}
	c.Add("note", true, "warning: rounding", CategoryStructure)

	report := c.DetailedReport()
	assert.True(t, strings.HasPrefix(report, "Validation Summary:\n  Total items: 13"))
	assert.Contains(t, report, "Error rate: 92.3%")
	assert.Contains(t, report, "row09: bad value")
	assert.NotContains(t, report, "row10")
	assert.Contains(t, report, "... and 2 more")
	assert.Contains(t, report, "Warnings:\n  - note: warning: rounding")
}
