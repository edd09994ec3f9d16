package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AdjustmentType selects how an adjustment combines with the base value.
type AdjustmentType string

const (
	AdjustmentAdditive       AdjustmentType = "additive"
	AdjustmentMultiplicative AdjustmentType = "multiplicative"
	AdjustmentReplacement    AdjustmentType = "replacement"
)

// DefaultScenario is the scenario adjustments belong to unless stated otherwise.
const DefaultScenario = "default"

// Adjustment is a discretionary change to a node's value for one period or a
// period range.
type Adjustment struct {
	ID          uuid.UUID      `json:"id"`
	NodeName    string         `json:"node_name"`
	Period      string         `json:"period"`
	StartPeriod string         `json:"start_period,omitempty"`
	EndPeriod   string         `json:"end_period,omitempty"`
	Value       float64        `json:"value"`
	Type        AdjustmentType `json:"type"`
	// Scale in [0, 1] dampens the adjustment; 1 applies it fully.
	Scale     float64   `json:"scale"`
	Priority  int       `json:"priority"`
	Tags      []string  `json:"tags,omitempty"`
	Scenario  string    `json:"scenario"`
	Reason    string    `json:"reason"`
	User      string    `json:"user,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAdjustment returns an additive, fully scaled adjustment in the default
// scenario with a fresh ID.
func NewAdjustment(node, period string, value float64, reason string) Adjustment {
	return Adjustment{
		ID:        uuid.New(),
		NodeName:  node,
		Period:    period,
		Value:     value,
		Type:      AdjustmentAdditive,
		Scale:     1,
		Scenario:  DefaultScenario,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// UnmarshalJSON defaults Scale to 1 when the document omits it.
func (a *Adjustment) UnmarshalJSON(data []byte) error {
	type plain Adjustment
	p := plain{Scale: 1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Adjustment(p)
	return nil
}

// Validate checks required fields and value ranges.
func (a *Adjustment) Validate() error {
	var problems []string
	if strings.TrimSpace(a.NodeName) == "" {
		problems = append(problems, "node_name is required")
	}
	if strings.TrimSpace(a.Period) == "" {
		problems = append(problems, "period is required")
	}
	if strings.TrimSpace(a.Reason) == "" {
		problems = append(problems, "reason is required")
	}
	switch a.Type {
	case AdjustmentAdditive, AdjustmentMultiplicative, AdjustmentReplacement:
	default:
		problems = append(problems, fmt.Sprintf("unknown adjustment type %q", a.Type))
	}
	if a.Scale < 0 || a.Scale > 1 || math.IsNaN(a.Scale) {
		problems = append(problems, fmt.Sprintf("scale must be between 0 and 1, got %v", a.Scale))
	}
	if math.IsNaN(a.Value) || math.IsInf(a.Value, 0) {
		problems = append(problems, "value must be finite")
	}
	if a.StartPeriod != "" && a.EndPeriod != "" && a.StartPeriod > a.EndPeriod {
		problems = append(problems, fmt.Sprintf("start_period %s is after end_period %s", a.StartPeriod, a.EndPeriod))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid adjustment for %q: %s", a.NodeName, strings.Join(problems, "; "))
	}
	return nil
}

// AppliesTo reports whether the adjustment affects period. A start/end range,
// when present, takes precedence over the single period.
func (a *Adjustment) AppliesTo(period string) bool {
	if a.StartPeriod != "" || a.EndPeriod != "" {
		if a.StartPeriod != "" && period < a.StartPeriod {
			return false
		}
		if a.EndPeriod != "" && period > a.EndPeriod {
			return false
		}
		return true
	}
	return a.Period == period
}

// Apply combines the adjustment with base.
func (a *Adjustment) Apply(base float64) float64 {
	switch a.Type {
	case AdjustmentMultiplicative:
		return base * math.Pow(a.Value, a.Scale)
	case AdjustmentReplacement:
		return a.Value
	default:
		return base + a.Value*a.Scale
	}
}

// AddAdjustment validates and stores adj, filling in a missing ID, type,
// scenario and timestamp. Scale is stored as given; 0 disables the adjustment.
func (g *Graph) AddAdjustment(adj Adjustment) (uuid.UUID, error) {
	if adj.ID == uuid.Nil {
		adj.ID = uuid.New()
	}
	if adj.Type == "" {
		adj.Type = AdjustmentAdditive
	}
	if adj.Scenario == "" {
		adj.Scenario = DefaultScenario
	}
	if adj.Timestamp.IsZero() {
		adj.Timestamp = time.Now().UTC()
	}
	if err := adj.Validate(); err != nil {
		return uuid.Nil, err
	}
	if !g.HasNode(adj.NodeName) {
		return uuid.Nil, fmt.Errorf("%w: adjustment targets %q", ErrNodeNotFound, adj.NodeName)
	}
	for _, existing := range g.adjustments {
		if existing.ID == adj.ID {
			return uuid.Nil, fmt.Errorf("adjustment %s already exists", adj.ID)
		}
	}
	adj.Tags = append([]string(nil), adj.Tags...)
	g.adjustments = append(g.adjustments, &adj)
	return adj.ID, nil
}

// RemoveAdjustment deletes the adjustment with id.
func (g *Graph) RemoveAdjustment(id uuid.UUID) error {
	for i, a := range g.adjustments {
		if a.ID == id {
			g.adjustments = append(g.adjustments[:i], g.adjustments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAdjustmentNotFound, id)
}

// ClearAdjustments removes every adjustment.
func (g *Graph) ClearAdjustments() {
	g.adjustments = nil
}

// Adjustments returns copies of all adjustments in insertion order.
func (g *Graph) Adjustments() []Adjustment {
	out := make([]Adjustment, 0, len(g.adjustments))
	for _, a := range g.adjustments {
		c := *a
		c.Tags = append([]string(nil), a.Tags...)
		out = append(out, c)
	}
	return out
}

// AdjustmentsFor returns the adjustments affecting node/period in scenario,
// ordered by priority then timestamp.
func (g *Graph) AdjustmentsFor(node, period, scenario string) []Adjustment {
	if scenario == "" {
		scenario = DefaultScenario
	}
	var out []Adjustment
	for _, a := range g.adjustments {
		if a.NodeName == node && a.Scenario == scenario && a.AppliesTo(period) {
			out = append(out, *a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// AdjustedValue returns the node's value for period after applying the
// scenario's adjustments, and whether any adjustment applied.
func (g *Graph) AdjustedValue(node, period, scenario string) (float64, bool, error) {
	v, err := g.Calculate(node, period)
	if err != nil {
		return 0, false, err
	}
	adjs := g.AdjustmentsFor(node, period, scenario)
	for i := range adjs {
		v = adjs[i].Apply(v)
	}
	return v, len(adjs) > 0, nil
}
