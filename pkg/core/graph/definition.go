package graph

import (
	"fmt"
	"sort"
)

// DefinitionVersion is written into every Definition.
const DefinitionVersion = 1

// Definition is the JSON-compatible description of a whole graph.
type Definition struct {
	Version     int                       `json:"version"`
	Periods     []string                  `json:"periods"`
	Order       []string                  `json:"order,omitempty"`
	Nodes       map[string]NodeDefinition `json:"nodes"`
	Adjustments []Adjustment              `json:"adjustments,omitempty"`
}

// NodeDefinition holds everything needed to rebuild one node.
type NodeDefinition struct {
	Name string   `json:"name"`
	Type NodeKind `json:"type"`

	// financial_statement_item
	Values map[string]float64 `json:"values,omitempty"`

	// calculation
	Inputs          []string        `json:"inputs,omitempty"`
	CalculationType CalculationType `json:"calculation_type,omitempty"`
	Weights         []float64       `json:"weights,omitempty"`

	// forecast
	BaseNode        string         `json:"base_node,omitempty"`
	BasePeriod      string         `json:"base_period,omitempty"`
	ForecastPeriods []string       `json:"forecast_periods,omitempty"`
	ForecastMethod  ForecastMethod `json:"forecast_method,omitempty"`
	GrowthRate      float64        `json:"growth_rate,omitempty"`
	GrowthCurve     []float64      `json:"growth_curve,omitempty"`
}

// Dependencies returns the node names this definition must be built after.
func (d NodeDefinition) Dependencies() []string {
	switch d.Type {
	case KindCalculation:
		return d.Inputs
	case KindForecast:
		if d.BaseNode != "" {
			return []string{d.BaseNode}
		}
	}
	return nil
}

// ToDefinition captures periods, nodes and adjustments.
func (g *Graph) ToDefinition() *Definition {
	def := &Definition{
		Version:     DefinitionVersion,
		Periods:     g.Periods(),
		Order:       g.NodeNames(),
		Nodes:       make(map[string]NodeDefinition, len(g.nodes)),
		Adjustments: g.Adjustments(),
	}
	for _, n := range g.Nodes() {
		def.Nodes[n.Name()] = describe(n)
	}
	return def
}

func describe(n Node) NodeDefinition {
	nd := NodeDefinition{Name: n.Name(), Type: n.Kind()}
	switch v := n.(type) {
	case *ItemNode:
		nd.Values = v.Values()
	case *CalculationNode:
		nd.Inputs = v.Inputs()
		nd.CalculationType = v.CalculationType()
		nd.Weights = v.Weights()
	case *ForecastNode:
		nd.BaseNode = v.BaseNode()
		nd.BasePeriod = v.BasePeriod()
		nd.ForecastPeriods = v.ForecastPeriods()
		nd.ForecastMethod = v.Method()
		nd.GrowthRate = v.params.GrowthRate
		if len(v.params.GrowthCurve) > 0 {
			nd.GrowthCurve = append([]float64(nil), v.params.GrowthCurve...)
		}
	default:
		nd.Inputs = n.Inputs()
	}
	return nd
}

// FromDefinition rebuilds a graph, creating every node only after its
// dependencies exist. A cycle or an unknown dependency is reported with the
// offending node's name.
func FromDefinition(def *Definition) (*Graph, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrInvalidNode)
	}

	nodes := make(map[string]NodeDefinition, len(def.Nodes))
	for key, nd := range def.Nodes {
		if nd.Name == "" {
			nd.Name = key
		}
		if nd.Name != key {
			return nil, fmt.Errorf("%w: node key %q does not match name %q", ErrInvalidNode, key, nd.Name)
		}
		nodes[key] = nd
	}

	order, err := buildOrder(nodes, def.Order)
	if err != nil {
		return nil, err
	}

	g := New(def.Periods...)
	for _, name := range order {
		if err := g.addFromDefinition(nodes[name]); err != nil {
			return nil, err
		}
	}

	for _, adj := range def.Adjustments {
		if _, err := g.AddAdjustment(adj); err != nil {
			return nil, fmt.Errorf("restore adjustment %s: %w", adj.ID, err)
		}
	}
	return g, nil
}

func (g *Graph) addFromDefinition(nd NodeDefinition) error {
	switch nd.Type {
	case KindItem, "":
		_, err := g.AddFinancialStatementItem(nd.Name, nd.Values)
		return err
	case KindCalculation:
		_, err := g.AddCalculation(nd.Name, nd.Inputs, nd.CalculationType, nd.Weights)
		return err
	case KindForecast:
		_, err := g.AddForecast(nd.Name, nd.BaseNode, nd.BasePeriod, nd.ForecastPeriods, nd.ForecastMethod,
			ForecastParams{GrowthRate: nd.GrowthRate, GrowthCurve: nd.GrowthCurve})
		return err
	}
	return fmt.Errorf("%w: node %q has unknown type %q", ErrInvalidNode, nd.Name, nd.Type)
}

// buildOrder is Kahn's algorithm. Ready nodes are taken in preferred order
// (the saved insertion order, then name order for anything not listed).
func buildOrder(nodes map[string]NodeDefinition, preferred []string) ([]string, error) {
	rank := make(map[string]int, len(nodes))
	for i, name := range preferred {
		if _, ok := nodes[name]; ok {
			if _, dup := rank[name]; !dup {
				rank[name] = i
			}
		}
	}
	var unlisted []string
	for name := range nodes {
		if _, ok := rank[name]; !ok {
			unlisted = append(unlisted, name)
		}
	}
	sort.Strings(unlisted)
	for i, name := range unlisted {
		rank[name] = len(preferred) + i
	}

	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for name := range nodes {
		indegree[name] = 0
	}
	for name, nd := range nodes {
		for _, dep := range nd.Dependencies() {
			if _, ok := nodes[dep]; !ok {
				return nil, fmt.Errorf("%w: node %q requires %q", ErrMissingDependency, name, dep)
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, d := range indegree {
		if d == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return rank[ready[i]] < rank[ready[j]] })
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(nodes) {
		var stuck []string
		for name, d := range indegree {
			if d > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: node %q (unresolved: %v)", ErrDependencyCycle, stuck[0], stuck)
	}
	return order, nil
}
