// Package graph is the in-memory financial statement model: an
// insertion-ordered set of named nodes evaluated over a sorted list of periods.
//
// Readers build graphs; writers only read them. A Graph is not safe for
// concurrent mutation.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for graph operations.
var (
	ErrNodeNotFound       = errors.New("node not found")
	ErrDuplicateNode      = errors.New("duplicate node name")
	ErrInvalidNode        = errors.New("invalid node")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrDependencyCycle    = errors.New("dependency cycle")
	ErrMissingDependency  = errors.New("missing dependency")
	ErrAdjustmentNotFound = errors.New("adjustment not found")
)

// Graph owns its nodes, periods and adjustments.
type Graph struct {
	periods     []string
	nodes       map[string]Node
	order       []string
	adjustments []*Adjustment
}

// New creates an empty graph over the given periods.
func New(periods ...string) *Graph {
	g := &Graph{nodes: make(map[string]Node)}
	g.AddPeriods(periods...)
	return g
}

// Periods returns the sorted period list.
func (g *Graph) Periods() []string {
	out := make([]string, len(g.periods))
	copy(out, g.periods)
	return out
}

// AddPeriods merges periods into the graph, keeping the list sorted and unique.
// Blank periods are ignored.
func (g *Graph) AddPeriods(periods ...string) {
	seen := make(map[string]struct{}, len(g.periods)+len(periods))
	for _, p := range g.periods {
		seen[p] = struct{}{}
	}
	changed := false
	for _, p := range periods {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		g.periods = append(g.periods, p)
		changed = true
	}
	if changed {
		sort.Strings(g.periods)
	}
}

// HasPeriod reports whether period is part of the graph.
func (g *Graph) HasPeriod(period string) bool {
	i := sort.SearchStrings(g.periods, period)
	return i < len(g.periods) && g.periods[i] == period
}

// AddNode inserts n. Names must be unique and every input must already exist.
func (g *Graph) AddNode(n Node) error {
	if n == nil || strings.TrimSpace(n.Name()) == "" {
		return fmt.Errorf("%w: node must have a non-empty name", ErrInvalidNode)
	}
	if _, exists := g.nodes[n.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, n.Name())
	}
	for _, in := range n.Inputs() {
		if _, ok := g.nodes[in]; !ok {
			return fmt.Errorf("%w: node %q requires %q", ErrMissingDependency, n.Name(), in)
		}
	}
	g.nodes[n.Name()] = n
	g.order = append(g.order, n.Name())
	return nil
}

// GetNode returns the named node.
func (g *Graph) GetNode(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// HasNode reports whether the named node exists.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// NodeNames returns node names in insertion order.
func (g *Graph) NodeNames() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// AddFinancialStatementItem adds a data node and registers its periods.
func (g *Graph) AddFinancialStatementItem(name string, values map[string]float64) (*ItemNode, error) {
	n := NewItemNode(name, values)
	if err := g.AddNode(n); err != nil {
		return nil, err
	}
	periods := make([]string, 0, len(values))
	for p := range values {
		periods = append(periods, p)
	}
	g.AddPeriods(periods...)
	return n, nil
}

// AddCalculation adds a calculation node over existing input nodes.
func (g *Graph) AddCalculation(name string, inputs []string, calcType CalculationType, weights []float64) (*CalculationNode, error) {
	nodes, err := g.resolve(name, inputs)
	if err != nil {
		return nil, err
	}
	n, err := NewCalculationNode(name, nodes, calcType, weights)
	if err != nil {
		return nil, err
	}
	if err := g.AddNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// AddForecast adds a forecast node projecting baseNode beyond basePeriod.
// Graph periods up to and including basePeriod are treated as history, and
// the forecast periods are added to the graph.
func (g *Graph) AddForecast(name, baseNode, basePeriod string, forecastPeriods []string, method ForecastMethod, params ForecastParams) (*ForecastNode, error) {
	nodes, err := g.resolve(name, []string{baseNode})
	if err != nil {
		return nil, err
	}
	g.AddPeriods(basePeriod)
	var history []string
	for _, p := range g.periods {
		if p <= basePeriod {
			history = append(history, p)
		}
	}
	n, err := NewForecastNode(name, nodes[0], basePeriod, forecastPeriods, history, method, params)
	if err != nil {
		return nil, err
	}
	if err := g.AddNode(n); err != nil {
		return nil, err
	}
	g.AddPeriods(forecastPeriods...)
	return n, nil
}

func (g *Graph) resolve(owner string, names []string) ([]Node, error) {
	out := make([]Node, 0, len(names))
	for _, in := range names {
		n, ok := g.nodes[in]
		if !ok {
			return nil, fmt.Errorf("%w: node %q requires %q", ErrMissingDependency, owner, in)
		}
		out = append(out, n)
	}
	return out, nil
}

// Calculate evaluates the named node for period.
func (g *Graph) Calculate(name, period string) (float64, error) {
	n, ok := g.nodes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	return n.Calculate(period)
}

// ClearCalculationCache drops memoized results on every node.
func (g *Graph) ClearCalculationCache() {
	for _, n := range g.nodes {
		if c, ok := n.(cacheHolder); ok {
			c.ClearCache()
		}
	}
}
