package graph

// NodeKind identifies the concrete node type in definitions.
type NodeKind string

const (
	KindItem        NodeKind = "financial_statement_item"
	KindCalculation NodeKind = "calculation"
	KindForecast    NodeKind = "forecast"
)

// Node is a named, period-indexed value provider inside a Graph.
type Node interface {
	Name() string
	Kind() NodeKind
	// Calculate returns the node's value for period.
	Calculate(period string) (float64, error)
	// Inputs lists the names of the nodes this node depends on.
	Inputs() []string
}

// cacheHolder is implemented by nodes that memoize per-period results.
type cacheHolder interface {
	ClearCache()
}

// ItemNode is a raw financial statement line item holding stored values.
type ItemNode struct {
	name   string
	values map[string]float64
}

// NewItemNode creates a data node. The values map is copied.
func NewItemNode(name string, values map[string]float64) *ItemNode {
	n := &ItemNode{name: name, values: make(map[string]float64, len(values))}
	for p, v := range values {
		n.values[p] = v
	}
	return n
}

func (n *ItemNode) Name() string     { return n.name }
func (n *ItemNode) Kind() NodeKind   { return KindItem }
func (n *ItemNode) Inputs() []string { return nil }

// Calculate returns the stored value, or 0 when the period has no value.
func (n *ItemNode) Calculate(period string) (float64, error) {
	return n.values[period], nil
}

// Value returns the stored value and whether one exists.
func (n *ItemNode) Value(period string) (float64, bool) {
	v, ok := n.values[period]
	return v, ok
}

// HasValue reports whether a value is stored for period.
func (n *ItemNode) HasValue(period string) bool {
	_, ok := n.values[period]
	return ok
}

// SetValue stores v for period.
func (n *ItemNode) SetValue(period string, v float64) {
	n.values[period] = v
}

// Values returns a copy of the stored values.
func (n *ItemNode) Values() map[string]float64 {
	out := make(map[string]float64, len(n.values))
	for p, v := range n.values {
		out[p] = v
	}
	return out
}
