package graph

import (
	"fmt"
	"math"
)

// CalculationType selects the arithmetic a CalculationNode applies to its inputs.
type CalculationType string

const (
	CalcAddition        CalculationType = "addition"
	CalcSubtraction     CalculationType = "subtraction"
	CalcMultiplication  CalculationType = "multiplication"
	CalcDivision        CalculationType = "division"
	CalcWeightedAverage CalculationType = "weighted_average"
)

// CalculationNode derives its value from other nodes.
type CalculationNode struct {
	name     string
	inputs   []Node
	calcType CalculationType
	weights  []float64
	cache    map[string]float64
}

// NewCalculationNode validates the inputs for calcType and builds the node.
// Weights are only used by weighted_average; nil means equal weights.
func NewCalculationNode(name string, inputs []Node, calcType CalculationType, weights []float64) (*CalculationNode, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: calculation %q needs at least one input", ErrInvalidNode, name)
	}
	switch calcType {
	case CalcAddition, CalcMultiplication:
	case CalcSubtraction, CalcDivision:
		if len(inputs) < 2 {
			return nil, fmt.Errorf("%w: %s %q needs at least two inputs", ErrInvalidNode, calcType, name)
		}
	case CalcWeightedAverage:
		if weights != nil && len(weights) != len(inputs) {
			return nil, fmt.Errorf("%w: weighted_average %q has %d weights for %d inputs",
				ErrInvalidNode, name, len(weights), len(inputs))
		}
		sum := 0.0
		for _, w := range weights {
			sum += w
		}
		if weights != nil && sum == 0 {
			return nil, fmt.Errorf("%w: weighted_average %q weights sum to zero", ErrInvalidNode, name)
		}
	default:
		return nil, fmt.Errorf("%w: unknown calculation type %q for %q", ErrInvalidNode, calcType, name)
	}

	var w []float64
	if weights != nil {
		w = append([]float64(nil), weights...)
	}
	return &CalculationNode{
		name:     name,
		inputs:   append([]Node(nil), inputs...),
		calcType: calcType,
		weights:  w,
		cache:    make(map[string]float64),
	}, nil
}

func (n *CalculationNode) Name() string                     { return n.name }
func (n *CalculationNode) Kind() NodeKind                   { return KindCalculation }
func (n *CalculationNode) CalculationType() CalculationType { return n.calcType }

// Weights returns a copy of the weights (nil for equal weighting).
func (n *CalculationNode) Weights() []float64 {
	if n.weights == nil {
		return nil
	}
	return append([]float64(nil), n.weights...)
}

func (n *CalculationNode) Inputs() []string {
	out := make([]string, len(n.inputs))
	for i, in := range n.inputs {
		out[i] = in.Name()
	}
	return out
}

// ClearCache drops memoized per-period results.
func (n *CalculationNode) ClearCache() {
	n.cache = make(map[string]float64)
}

// Calculate evaluates the inputs for period and applies the operation.
func (n *CalculationNode) Calculate(period string) (float64, error) {
	if v, ok := n.cache[period]; ok {
		return v, nil
	}

	values := make([]float64, len(n.inputs))
	for i, in := range n.inputs {
		v, err := in.Calculate(period)
		if err != nil {
			return 0, fmt.Errorf("calculate %q for %s: input %q: %w", n.name, period, in.Name(), err)
		}
		values[i] = v
	}

	result, err := n.apply(values)
	if err != nil {
		return 0, fmt.Errorf("calculate %q for %s: %w", n.name, period, err)
	}
	n.cache[period] = result
	return result, nil
}

func (n *CalculationNode) apply(values []float64) (float64, error) {
	switch n.calcType {
	case CalcAddition:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum, nil
	case CalcSubtraction:
		result := values[0]
		for _, v := range values[1:] {
			result -= v
		}
		return result, nil
	case CalcMultiplication:
		result := 1.0
		for _, v := range values {
			result *= v
		}
		return result, nil
	case CalcDivision:
		result := values[0]
		for _, v := range values[1:] {
			if v == 0 {
				return 0, ErrDivisionByZero
			}
			result /= v
		}
		return result, nil
	case CalcWeightedAverage:
		weighted, total := 0.0, 0.0
		for i, v := range values {
			w := 1.0
			if n.weights != nil {
				w = n.weights[i]
			}
			weighted += v * w
			total += w
		}
		result := weighted / total
		if math.IsNaN(result) || math.IsInf(result, 0) {
			return 0, fmt.Errorf("weighted average is not finite")
		}
		return result, nil
	}
	return 0, fmt.Errorf("unknown calculation type %q", n.calcType)
}
