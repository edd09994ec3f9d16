package graph

import (
	"fmt"
	"sort"
)

// ForecastMethod selects how a ForecastNode projects its base node.
type ForecastMethod string

const (
	// ForecastSimple grows the previous value by a constant rate.
	ForecastSimple ForecastMethod = "simple"
	// ForecastCurve grows the previous value by a per-period rate.
	ForecastCurve ForecastMethod = "curve"
	// ForecastAverage holds the historical mean flat.
	ForecastAverage ForecastMethod = "average"
	// ForecastHistoricalGrowth grows by the average historical growth rate.
	ForecastHistoricalGrowth ForecastMethod = "historical_growth"
)

// ForecastParams carries method-specific parameters.
type ForecastParams struct {
	GrowthRate  float64
	GrowthCurve []float64
}

// ForecastNode returns its base node's values for historical periods and
// projected values for its forecast periods.
type ForecastNode struct {
	name              string
	base              Node
	basePeriod        string
	forecastPeriods   []string
	historicalPeriods []string
	method            ForecastMethod
	params            ForecastParams
	cache             map[string]float64
}

// NewForecastNode builds a forecast over base. Forecast periods are sorted and
// must all come after basePeriod.
func NewForecastNode(name string, base Node, basePeriod string, forecastPeriods, historicalPeriods []string, method ForecastMethod, params ForecastParams) (*ForecastNode, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: forecast %q has no base node", ErrInvalidNode, name)
	}
	if basePeriod == "" {
		return nil, fmt.Errorf("%w: forecast %q has no base period", ErrInvalidNode, name)
	}
	if len(forecastPeriods) == 0 {
		return nil, fmt.Errorf("%w: forecast %q has no forecast periods", ErrInvalidNode, name)
	}

	fps := append([]string(nil), forecastPeriods...)
	sort.Strings(fps)
	for _, p := range fps {
		if p <= basePeriod {
			return nil, fmt.Errorf("%w: forecast %q period %s is not after base period %s", ErrInvalidNode, name, p, basePeriod)
		}
	}

	switch method {
	case ForecastSimple, ForecastAverage, ForecastHistoricalGrowth:
	case ForecastCurve:
		if len(params.GrowthCurve) != len(fps) {
			return nil, fmt.Errorf("%w: forecast %q curve has %d rates for %d periods",
				ErrInvalidNode, name, len(params.GrowthCurve), len(fps))
		}
	default:
		return nil, fmt.Errorf("%w: unknown forecast method %q for %q", ErrInvalidNode, method, name)
	}

	hist := append([]string(nil), historicalPeriods...)
	sort.Strings(hist)

	return &ForecastNode{
		name:              name,
		base:              base,
		basePeriod:        basePeriod,
		forecastPeriods:   fps,
		historicalPeriods: hist,
		method:            method,
		params: ForecastParams{
			GrowthRate:  params.GrowthRate,
			GrowthCurve: append([]float64(nil), params.GrowthCurve...),
		},
		cache: make(map[string]float64),
	}, nil
}

func (n *ForecastNode) Name() string           { return n.name }
func (n *ForecastNode) Kind() NodeKind         { return KindForecast }
func (n *ForecastNode) Inputs() []string       { return []string{n.base.Name()} }
func (n *ForecastNode) BaseNode() string       { return n.base.Name() }
func (n *ForecastNode) BasePeriod() string     { return n.basePeriod }
func (n *ForecastNode) Method() ForecastMethod { return n.method }
func (n *ForecastNode) Params() ForecastParams { return n.params }

// ForecastPeriods returns the sorted forecast periods.
func (n *ForecastNode) ForecastPeriods() []string {
	return append([]string(nil), n.forecastPeriods...)
}

// ClearCache drops memoized projections.
func (n *ForecastNode) ClearCache() {
	n.cache = make(map[string]float64)
}

// Calculate returns the base value for non-forecast periods and the projected
// value otherwise.
func (n *ForecastNode) Calculate(period string) (float64, error) {
	idx := sort.SearchStrings(n.forecastPeriods, period)
	if idx >= len(n.forecastPeriods) || n.forecastPeriods[idx] != period {
		return n.base.Calculate(period)
	}
	if v, ok := n.cache[period]; ok {
		return v, nil
	}
	if err := n.project(); err != nil {
		return 0, err
	}
	return n.cache[period], nil
}

func (n *ForecastNode) project() error {
	prev, err := n.base.Calculate(n.basePeriod)
	if err != nil {
		return fmt.Errorf("forecast %q: base value for %s: %w", n.name, n.basePeriod, err)
	}

	var history []float64
	if n.method == ForecastAverage || n.method == ForecastHistoricalGrowth {
		for _, p := range n.historicalPeriods {
			v, err := n.base.Calculate(p)
			if err != nil {
				return fmt.Errorf("forecast %q: historical value for %s: %w", n.name, p, err)
			}
			history = append(history, v)
		}
	}
	histGrowth := AverageGrowth(history)
	histMean := Mean(history)

	for i, p := range n.forecastPeriods {
		var v float64
		switch n.method {
		case ForecastSimple:
			v = prev * (1 + n.params.GrowthRate)
		case ForecastCurve:
			v = prev * (1 + n.params.GrowthCurve[i])
		case ForecastAverage:
			v = histMean
		case ForecastHistoricalGrowth:
			v = prev * (1 + histGrowth)
		}
		n.cache[p] = v
		prev = v
	}
	return nil
}
