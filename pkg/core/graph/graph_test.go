package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSampleGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	_, err := g.AddFinancialStatementItem("revenue", map[string]float64{"2022": 100, "2023": 120})
	require.NoError(t, err)
	_, err = g.AddFinancialStatementItem("cogs", map[string]float64{"2022": 60, "2023": 70})
	require.NoError(t, err)
	return g
}

func TestGraph_PeriodsSortedAndUnique(t *testing.T) {
	g := New("2024", "2023", "2024", " ", "2023Q4")
	assert.Equal(t, []string{"2023", "2023Q4", "2024"}, g.Periods())
	assert.True(t, g.HasPeriod("2023Q4"))
	assert.False(t, g.HasPeriod("2025"))

	periods := g.Periods()
	periods[0] = "mutated"
	assert.Equal(t, "2023", g.Periods()[0], "Periods must return a copy")
}

func TestGraph_AddNode(t *testing.T) {
	g := newSampleGraph(t)
	assert.Equal(t, []string{"2022", "2023"}, g.Periods())
	assert.Equal(t, []string{"revenue", "cogs"}, g.NodeNames())
	assert.Equal(t, 2, g.Len())

	_, err := g.AddFinancialStatementItem("revenue", nil)
	assert.True(t, errors.Is(err, ErrDuplicateNode))

	err = g.AddNode(NewItemNode("  ", nil))
	assert.True(t, errors.Is(err, ErrInvalidNode))

	_, err = g.AddCalculation("gross_profit", []string{"revenue", "missing"}, CalcSubtraction, nil)
	assert.True(t, errors.Is(err, ErrMissingDependency))
	assert.Contains(t, err.Error(), "missing")
}

func TestItemNode_MissingPeriodIsZero(t *testing.T) {
	n := NewItemNode("cash", map[string]float64{"2023": 5})
	v, err := n.Calculate("2024")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	assert.False(t, n.HasValue("2024"))

	stored, ok := n.Value("2023")
	assert.True(t, ok)
	assert.Equal(t, 5.0, stored)
}

func TestCalculationNode_Operations(t *testing.T) {
	tests := []struct {
		name     string
		calcType CalculationType
		weights  []float64
		want     float64
	}{
		{"addition", CalcAddition, nil, 190},
		{"subtraction", CalcSubtraction, nil, 50},
		{"multiplication", CalcMultiplication, nil, 8400},
		{"division", CalcDivision, nil, 120.0 / 70.0},
		{"equal weights", CalcWeightedAverage, nil, 95},
		{"explicit weights", CalcWeightedAverage, []float64{3, 1}, (120*3 + 70*1) / 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newSampleGraph(t)
			_, err := g.AddCalculation("result", []string{"revenue", "cogs"}, tt.calcType, tt.weights)
			require.NoError(t, err)

			got, err := g.Calculate("result", "2023")
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCalculationNode_Errors(t *testing.T) {
	g := newSampleGraph(t)

	_, err := g.AddCalculation("bad", []string{"revenue"}, CalcDivision, nil)
	assert.True(t, errors.Is(err, ErrInvalidNode))

	_, err = g.AddCalculation("bad", []string{"revenue", "cogs"}, CalcWeightedAverage, []float64{1})
	assert.True(t, errors.Is(err, ErrInvalidNode))

	_, err = g.AddCalculation("bad", []string{"revenue"}, "formula", nil)
	assert.True(t, errors.Is(err, ErrInvalidNode))

	_, err = g.AddFinancialStatementItem("zero", map[string]float64{"2023": 0})
	require.NoError(t, err)
	_, err = g.AddCalculation("ratio", []string{"revenue", "zero"}, CalcDivision, nil)
	require.NoError(t, err)
	_, err = g.Calculate("ratio", "2023")
	assert.True(t, errors.Is(err, ErrDivisionByZero))

	_, err = g.Calculate("nope", "2023")
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

func TestCalculationNode_CacheCleared(t *testing.T) {
	g := newSampleGraph(t)
	_, err := g.AddCalculation("total", []string{"revenue", "cogs"}, CalcAddition, nil)
	require.NoError(t, err)

	v, err := g.Calculate("total", "2023")
	require.NoError(t, err)
	assert.Equal(t, 190.0, v)

	n, _ := g.GetNode("revenue")
	n.(*ItemNode).SetValue("2023", 200)

	v, _ = g.Calculate("total", "2023")
	assert.Equal(t, 190.0, v, "cached value is served until the cache is cleared")

	g.ClearCalculationCache()
	v, _ = g.Calculate("total", "2023")
	assert.Equal(t, 270.0, v)
}

func TestForecastNode_Methods(t *testing.T) {
	tests := []struct {
		name   string
		method ForecastMethod
		params ForecastParams
		want   map[string]float64
	}{
		{
			name:   "simple",
			method: ForecastSimple,
			params: ForecastParams{GrowthRate: 0.1},
			want:   map[string]float64{"2024": 132, "2025": 145.2},
		},
		{
			name:   "curve",
			method: ForecastCurve,
			params: ForecastParams{GrowthCurve: []float64{0.5, -0.5}},
			want:   map[string]float64{"2024": 180, "2025": 90},
		},
		{
			name:   "average",
			method: ForecastAverage,
			want:   map[string]float64{"2024": 110, "2025": 110},
		},
		{
			name:   "historical growth",
			method: ForecastHistoricalGrowth,
			want:   map[string]float64{"2024": 144, "2025": 172.8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newSampleGraph(t)
			_, err := g.AddForecast("revenue_fc", "revenue", "2023", []string{"2025", "2024"}, tt.method, tt.params)
			require.NoError(t, err)
			assert.Equal(t, []string{"2022", "2023", "2024", "2025"}, g.Periods())

			hist, err := g.Calculate("revenue_fc", "2022")
			require.NoError(t, err)
			assert.Equal(t, 100.0, hist)

			for p, want := range tt.want {
				got, err := g.Calculate("revenue_fc", p)
				require.NoError(t, err)
				assert.InDelta(t, want, got, 1e-9, "period %s", p)
			}
		})
	}
}

func TestForecastNode_Invalid(t *testing.T) {
	g := newSampleGraph(t)

	_, err := g.AddForecast("fc", "revenue", "2023", []string{"2022"}, ForecastSimple, ForecastParams{})
	assert.True(t, errors.Is(err, ErrInvalidNode))

	_, err = g.AddForecast("fc", "revenue", "2023", []string{"2024", "2025"}, ForecastCurve,
		ForecastParams{GrowthCurve: []float64{0.1}})
	assert.True(t, errors.Is(err, ErrInvalidNode))

	_, err = g.AddForecast("fc", "revenue", "2023", []string{"2024"}, "monte_carlo", ForecastParams{})
	assert.True(t, errors.Is(err, ErrInvalidNode))
}

// Plain table test in the style of the growth calculations it covers.
func TestGrowthHelpers(t *testing.T) {
	if got := GrowthRate(110, 100); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("GrowthRate(110, 100) = %v, want 0.1", got)
	}
	if got := GrowthRate(0, 0); got != 0 {
		t.Errorf("GrowthRate(0, 0) = %v, want 0", got)
	}
	if got := GrowthRate(5, 0); !math.IsInf(got, 1) {
		t.Errorf("GrowthRate(5, 0) = %v, want +Inf", got)
	}
	if got := AverageGrowth([]float64{100, 110, 121}); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("AverageGrowth = %v, want 0.1", got)
	}
	// $100 growing to $121 over 2 years = 10% CAGR
	if got := CAGR(100, 121, 2); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("CAGR = %v, want 0.1", got)
	}
	if got := CAGR(-1, 121, 2); got != 0 {
		t.Errorf("CAGR with negative start = %v, want 0", got)
	}
}
