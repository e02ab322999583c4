package execution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePortfolio() []PortfolioOrder {
	return []PortfolioOrder{
		{Symbol: "AAPL", Size: 500_000, Risk: 0.02},
		{Symbol: "GOOGL", Size: 300_000, Risk: 0.025},
		{Symbol: "MSFT", Size: 200_000, Risk: 0.018},
	}
}

func TestDefaultCorrelation(t *testing.T) {
	m := DefaultCorrelation(3)
	require.NoError(t, m.Validate(3))
	for i := range m {
		for j := range m[i] {
			if i == j {
				assert.Equal(t, 1.0, m[i][j])
			} else {
				assert.Equal(t, 0.3, m[i][j])
			}
		}
	}
}

func TestCorrelationMatrixValidate(t *testing.T) {
	tests := []struct {
		name   string
		matrix CorrelationMatrix
		n      int
		valid  bool
	}{
		{name: "identity", matrix: CorrelationMatrix{{1, 0}, {0, 1}}, n: 2, valid: true},
		{name: "negative_correlation", matrix: CorrelationMatrix{{1, -0.8}, {-0.8, 1}}, n: 2, valid: true},
		{name: "wrong_size", matrix: CorrelationMatrix{{1}}, n: 2},
		{name: "ragged", matrix: CorrelationMatrix{{1, 0}, {0}}, n: 2},
		{name: "asymmetric", matrix: CorrelationMatrix{{1, 0.2}, {0.4, 1}}, n: 2},
		{name: "bad_diagonal", matrix: CorrelationMatrix{{0.9, 0.2}, {0.2, 1}}, n: 2},
		{name: "out_of_range", matrix: CorrelationMatrix{{1, 1.5}, {1.5, 1}}, n: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.matrix.Validate(tt.n)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidCorrelation)
			}
		})
	}
}

func TestProportional(t *testing.T) {
	a := NewAllocator(DefaultConfig(), nil)

	result, err := a.Proportional(samplePortfolio())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NoError(t, result.Err())
	assert.Equal(t, MethodProportional, result.Method)
	require.Len(t, result.Allocations, 3)

	aapl, ok := result.Allocation("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 0.5, aapl.Allocation, 1e-12)
	assert.InDelta(t, 390, aapl.ExecutionTime, 1e-12) // 500 clamped to 390
	assert.InDelta(t, 500_000*0.001*0.02, aapl.EstimatedCost, 1e-12)

	msft, _ := result.Allocation("MSFT")
	assert.InDelta(t, 200, msft.ExecutionTime, 1e-12)

	small, err := a.Proportional([]PortfolioOrder{{Symbol: "TINY", Size: 10_000, Risk: 0.01}})
	require.NoError(t, err)
	assert.InDelta(t, 60, small.Allocations[0].ExecutionTime, 1e-12) // 10 raised to 60

	sum := 0.0
	for _, alloc := range result.Allocations {
		sum += alloc.Allocation
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 10+7.5+3.6, result.TotalCost, 1e-9)
}

func TestOptimizeSingleOrder(t *testing.T) {
	a := NewAllocator(DefaultConfig(), nil)

	tests := []struct {
		size     float64
		expected float64
	}{
		{size: 500_000, expected: 50},
		{size: 5_000, expected: 1},
		{size: 10_000_000, expected: 390},
	}

	for _, tt := range tests {
		result, err := a.Optimize([]PortfolioOrder{{Symbol: "ONE", Size: tt.size, Risk: 0.02}}, nil)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, tt.expected, result.Allocations[0].ExecutionTime)
		assert.InDelta(t, 0.02*0.02*tt.expected, result.Objective, 1e-12)
	}
}

func TestOptimizeBoundsAndImprovement(t *testing.T) {
	a := NewAllocator(DefaultConfig(), nil)
	orders := samplePortfolio()
	corr := DefaultCorrelation(len(orders))

	seed := []float64{50, 30, 20}
	seedObjective := portfolioObjective(orders, corr, seed)

	result, err := a.Optimize(orders, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodOptimizer, result.Method)
	assert.NotEmpty(t, result.Status)

	for _, alloc := range result.Allocations {
		assert.GreaterOrEqual(t, alloc.ExecutionTime, MinExecutionMinutes)
		assert.LessOrEqual(t, alloc.ExecutionTime, MaxExecutionMinutes)
	}
	assert.LessOrEqual(t, result.Objective, seedObjective+1e-12)

	times := make([]float64, len(result.Allocations))
	for i, alloc := range result.Allocations {
		times[i] = alloc.ExecutionTime
	}
	assert.InDelta(t, portfolioObjective(orders, corr, times), result.Objective, 1e-12)
}

func TestOptimizeIterationCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OptimizerMaxIterations = 1
	a := NewAllocator(cfg, nil)

	result, err := a.Optimize(samplePortfolio(), nil)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 3)
	if !result.Success {
		assert.ErrorIs(t, result.Err(), ErrOptimizationFailure)
	}
	for _, alloc := range result.Allocations {
		assert.GreaterOrEqual(t, alloc.ExecutionTime, MinExecutionMinutes)
		assert.LessOrEqual(t, alloc.ExecutionTime, MaxExecutionMinutes)
	}
}

func TestAllocatorRejectsInvalidInput(t *testing.T) {
	a := NewAllocator(DefaultConfig(), nil)

	_, err := a.Optimize(nil, nil)
	assert.ErrorIs(t, err, ErrNoOrders)

	_, err = a.Proportional([]PortfolioOrder{{Symbol: "X", Size: 0, Risk: 0.1}})
	assert.ErrorIs(t, err, ErrInvalidOrderSize)

	_, err = a.Optimize(samplePortfolio(), CorrelationMatrix{{1, 0}, {0, 1}})
	assert.ErrorIs(t, err, ErrInvalidCorrelation)

	_, err = a.Proportional([]PortfolioOrder{{Symbol: "X", Size: 1, Risk: 0.1}, {Symbol: "X", Size: 2, Risk: 0.1}})
	assert.ErrorIs(t, err, ErrInvalidPortfolioOrder)

	_, err = a.Proportional([]PortfolioOrder{{Symbol: "X", Size: math.NaN(), Risk: 0.1}})
	assert.ErrorIs(t, err, ErrInvalidOrderSize)

	_, err = a.Optimize([]PortfolioOrder{{Symbol: "X", Size: 100, Risk: math.Inf(1)}}, nil)
	assert.ErrorIs(t, err, ErrInvalidPortfolioOrder)
}
