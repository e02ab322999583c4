package execution

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider returns fixed market data and counts calls
type stubProvider struct {
	conditions    MarketConditions
	history       [][]float64
	conditionsErr error
	historyErr    error
	calls         int
	historyDays   int
}

func (s *stubProvider) MarketConditions(context.Context) (MarketConditions, error) {
	s.calls++
	return s.conditions, s.conditionsErr
}

func (s *stubProvider) HistoricalVolume(_ context.Context, days int) ([][]float64, error) {
	s.historyDays = days
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return s.history[:min(days, len(s.history))], nil
}

func flatDay(minutes int, v float64) []float64 {
	row := make([]float64, minutes)
	for i := range row {
		row[i] = v
	}
	return row
}

func newStubProvider(momentum float64) *stubProvider {
	return &stubProvider{
		conditions: MarketConditions{
			Volatility:    0.02,
			AverageVolume: 1_000_000,
			Momentum:      momentum,
			Spread:        0.02,
		},
		history: [][]float64{flatDay(390, 1000)},
	}
}

func newTestOrchestrator(t *testing.T, p MarketDataProvider) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(DefaultConfig(), p, nil)
	require.NoError(t, err)
	return o
}

func TestNewOrchestratorValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinTimeSlice = 0
	_, err := NewOrchestrator(cfg, newStubProvider(0), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewOrchestrator(DefaultConfig(), nil, nil)
	assert.Error(t, err)
}

func TestExecuteOrder(t *testing.T) {
	ctx := context.Background()

	for _, strategy := range ComparisonOrder {
		t.Run(string(strategy), func(t *testing.T) {
			o := newTestOrchestrator(t, newStubProvider(-0.01))
			result, err := o.ExecuteOrder(ctx, 500_000, 0.6, strategy)
			require.NoError(t, err)

			assert.Equal(t, strategy, result.Strategy)
			assert.False(t, result.FallbackUsed)
			assert.InDelta(t, 500_000, result.Schedule.Sum(), 1e-6)
			assert.Greater(t, result.TotalCost, 0.0)
			assert.Equal(t, result.TotalCost/500_000, result.CostPerShare)
			assert.Equal(t, len(result.Schedule)*5, result.CompletionTime)
			assert.Contains(t, result.RiskAnalysis, ScenarioNormal)
			assert.Contains(t, result.RiskAnalysis, ScenarioHighVol)
			assert.Contains(t, result.RiskAnalysis, ScenarioLowLiquidity)
			assert.Equal(t, 0.02, result.MarketConditions.Volatility)
			assert.Greater(t, result.RiskMetrics.ValueAtRisk, 0.0)
		})
	}
}

func TestExecuteOrderVWAPUsesVolumeProfile(t *testing.T) {
	p := newStubProvider(0)
	// Heavier volume in the first 5 minutes of the day
	day := flatDay(390, 1000)
	for i := 0; i < 5; i++ {
		day[i] = 3000
	}
	// Only the most recent day is read; the older flat day is ignored
	p.history = [][]float64{day, flatDay(390, 9999)}
	o := newTestOrchestrator(t, p)

	result, err := o.ExecuteOrder(context.Background(), 78_000, 0.5, StrategyVWAP)
	require.NoError(t, err)
	assert.Equal(t, profileDays, p.historyDays)
	require.Len(t, result.Schedule, 78)
	assert.InDelta(t, 78_000*15_000.0/(15_000+77*5000), result.Schedule[0], 1e-6)
	assert.InDelta(t, 78_000*5_000.0/(15_000+77*5000), result.Schedule[1], 1e-6)
}

func TestExecuteOrderAdaptiveMomentumScenario(t *testing.T) {
	o := newTestOrchestrator(t, newStubProvider(0.01))

	result, err := o.ExecuteOrder(context.Background(), 1_000_000, 0.7, StrategyAdaptive)
	require.NoError(t, err)
	assert.Equal(t, BranchMomentum, result.Branch)
	assert.Len(t, result.Schedule, 78)
	assert.InDelta(t, 1_000_000*0.5/78, result.Schedule[0], 1e-9)
	assert.False(t, result.FallbackUsed)
}

func TestExecuteOrderFallsBackToTWAP(t *testing.T) {
	p := newStubProvider(0)
	p.historyErr = errors.New("volume feed offline")
	o := newTestOrchestrator(t, p)

	result, err := o.ExecuteOrder(context.Background(), 7_800, 0.5, StrategyVWAP)
	require.NoError(t, err)
	assert.True(t, result.FallbackUsed)
	assert.Contains(t, result.FallbackReason, "volume feed offline")
	require.Len(t, result.Schedule, 78)
	for _, s := range result.Schedule {
		assert.InDelta(t, 100, s, 1e-9)
	}
}

func TestExecuteOrderErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		size      float64
		urgency   float64
		strategy  Strategy
		provider  *stubProvider
		expectErr error
	}{
		{name: "zero_size", size: 0, urgency: 0.5, strategy: StrategyTWAP, provider: newStubProvider(0), expectErr: ErrInvalidOrderSize},
		{name: "negative_size", size: -10, urgency: 0.5, strategy: StrategyTWAP, provider: newStubProvider(0), expectErr: ErrInvalidOrderSize},
		{name: "urgency_out_of_range", size: 100, urgency: 1.5, strategy: StrategyTWAP, provider: newStubProvider(0), expectErr: ErrInvalidUrgency},
		{name: "unknown_strategy", size: 100, urgency: 0.5, strategy: Strategy("iceberg"), provider: newStubProvider(0), expectErr: ErrUnknownStrategy},
		{
			name: "zero_volume", size: 100, urgency: 0.5, strategy: StrategyTWAP,
			provider:  &stubProvider{conditions: MarketConditions{Volatility: 0.02}},
			expectErr: ErrInvalidVolume,
		},
		{name: "nan_size", size: math.NaN(), urgency: 0.5, strategy: StrategyTWAP, provider: newStubProvider(0), expectErr: ErrInvalidOrderSize},
		{name: "infinite_size", size: math.Inf(1), urgency: 0.5, strategy: StrategyTWAP, provider: newStubProvider(0), expectErr: ErrInvalidOrderSize},
		{name: "nan_urgency", size: 100, urgency: math.NaN(), strategy: StrategyAdaptive, provider: newStubProvider(0), expectErr: ErrInvalidUrgency},
		{
			name: "nan_volatility", size: 100, urgency: 0.5, strategy: StrategyTWAP,
			provider:  &stubProvider{conditions: MarketConditions{Volatility: math.NaN(), AverageVolume: 1_000_000}},
			expectErr: ErrInvalidConditions,
		},
		{
			name: "infinite_volume", size: 100, urgency: 0.5, strategy: StrategyTWAP,
			provider:  &stubProvider{conditions: MarketConditions{Volatility: 0.02, AverageVolume: math.Inf(1)}},
			expectErr: ErrInvalidVolume,
		},
		{
			name: "nan_spread", size: 100, urgency: 0.5, strategy: StrategyTWAP,
			provider:  &stubProvider{conditions: MarketConditions{Volatility: 0.02, AverageVolume: 1_000_000, Spread: math.NaN()}},
			expectErr: ErrInvalidConditions,
		},
		{
			name: "infinite_momentum", size: 100, urgency: 0.5, strategy: StrategyAdaptive,
			provider:  &stubProvider{conditions: MarketConditions{Volatility: 0.02, AverageVolume: 1_000_000, Momentum: math.Inf(-1)}},
			expectErr: ErrInvalidConditions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, tt.provider)
			_, err := o.ExecuteOrder(ctx, tt.size, tt.urgency, tt.strategy)
			assert.ErrorIs(t, err, tt.expectErr)
		})
	}

	t.Run("provider_error_is_surfaced", func(t *testing.T) {
		p := newStubProvider(0)
		p.conditionsErr = errors.New("feed down")
		o := newTestOrchestrator(t, p)
		_, err := o.ExecuteOrder(ctx, 100, 0.5, StrategyTWAP)
		assert.ErrorIs(t, err, p.conditionsErr)
		assert.ErrorIs(t, err, ErrMarketData)
	})
}

func TestCompareStrategies(t *testing.T) {
	p := newStubProvider(0.005)
	o := newTestOrchestrator(t, p)

	cmp := o.CompareStrategies(context.Background(), 500_000, 0.6)
	require.Len(t, cmp.Outcomes, 4)
	assert.Equal(t, 4, p.calls)

	for i, outcome := range cmp.Outcomes {
		assert.Equal(t, ComparisonOrder[i], outcome.Strategy)
		assert.False(t, outcome.Failed(), outcome.Error)
		assert.Equal(t, outcome.TotalCost/500_000, outcome.CostPerShare)
		assert.Positive(t, outcome.CompletionTime)
	}

	best, ok := cmp.Best()
	require.True(t, ok)
	for _, outcome := range cmp.Outcomes {
		assert.LessOrEqual(t, best.TotalCost, outcome.TotalCost)
	}

	twap, ok := cmp.Outcome(StrategyTWAP)
	require.True(t, ok)
	assert.Equal(t, 390, twap.CompletionTime)
}

func TestCompareStrategiesIsolatesFailures(t *testing.T) {
	p := &stubProvider{conditions: MarketConditions{Volatility: 0.02}}
	o := newTestOrchestrator(t, p)

	cmp := o.CompareStrategies(context.Background(), 1000, 0.5)
	require.Len(t, cmp.Outcomes, 4)
	for _, outcome := range cmp.Outcomes {
		assert.True(t, outcome.Failed())
	}
	_, ok := cmp.Best()
	assert.False(t, ok)
}

func TestOptimizePortfolio(t *testing.T) {
	o := newTestOrchestrator(t, newStubProvider(0))
	ctx := context.Background()

	prop, err := o.OptimizePortfolio(ctx, samplePortfolio(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, MethodProportional, prop.Method)

	opt, err := o.OptimizePortfolio(ctx, samplePortfolio(), nil, MethodOptimizer)
	require.NoError(t, err)
	assert.Equal(t, MethodOptimizer, opt.Method)

	_, err = o.OptimizePortfolio(ctx, samplePortfolio(), nil, AllocationMethod("genetic"))
	assert.ErrorIs(t, err, ErrUnknownAllocationMethod)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy(" VWAP ")
	require.NoError(t, err)
	assert.Equal(t, StrategyVWAP, s)

	_, err = ParseStrategy("dark_pool")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
