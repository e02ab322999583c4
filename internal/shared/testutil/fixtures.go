package testutil

import (
	"context"
	"sync"
	"time"

	"optexec/internal/execution"
)

// FixtureTime is the timestamp carried by fixture market snapshots
var FixtureTime = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

// NeutralConditions is a calm market with no momentum
func NeutralConditions() execution.MarketConditions {
	return execution.MarketConditions{
		Volatility:    0.02,
		AverageVolume: 1_000_000,
		Momentum:      0,
		Spread:        0.02,
		Timestamp:     FixtureTime,
	}
}

// TrendingConditions is NeutralConditions with the given momentum
func TrendingConditions(momentum float64) execution.MarketConditions {
	c := NeutralConditions()
	c.Momentum = momentum
	return c
}

// SamplePortfolio is a three leg portfolio with distinct risks
func SamplePortfolio() []execution.PortfolioOrder {
	return []execution.PortfolioOrder{
		{Symbol: "AAPL", Size: 100_000, Risk: 0.02},
		{Symbol: "GOOGL", Size: 50_000, Risk: 0.025},
		{Symbol: "MSFT", Size: 75_000, Risk: 0.018},
	}
}

// FlatDay is one session of constant per-minute volume
func FlatDay(perMinute float64) []float64 {
	day := make([]float64, 390)
	for i := range day {
		day[i] = perMinute
	}
	return day
}

// StubProvider is a MarketDataProvider returning fixed values. Errors can be
// injected per method, and calls are counted.
type StubProvider struct {
	mu sync.Mutex

	Conditions    execution.MarketConditions
	History       [][]float64
	ConditionsErr error
	HistoryErr    error

	conditionCalls int
	historyCalls   int
}

var _ execution.MarketDataProvider = (*StubProvider)(nil)

// NewStubProvider creates a provider with one flat day of history
func NewStubProvider(conditions execution.MarketConditions) *StubProvider {
	return &StubProvider{
		Conditions: conditions,
		History:    [][]float64{FlatDay(1000)},
	}
}

// MarketConditions implements execution.MarketDataProvider
func (s *StubProvider) MarketConditions(ctx context.Context) (execution.MarketConditions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditionCalls++
	if err := ctx.Err(); err != nil {
		return execution.MarketConditions{}, err
	}
	return s.Conditions, s.ConditionsErr
}

// HistoricalVolume implements execution.MarketDataProvider
func (s *StubProvider) HistoricalVolume(ctx context.Context, days int) ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.HistoryErr != nil {
		return nil, s.HistoryErr
	}
	return s.History, nil
}

// Calls returns how many times each method was called
func (s *StubProvider) Calls() (conditions, history int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conditionCalls, s.historyCalls
}
