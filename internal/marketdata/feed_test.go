package marketdata

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"optexec/internal/execution"
)

func TestIntradayProfileIsUShaped(t *testing.T) {
	profile := IntradayProfile(1000, 500)
	require.Len(t, profile, TradingMinutes)

	assert.InDelta(t, 1000+500*(1+math.Exp(-3.9)), profile[0], 1e-9)
	mid := profile[TradingMinutes/2]
	assert.Greater(t, profile[0], mid)
	assert.Greater(t, profile[TradingMinutes-1], mid)
	// Both tails still contribute at midday
	assert.InDelta(t, 1000+1000*math.Exp(-1.95), mid, 1e-9)
}

func TestSimulatedFeedMarketConditions(t *testing.T) {
	cfg := DefaultSimulatedConfig()
	feed := NewSimulatedFeed(cfg, nil)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		c, err := feed.MarketConditions(ctx)
		require.NoError(t, err)
		require.NoError(t, c.Validate())
		assert.GreaterOrEqual(t, c.Volatility, cfg.MinVolatility)
		assert.Less(t, c.Volatility, cfg.MaxVolatility)
		assert.GreaterOrEqual(t, c.Momentum, -cfg.MaxMomentum)
		assert.Less(t, c.Momentum, cfg.MaxMomentum)
		assert.GreaterOrEqual(t, c.Spread, cfg.MinSpread)
		assert.Equal(t, 1_000_000.0, c.AverageVolume)
		assert.False(t, c.Timestamp.IsZero())
	}
}

func TestSimulatedFeedIsSeeded(t *testing.T) {
	ctx := context.Background()
	a := NewSimulatedFeed(DefaultSimulatedConfig(), nil)
	b := NewSimulatedFeed(DefaultSimulatedConfig(), nil)

	ca, err := a.MarketConditions(ctx)
	require.NoError(t, err)
	cb, err := b.MarketConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, ca.Volatility, cb.Volatility)
	assert.Equal(t, ca.Momentum, cb.Momentum)

	ha, err := a.HistoricalVolume(ctx, 2)
	require.NoError(t, err)
	hb, err := b.HistoricalVolume(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestSimulatedFeedHistoricalVolume(t *testing.T) {
	feed := NewSimulatedFeed(DefaultSimulatedConfig(), nil)
	ctx := context.Background()

	history, err := feed.HistoricalVolume(ctx, 30)
	require.NoError(t, err)
	require.Len(t, history, 30)
	for _, day := range history {
		require.Len(t, day, TradingMinutes)
		for _, v := range day {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}

	_, err = feed.HistoricalVolume(ctx, 0)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = feed.HistoricalVolume(cancelled, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedFeedSampling(t *testing.T) {
	a := NewSimulatedFeed(DefaultSimulatedConfig(), nil)
	b := NewSimulatedFeed(DefaultSimulatedConfig(), nil)

	trades := a.SampleTrades(5000, DefaultTradeMean)
	require.Len(t, trades, 5000)
	for _, v := range trades {
		assert.GreaterOrEqual(t, v, 0.0)
	}
	// Exponential sample mean is within a few standard errors of the mean
	assert.InDelta(t, DefaultTradeMean, stat.Mean(trades, nil), 100)
	assert.Equal(t, trades, b.SampleTrades(5000, DefaultTradeMean))

	book := a.SampleOrderBook(DefaultBookMinDepth, DefaultBookMaxDepth)
	assert.GreaterOrEqual(t, book.BidVolume, DefaultBookMinDepth)
	assert.Less(t, book.AskVolume, DefaultBookMaxDepth)
	assert.Equal(t, book, b.SampleOrderBook(DefaultBookMinDepth, DefaultBookMaxDepth))

	assert.Nil(t, a.SampleTrades(0, DefaultTradeMean))
	assert.Nil(t, a.SampleTrades(10, 0))
}

func TestSimulatedFeedConcurrentUse(t *testing.T) {
	feed := NewSimulatedFeed(DefaultSimulatedConfig(), nil)
	g, ctx := errgroup.WithContext(context.Background())

	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 50; j++ {
				if _, err := feed.MarketConditions(ctx); err != nil {
					return err
				}
				if _, err := feed.HistoricalVolume(ctx, 1); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestFixedFeed(t *testing.T) {
	conditions := execution.MarketConditions{Volatility: 0.02, AverageVolume: 1_000_000, Momentum: 0.01}
	feed := NewFixedFeed(conditions)
	ctx := context.Background()

	got, err := feed.MarketConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, conditions, got)

	history, err := feed.HistoricalVolume(ctx, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, history[0], history[2])

	// Callers get copies
	history[0][0] = -1
	again, err := feed.HistoricalVolume(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, -1.0, again[0][0])

	empty := &FixedFeed{Conditions: conditions}
	_, err = empty.HistoricalVolume(ctx, 1)
	assert.ErrorIs(t, err, execution.ErrInvalidVolume)
}

func TestFixedFeedDrivesOrchestrator(t *testing.T) {
	feed := NewFixedFeed(execution.MarketConditions{Volatility: 0.02, AverageVolume: 1_000_000, Momentum: 0.01})
	orch, err := execution.NewOrchestrator(execution.DefaultConfig(), feed, nil)
	require.NoError(t, err)

	first, err := orch.ExecuteOrder(context.Background(), 1_000_000, 0.7, execution.StrategyVWAP)
	require.NoError(t, err)
	second, err := orch.ExecuteOrder(context.Background(), 1_000_000, 0.7, execution.StrategyVWAP)
	require.NoError(t, err)

	assert.Equal(t, first.TotalCost, second.TotalCost)
	// U-shaped profile trades more at the open than at midday
	assert.Greater(t, first.Schedule[0], first.Schedule[len(first.Schedule)/2])
}
