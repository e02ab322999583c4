package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateHiddenLiquidity(t *testing.T) {
	tests := []struct {
		name         string
		book         OrderBook
		buyPressure  *float64
		sellPressure *float64
	}{
		{
			name:        "bid_heavy_book",
			book:        OrderBook{BidVolume: 300_000, AskVolume: 100_000},
			buyPressure: ptr(0.75),
		},
		{
			name:        "extreme_bid_is_capped",
			book:        OrderBook{BidVolume: 900_000, AskVolume: 10_000},
			buyPressure: ptr(0.8),
		},
		{
			name:         "ask_heavy_book",
			book:         OrderBook{BidVolume: 60_000, AskVolume: 140_000},
			sellPressure: ptr(0.7),
		},
		{
			name: "balanced_book",
			book: OrderBook{BidVolume: 120_000, AskVolume: 100_000},
		},
		{
			name: "exactly_double_is_not_an_imbalance",
			book: OrderBook{BidVolume: 200_000, AskVolume: 100_000},
		},
		{
			name: "empty_book",
			book: OrderBook{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateHiddenLiquidity(nil, tt.book)
			if tt.buyPressure == nil {
				assert.Nil(t, got.HiddenBuyPressure)
			} else {
				require.NotNil(t, got.HiddenBuyPressure)
				assert.InDelta(t, *tt.buyPressure, *got.HiddenBuyPressure, 1e-12)
			}
			if tt.sellPressure == nil {
				assert.Nil(t, got.HiddenSellPressure)
			} else {
				require.NotNil(t, got.HiddenSellPressure)
				assert.InDelta(t, *tt.sellPressure, *got.HiddenSellPressure, 1e-12)
			}
			assert.Zero(t, got.IcebergIndication)
		})
	}
}

func TestIcebergIndication(t *testing.T) {
	trades := make([]float64, 100)
	for i := range trades {
		trades[i] = float64(i + 1)
	}

	got := EstimateHiddenLiquidity(trades, OrderBook{BidVolume: 1, AskVolume: 1})
	assert.Equal(t, 100, got.TradeCount)
	assert.Greater(t, got.IcebergIndication, 0.0)
	assert.LessOrEqual(t, got.IcebergIndication, 0.11)

	uniform := EstimateHiddenLiquidity([]float64{5, 5, 5, 5}, OrderBook{})
	assert.Zero(t, uniform.IcebergIndication)

	// Input order is preserved
	input := []float64{3, 1, 2}
	EstimateHiddenLiquidity(input, OrderBook{})
	assert.Equal(t, []float64{3, 1, 2}, input)
}

func TestLiquidityEstimatorSamplesMissingInputs(t *testing.T) {
	feed := NewSimulatedFeed(DefaultSimulatedConfig(), nil)
	est := NewLiquidityEstimator(feed)

	got := est.Estimate(nil, nil)
	assert.Equal(t, DefaultTradeCount, got.TradeCount)
	assert.GreaterOrEqual(t, got.Book.BidVolume, DefaultBookMinDepth)
	assert.Less(t, got.Book.BidVolume, DefaultBookMaxDepth)
	assert.GreaterOrEqual(t, got.Book.AskVolume, DefaultBookMinDepth)

	book := OrderBook{BidVolume: 500_000, AskVolume: 100_000}
	explicit := est.Estimate([]float64{10, 20}, &book)
	assert.Equal(t, 2, explicit.TradeCount)
	require.NotNil(t, explicit.HiddenBuyPressure)

	noSampler := NewLiquidityEstimator(nil).Estimate(nil, nil)
	assert.Zero(t, noSampler.TradeCount)
}

func ptr(v float64) *float64 { return &v }
