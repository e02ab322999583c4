package marketdata

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Hidden liquidity heuristics
const (
	// imbalanceRatio is how many times larger one side must be to signal hidden interest
	imbalanceRatio = 2.0
	// maxPressure caps the reported pressure
	maxPressure = 0.8
	// largeTradeQuantile separates iceberg-sized prints
	largeTradeQuantile = 0.9

	// Defaults used when trades or the order book are not supplied
	DefaultTradeCount   = 100
	DefaultTradeMean    = 1000.0
	DefaultBookMinDepth = 50_000.0
	DefaultBookMaxDepth = 200_000.0
)

// OrderBook is the displayed depth on each side of the book
type OrderBook struct {
	BidVolume float64 `json:"bid_volume"`
	AskVolume float64 `json:"ask_volume"`
}

// HiddenLiquidity holds the signals inferred from trades and the order book.
// Pressure fields are nil when no imbalance was detected.
type HiddenLiquidity struct {
	HiddenBuyPressure  *float64  `json:"hidden_buy_pressure,omitempty"`
	HiddenSellPressure *float64  `json:"hidden_sell_pressure,omitempty"`
	IcebergIndication  float64   `json:"iceberg_indication"`
	LargeTradeCutoff   float64   `json:"large_trade_cutoff"`
	TradeCount         int       `json:"trade_count"`
	Book               OrderBook `json:"order_book"`
}

// Sampler supplies default trades and order books when the caller has none
type Sampler interface {
	SampleTrades(n int, mean float64) []float64
	SampleOrderBook(lo, hi float64) OrderBook
}

// LiquidityEstimator infers hidden liquidity signals
type LiquidityEstimator struct {
	sampler Sampler
}

// NewLiquidityEstimator creates an estimator. sampler may be nil, in which case
// both trades and an order book must be supplied to Estimate.
func NewLiquidityEstimator(sampler Sampler) *LiquidityEstimator {
	return &LiquidityEstimator{sampler: sampler}
}

// Estimate infers hidden liquidity. Missing inputs are sampled: 100 exponential
// trades with mean 1000 and bid/ask depth uniform on [50k, 200k).
func (e *LiquidityEstimator) Estimate(trades []float64, book *OrderBook) HiddenLiquidity {
	if len(trades) == 0 && e.sampler != nil {
		trades = e.sampler.SampleTrades(DefaultTradeCount, DefaultTradeMean)
	}
	var b OrderBook
	switch {
	case book != nil:
		b = *book
	case e.sampler != nil:
		b = e.sampler.SampleOrderBook(DefaultBookMinDepth, DefaultBookMaxDepth)
	}

	return EstimateHiddenLiquidity(trades, b)
}

// EstimateHiddenLiquidity computes signals from explicit inputs.
//
// A bid side more than twice the ask side signals hidden buying with pressure
// min(0.8, bid/(bid+ask)); the mirror case signals hidden selling. The iceberg
// indication is the fraction of trades strictly above the 90th percentile size.
func EstimateHiddenLiquidity(trades []float64, book OrderBook) HiddenLiquidity {
	out := HiddenLiquidity{Book: book, TradeCount: len(trades)}

	depth := book.BidVolume + book.AskVolume
	if depth > 0 {
		switch {
		case book.BidVolume > imbalanceRatio*book.AskVolume:
			p := min(maxPressure, book.BidVolume/depth)
			out.HiddenBuyPressure = &p
		case book.AskVolume > imbalanceRatio*book.BidVolume:
			p := min(maxPressure, book.AskVolume/depth)
			out.HiddenSellPressure = &p
		}
	}

	if len(trades) > 0 {
		sorted := append([]float64(nil), trades...)
		sort.Float64s(sorted)
		cutoff := stat.Quantile(largeTradeQuantile, stat.LinInterp, sorted, nil)

		large := 0
		for _, v := range sorted {
			if v > cutoff {
				large++
			}
		}
		out.LargeTradeCutoff = cutoff
		out.IcebergIndication = float64(large) / float64(len(sorted))
	}

	return out
}
