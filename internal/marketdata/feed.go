package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"optexec/internal/execution"
)

// TradingMinutes is the length of a regular session
const TradingMinutes = 390

// SimulatedConfig controls the simulated feed's distributions. BaseVolume is the
// per-minute volume at midday and OpenCloseBump the extra volume at the open and close.
type SimulatedConfig struct {
	Seed          int64   `json:"seed"`
	BaseVolume    float64 `json:"base_volume"`
	OpenCloseBump float64 `json:"open_close_bump"`
	AverageVolume float64 `json:"average_volume"`
	MinVolatility float64 `json:"min_volatility"`
	MaxVolatility float64 `json:"max_volatility"`
	MaxMomentum   float64 `json:"max_momentum"`
	MinSpread     float64 `json:"min_spread"`
	MaxSpread     float64 `json:"max_spread"`
	NoiseStdDev   float64 `json:"noise_std_dev"`
}

// DefaultSimulatedConfig returns the distributions used by the simulated feed
func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		Seed:          42,
		BaseVolume:    1000,
		OpenCloseBump: 500,
		AverageVolume: 1_000_000,
		MinVolatility: 0.01,
		MaxVolatility: 0.05,
		MaxMomentum:   0.02,
		MinSpread:     0.01,
		MaxSpread:     0.05,
		NoiseStdDev:   0.1,
	}
}

// SimulatedFeed produces randomized but seeded market data with a U-shaped
// intraday volume profile. It is safe for concurrent use, but draws are only
// reproducible when calls are made in a fixed order.
type SimulatedFeed struct {
	cfg    SimulatedConfig
	mu     sync.Mutex
	src    rand.Source
	now    func() time.Time
	logger *slog.Logger
}

var _ execution.MarketDataProvider = (*SimulatedFeed)(nil)

// NewSimulatedFeed creates a simulated feed
func NewSimulatedFeed(cfg SimulatedConfig, logger *slog.Logger) *SimulatedFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulatedFeed{
		cfg:    cfg,
		src:    rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)),
		now:    time.Now,
		logger: logger,
	}
}

// IntradayProfile returns the noiseless U-shaped volume for each minute of a session:
// base + bump*(exp(-t/100) + exp(-(390-t)/100))
func IntradayProfile(base, bump float64) []float64 {
	profile := make([]float64, TradingMinutes)
	for t := range profile {
		ft := float64(t)
		profile[t] = base + bump*(math.Exp(-ft/100)+math.Exp(-(TradingMinutes-ft)/100))
	}
	return profile
}

// uniform draws from [lo, hi). Callers hold f.mu.
func (f *SimulatedFeed) uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: f.src}.Rand()
}

// MarketConditions samples a market snapshot
func (f *SimulatedFeed) MarketConditions(ctx context.Context) (execution.MarketConditions, error) {
	if err := ctx.Err(); err != nil {
		return execution.MarketConditions{}, err
	}

	f.mu.Lock()
	conditions := execution.MarketConditions{
		Volatility:    f.uniform(f.cfg.MinVolatility, f.cfg.MaxVolatility),
		AverageVolume: f.cfg.AverageVolume,
		Momentum:      f.uniform(-f.cfg.MaxMomentum, f.cfg.MaxMomentum),
		Spread:        f.uniform(f.cfg.MinSpread, f.cfg.MaxSpread),
		Timestamp:     f.now().UTC(),
	}
	f.mu.Unlock()

	f.logger.DebugContext(ctx, "sampled market conditions",
		"volatility", conditions.Volatility,
		"momentum", conditions.Momentum,
		"spread", conditions.Spread)

	return conditions, nil
}

// HistoricalVolume returns days rows of per-minute volume, each day scaled by
// N(1, NoiseStdDev) noise per minute
func (f *SimulatedFeed) HistoricalVolume(ctx context.Context, days int) ([][]float64, error) {
	if days <= 0 {
		return nil, fmt.Errorf("historical volume: days must be positive, got %d", days)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile := IntradayProfile(f.cfg.BaseVolume, f.cfg.OpenCloseBump)

	f.mu.Lock()
	defer f.mu.Unlock()

	noise := distuv.Normal{Mu: 1, Sigma: f.cfg.NoiseStdDev, Src: f.src}
	out := make([][]float64, days)
	for d := range out {
		row := make([]float64, len(profile))
		for t, v := range profile {
			row[t] = math.Max(0, v*noise.Rand())
		}
		out[d] = row
	}
	return out, nil
}

// SampleTrades draws n trade sizes from an exponential distribution with the given mean
func (f *SimulatedFeed) SampleTrades(n int, mean float64) []float64 {
	if n <= 0 || mean <= 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	sizes := distuv.Exponential{Rate: 1 / mean, Src: f.src}
	trades := make([]float64, n)
	for i := range trades {
		trades[i] = sizes.Rand()
	}
	return trades
}

// SampleOrderBook draws bid and ask volumes uniformly from [lo, hi)
func (f *SimulatedFeed) SampleOrderBook(lo, hi float64) OrderBook {
	f.mu.Lock()
	defer f.mu.Unlock()

	return OrderBook{
		BidVolume: f.uniform(lo, hi),
		AskVolume: f.uniform(lo, hi),
	}
}
