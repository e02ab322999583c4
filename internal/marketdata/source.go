package marketdata

import (
	"fmt"
	"log/slog"

	"optexec/internal/config"
	"optexec/internal/execution"
)

// Source is a configured market data provider together with the sampler used
// for missing liquidity inputs
type Source struct {
	Provider execution.MarketDataProvider
	Sampler  Sampler
}

// NewSource builds the provider selected by cfg. The sampler is always a
// seeded simulated feed, so a fixed source still samples reproducibly.
func NewSource(cfg config.MarketDataConfig, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sim := DefaultSimulatedConfig()
	sim.Seed = cfg.Seed
	sim.AverageVolume = cfg.AverageVolume
	feed := NewSimulatedFeed(sim, logger.With(slog.String("component", "market_feed")))

	switch cfg.Source {
	case "simulated", "":
		return &Source{Provider: feed, Sampler: feed}, nil
	case "fixed":
		conditions := execution.MarketConditions{
			Volatility:    cfg.Volatility,
			AverageVolume: cfg.AverageVolume,
			Momentum:      cfg.Momentum,
			Spread:        cfg.Spread,
		}
		if err := conditions.Validate(); err != nil {
			return nil, fmt.Errorf("fixed market data: %w", err)
		}
		return &Source{Provider: NewFixedFeed(conditions), Sampler: feed}, nil
	}
	return nil, fmt.Errorf("unknown market data source %q", cfg.Source)
}
