package execution

import "context"

// MarketDataProvider supplies market snapshots and intraday volume history.
// Live implementations may sample data; tests inject fixed fixtures.
type MarketDataProvider interface {
	// MarketConditions returns the current market snapshot
	MarketConditions(ctx context.Context) (MarketConditions, error)

	// HistoricalVolume returns one row per day of per-minute volumes, most recent first
	HistoricalVolume(ctx context.Context, days int) ([][]float64, error)
}
