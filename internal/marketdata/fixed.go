package marketdata

import (
	"context"
	"fmt"

	"optexec/internal/execution"
)

// FixedFeed returns the same snapshot and volume history on every call
type FixedFeed struct {
	Conditions execution.MarketConditions
	Volumes    [][]float64
}

var _ execution.MarketDataProvider = (*FixedFeed)(nil)

// NewFixedFeed creates a feed from fixed conditions and a noiseless U-shaped day
func NewFixedFeed(conditions execution.MarketConditions) *FixedFeed {
	return &FixedFeed{
		Conditions: conditions,
		Volumes:    [][]float64{IntradayProfile(1000, 500)},
	}
}

// MarketConditions returns the fixed snapshot
func (f *FixedFeed) MarketConditions(ctx context.Context) (execution.MarketConditions, error) {
	if err := ctx.Err(); err != nil {
		return execution.MarketConditions{}, err
	}
	return f.Conditions, nil
}

// HistoricalVolume returns copies of the first days rows. Days beyond the stored
// history repeat the last stored day.
func (f *FixedFeed) HistoricalVolume(ctx context.Context, days int) ([][]float64, error) {
	if days <= 0 {
		return nil, fmt.Errorf("historical volume: days must be positive, got %d", days)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.Volumes) == 0 {
		return nil, fmt.Errorf("historical volume: %w: fixture has no volume history", execution.ErrInvalidVolume)
	}

	out := make([][]float64, days)
	for d := range out {
		src := f.Volumes[min(d, len(f.Volumes)-1)]
		out[d] = append([]float64(nil), src...)
	}
	return out, nil
}
