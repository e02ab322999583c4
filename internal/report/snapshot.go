package report

import (
	"context"
	"fmt"

	"optexec/internal/execution"
)

// snapshotDays is the history taken for a report; VWAP reads a single day
const snapshotDays = 1

// snapshot is one sampled market state served to every section of a report.
// Provider failures are kept and returned to each caller in turn.
type snapshot struct {
	conditions    execution.MarketConditions
	conditionsErr error
	history       [][]float64
	historyErr    error
}

var _ execution.MarketDataProvider = (*snapshot)(nil)

// takeSnapshot samples the provider sequentially so that a seeded feed yields
// the same report regardless of how the sections are scheduled
func takeSnapshot(ctx context.Context, provider execution.MarketDataProvider) *snapshot {
	s := &snapshot{}
	s.conditions, s.conditionsErr = provider.MarketConditions(ctx)
	s.history, s.historyErr = provider.HistoricalVolume(ctx, snapshotDays)
	return s
}

func (s *snapshot) MarketConditions(ctx context.Context) (execution.MarketConditions, error) {
	if err := ctx.Err(); err != nil {
		return execution.MarketConditions{}, err
	}
	return s.conditions, s.conditionsErr
}

// HistoricalVolume returns copies of up to days rows of the sampled history
func (s *snapshot) HistoricalVolume(ctx context.Context, days int) ([][]float64, error) {
	if days <= 0 {
		return nil, fmt.Errorf("historical volume: days must be positive, got %d", days)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.historyErr != nil {
		return nil, s.historyErr
	}

	rows := s.history[:min(days, len(s.history))]
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out, nil
}
