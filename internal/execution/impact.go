package execution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ImpactModel prices schedules with a linear permanent and square-root temporary impact
type ImpactModel struct {
	cfg Config
}

// NewImpactModel creates an impact model for the given configuration
func NewImpactModel(cfg Config) *ImpactModel {
	return &ImpactModel{cfg: cfg}
}

// PermanentImpact returns the persistent cost rate of trading volumeFraction of the
// average volume: factor * volumeFraction * volatility
func (m *ImpactModel) PermanentImpact(volumeFraction, volatility float64) float64 {
	return m.cfg.PermanentImpactFactor * volumeFraction * volatility
}

// TemporaryImpact returns the transient cost rate of a trade:
// factor * sqrt(tradeSize/averageVolume) * volatility
func (m *ImpactModel) TemporaryImpact(tradeSize, averageVolume, volatility float64) (float64, error) {
	if averageVolume <= 0 {
		return 0, fmt.Errorf("temporary impact: %w: got %.4f", ErrInvalidVolume, averageVolume)
	}
	if tradeSize <= 0 {
		return 0, nil
	}
	return m.cfg.TemporaryImpactFactor * math.Sqrt(tradeSize/averageVolume) * volatility, nil
}

// TotalImpactCost prices a schedule slice by slice.
//
// Each slice costs shares * (permanent + temporary) and is priced independently of
// the slices before it; no order book state carries between slices.
func (m *ImpactModel) TotalImpactCost(schedule Schedule, averageVolume, volatility float64) (ImpactCost, error) {
	if averageVolume <= 0 {
		return ImpactCost{}, fmt.Errorf("total impact cost: %w: got %.4f", ErrInvalidVolume, averageVolume)
	}

	var cost ImpactCost
	for _, shares := range schedule {
		perm := m.PermanentImpact(shares/averageVolume, volatility)
		temp, err := m.TemporaryImpact(shares, averageVolume, volatility)
		if err != nil {
			return ImpactCost{}, err
		}
		cost.PermanentCost += shares * perm
		cost.TemporaryCost += shares * temp
	}
	cost.TotalCost = cost.PermanentCost + cost.TemporaryCost
	return cost, nil
}

// AlmgrenChriss builds an exponential-decay schedule over horizon minutes.
//
// The horizon is split into n = max(1, horizon/MinTimeSlice) points evenly spaced on
// [0,1]. Each non-final slice trades total*exp(-riskAversion*t)/n, clipped to the
// remaining inventory, and the final slice trades whatever is left.
func (m *ImpactModel) AlmgrenChriss(totalShares float64, horizon int, volatility, averageVolume, riskAversion float64) (Schedule, error) {
	if totalShares <= 0 {
		return nil, fmt.Errorf("almgren-chriss: %w: got %.4f", ErrInvalidOrderSize, totalShares)
	}
	if averageVolume <= 0 {
		return nil, fmt.Errorf("almgren-chriss: %w: got %.4f", ErrInvalidVolume, averageVolume)
	}

	n := m.cfg.Slices(horizon)
	points := make([]float64, n)
	if n > 1 {
		floats.Span(points, 0, 1)
	}

	schedule := make(Schedule, 0, n)
	remaining := totalShares
	for _, t := range points[:n-1] {
		shares := math.Min(totalShares*math.Exp(-riskAversion*t)/float64(n), remaining)
		schedule = append(schedule, shares)
		remaining -= shares
	}
	schedule = append(schedule, math.Max(remaining, 0))

	return schedule, nil
}
