package execution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Implementation shortfall decay tiers keyed on urgency
const (
	aggressiveDecay = 0.8
	moderateDecay   = 0.5
	patientDecay    = 0.2

	aggressiveUrgency = 0.8
	moderateUrgency   = 0.5
)

// Branch records which path the adaptive policy took
type Branch string

const (
	// BranchUrgent runs implementation shortfall over half the horizon
	BranchUrgent Branch = "implementation_shortfall_half_horizon"
	// BranchMomentum runs implementation shortfall over the full horizon
	BranchMomentum Branch = "implementation_shortfall_full_horizon"
	// BranchNeutral runs VWAP over a flat volume pattern
	BranchNeutral Branch = "vwap_flat"
)

// Plan is the explicit outcome of schedule generation. A plan that is not OK tells
// the orchestrator to fall back to TWAP.
type Plan struct {
	Strategy Strategy
	Branch   Branch
	Horizon  int
	Schedule Schedule
	Err      error
}

// OK reports whether the plan produced a usable schedule
func (p Plan) OK() bool {
	return p.Err == nil && len(p.Schedule) > 0
}

// Reason describes why a plan is not usable
func (p Plan) Reason() string {
	switch {
	case p.Err != nil:
		return p.Err.Error()
	case len(p.Schedule) == 0:
		return "empty schedule"
	}
	return ""
}

// Generator produces schedules under the supported policies. It is stateless apart
// from its configuration.
type Generator struct {
	cfg Config
}

// NewGenerator creates a schedule generator
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// VolumeWeights normalizes a historical volume profile to buckets weights summing to 1.
// A profile shorter than buckets is extended by repeating its last value.
func VolumeWeights(buckets int, historical []float64) ([]float64, error) {
	if buckets <= 0 {
		return nil, fmt.Errorf("volume weights: %w: got %d", ErrInvalidSlices, buckets)
	}
	if len(historical) == 0 {
		return nil, fmt.Errorf("volume weights: %w: empty volume history", ErrInvalidVolume)
	}

	weights := make([]float64, buckets)
	last := historical[len(historical)-1]
	for i := range weights {
		if i < len(historical) {
			weights[i] = historical[i]
		} else {
			weights[i] = last
		}
		if weights[i] < 0 || math.IsNaN(weights[i]) || math.IsInf(weights[i], 0) {
			return nil, fmt.Errorf("volume weights: %w: bucket %d has volume %.4f", ErrInvalidVolume, i, weights[i])
		}
	}

	total := floats.Sum(weights)
	if total <= 0 {
		return nil, fmt.Errorf("volume weights: %w: volume history sums to zero", ErrInvalidVolume)
	}
	floats.Scale(1/total, weights)
	return weights, nil
}

// VWAP trades in proportion to a historical volume profile
func (g *Generator) VWAP(totalShares float64, buckets int, historical []float64) (Schedule, error) {
	if totalShares <= 0 {
		return nil, fmt.Errorf("vwap: %w: got %.4f", ErrInvalidOrderSize, totalShares)
	}
	weights, err := VolumeWeights(buckets, historical)
	if err != nil {
		return nil, fmt.Errorf("vwap: %w", err)
	}
	floats.Scale(totalShares, weights)
	return Schedule(weights), nil
}

// TWAP splits the order evenly across buckets
func (g *Generator) TWAP(totalShares float64, buckets int) (Schedule, error) {
	if totalShares <= 0 {
		return nil, fmt.Errorf("twap: %w: got %.4f", ErrInvalidOrderSize, totalShares)
	}
	if buckets <= 0 {
		return nil, fmt.Errorf("twap: %w: got %d", ErrInvalidSlices, buckets)
	}
	schedule := make(Schedule, buckets)
	for i := range schedule {
		schedule[i] = totalShares / float64(buckets)
	}
	return schedule, nil
}

// DecayRate maps urgency onto the implementation shortfall decay tier
func DecayRate(urgency float64) float64 {
	switch {
	case urgency > aggressiveUrgency:
		return aggressiveDecay
	case urgency > moderateUrgency:
		return moderateDecay
	default:
		return patientDecay
	}
}

// ImplementationShortfall front-loads execution according to urgency.
//
// Each non-final slice trades remaining*decay/n, capped at
// averageVolume*MaxParticipation. The final slice trades all remaining shares.
// volatility does not change the slice sizes; it is accepted so callers can price the
// schedule with the same snapshot.
func (g *Generator) ImplementationShortfall(totalShares float64, horizon int, volatility, averageVolume, urgency float64) (Schedule, error) {
	if totalShares <= 0 {
		return nil, fmt.Errorf("implementation shortfall: %w: got %.4f", ErrInvalidOrderSize, totalShares)
	}
	if averageVolume <= 0 {
		return nil, fmt.Errorf("implementation shortfall: %w: got %.4f", ErrInvalidVolume, averageVolume)
	}

	n := g.cfg.Slices(horizon)
	decay := DecayRate(urgency)
	limit := averageVolume * g.cfg.MaxParticipation

	schedule := make(Schedule, n)
	remaining := totalShares
	for i := 0; i < n-1; i++ {
		shares := math.Min(remaining*decay/float64(n), limit)
		schedule[i] = shares
		remaining -= shares
	}
	schedule[n-1] = remaining

	return schedule, nil
}

// Adaptive chooses a policy from urgency and momentum:
//
//   - urgency > 0.8: implementation shortfall over half the horizon
//   - momentum > 0: implementation shortfall over the full horizon
//   - otherwise: VWAP over a flat volume pattern
func (g *Generator) Adaptive(totalShares float64, conditions MarketConditions, urgency float64) Plan {
	plan := Plan{Strategy: StrategyAdaptive}

	switch {
	case urgency > aggressiveUrgency:
		plan.Branch = BranchUrgent
		plan.Horizon = g.cfg.TimeHorizon / 2
		plan.Schedule, plan.Err = g.ImplementationShortfall(totalShares, plan.Horizon,
			conditions.Volatility, conditions.AverageVolume, urgency)
	case conditions.Momentum > 0:
		plan.Branch = BranchMomentum
		plan.Horizon = g.cfg.TimeHorizon
		plan.Schedule, plan.Err = g.ImplementationShortfall(totalShares, plan.Horizon,
			conditions.Volatility, conditions.AverageVolume, urgency)
	default:
		plan.Branch = BranchNeutral
		plan.Horizon = g.cfg.TimeHorizon
		buckets := g.cfg.Slices(g.cfg.TimeHorizon)
		flat := make([]float64, buckets)
		for i := range flat {
			flat[i] = 1
		}
		plan.Schedule, plan.Err = g.VWAP(totalShares, buckets, flat)
	}

	return plan
}

// AggregateVolume sums a per-minute volume row into buckets of sliceMinutes each.
// A trailing partial bucket is dropped.
func AggregateVolume(perMinute []float64, sliceMinutes int) ([]float64, error) {
	if sliceMinutes <= 0 {
		return nil, fmt.Errorf("aggregate volume: %w: slice of %d minutes", ErrInvalidSlices, sliceMinutes)
	}
	n := len(perMinute) / sliceMinutes
	if n == 0 {
		return nil, fmt.Errorf("aggregate volume: %w: %d minutes of history for %d minute slices",
			ErrInvalidVolume, len(perMinute), sliceMinutes)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = floats.Sum(perMinute[i*sliceMinutes : (i+1)*sliceMinutes])
	}
	return out, nil
}
