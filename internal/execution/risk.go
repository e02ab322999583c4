package execution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// liquidityCostRate is the impact surcharge per unit of participation in liquidity-adjusted VaR
	liquidityCostRate = 0.01

	// stressImpactRate prices the whole schedule per unit of stressed volatility
	stressImpactRate = 0.02

	// timingRiskWeight converts timing variance into cost in stress tests
	timingRiskWeight = 0.1
)

// Stress scenario names used by the orchestrator
const (
	ScenarioNormal       = "normal"
	ScenarioHighVol      = "high_vol"
	ScenarioLowLiquidity = "low_liquidity"
)

// DefaultScenarios returns the scenarios every execution is tested against
func DefaultScenarios() []StressScenario {
	return []StressScenario{
		{Name: ScenarioNormal},
		{Name: ScenarioHighVol, VolatilityMultiplier: 2.0},
		{Name: ScenarioLowLiquidity, VolumeMultiplier: 0.5},
	}
}

// RiskModel computes position and execution risk measures
type RiskModel struct {
	cfg Config
}

// NewRiskModel creates a risk model
func NewRiskModel(cfg Config) *RiskModel {
	return &RiskModel{cfg: cfg}
}

// ValueAtRisk returns position * volatility * Φ⁻¹(confidence)
func (r *RiskModel) ValueAtRisk(position, volatility, confidence float64) (float64, error) {
	if !(confidence > 0 && confidence < 1) {
		return 0, fmt.Errorf("value at risk: %w: got %.4f", ErrInvalidConfidence, confidence)
	}
	return position * volatility * distuv.UnitNormal.Quantile(confidence), nil
}

// ExecutionRisk returns the timing variance remaining² * volatility² * timeRemaining,
// or 0 once no time remains
func (r *RiskModel) ExecutionRisk(remainingShares, volatility, timeRemaining float64) float64 {
	if timeRemaining <= 0 {
		return 0
	}
	return remainingShares * remainingShares * volatility * volatility * timeRemaining
}

// LiquidityAdjustedVaR adds an impact surcharge position*0.01*(position/averageVolume)
// to VaR at the configured confidence. liquidationTime must be non-negative; the
// surcharge does not scale with it.
func (r *RiskModel) LiquidityAdjustedVaR(position, volatility, averageVolume, liquidationTime float64) (float64, error) {
	if averageVolume <= 0 {
		return 0, fmt.Errorf("liquidity adjusted var: %w: got %.4f", ErrInvalidVolume, averageVolume)
	}
	if liquidationTime < 0 {
		return 0, fmt.Errorf("liquidity adjusted var: negative liquidation time %.4f", liquidationTime)
	}
	base, err := r.ValueAtRisk(position, volatility, r.cfg.VaRConfidence)
	if err != nil {
		return 0, fmt.Errorf("liquidity adjusted var: %w", err)
	}
	return base + position*liquidityCostRate*(position/averageVolume), nil
}

// Metrics computes the whole-order risk summary attached to execution results
func (r *RiskModel) Metrics(position float64, conditions MarketConditions) (RiskMetrics, error) {
	horizon := float64(r.cfg.TimeHorizon)
	varValue, err := r.ValueAtRisk(position, conditions.Volatility, r.cfg.VaRConfidence)
	if err != nil {
		return RiskMetrics{}, err
	}
	lvar, err := r.LiquidityAdjustedVaR(position, conditions.Volatility, conditions.AverageVolume, horizon)
	if err != nil {
		return RiskMetrics{}, err
	}
	return RiskMetrics{
		ValueAtRisk:          varValue,
		LiquidityAdjustedVaR: lvar,
		ExecutionRisk:        r.ExecutionRisk(position, conditions.Volatility, 1.0),
		Confidence:           r.cfg.VaRConfidence,
	}, nil
}

// StressTest evaluates a schedule under each scenario applied to base conditions.
//
// For each scenario:
//
//	market_impact_cost = sum(schedule) * stressed_volatility * 0.02
//	timing_risk        = ExecutionRisk(sum(schedule), stressed_volatility, 1)
//	total_cost         = market_impact_cost + 0.1 * timing_risk
//
// Stressed volume is reported but does not enter the cost.
func (r *RiskModel) StressTest(schedule Schedule, base MarketConditions, scenarios []StressScenario) (StressTestResult, error) {
	total := schedule.Sum()
	results := make(StressTestResult, len(scenarios))

	for _, sc := range scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("stress test: %w: scenario without a name", ErrInvalidScenario)
		}
		if _, dup := results[sc.Name]; dup {
			return nil, fmt.Errorf("stress test: %w: duplicate scenario %q", ErrInvalidScenario, sc.Name)
		}
		volMult, volumeMult := sc.Multipliers()
		if volMult < 0 || volumeMult < 0 || math.IsNaN(volMult) || math.IsNaN(volumeMult) {
			return nil, fmt.Errorf("stress test: %w: %q has negative multipliers", ErrInvalidScenario, sc.Name)
		}

		stressedVol := base.Volatility * volMult
		impact := total * stressedVol * stressImpactRate
		timing := r.ExecutionRisk(total, stressedVol, 1.0)

		results[sc.Name] = StressResult{
			MarketImpactCost:   impact,
			TimingRisk:         timing,
			TotalCost:          impact + timingRiskWeight*timing,
			StressedVolatility: stressedVol,
			StressedVolume:     base.AverageVolume * volumeMult,
		}
	}

	return results, nil
}
