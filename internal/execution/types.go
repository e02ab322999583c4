package execution

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Strategy names a schedule generation policy
type Strategy string

const (
	StrategyVWAP                    Strategy = "vwap"
	StrategyTWAP                    Strategy = "twap"
	StrategyImplementationShortfall Strategy = "implementation_shortfall"
	StrategyAdaptive                Strategy = "adaptive"
)

// ComparisonOrder is the order in which CompareStrategies runs the policies
var ComparisonOrder = []Strategy{
	StrategyAdaptive,
	StrategyVWAP,
	StrategyTWAP,
	StrategyImplementationShortfall,
}

// ParseStrategy converts a policy name into a Strategy
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// IsValid reports whether s is one of the known policies
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyVWAP, StrategyTWAP, StrategyImplementationShortfall, StrategyAdaptive:
		return true
	}
	return false
}

// Order is a single-asset request to buy or sell Size shares
type Order struct {
	Symbol  string  `json:"symbol"`
	Size    float64 `json:"size"`
	Urgency float64 `json:"urgency"`
	Risk    float64 `json:"risk"`
}

// Validate checks the order size and urgency
func (o Order) Validate() error {
	if !isFinite(o.Size) || o.Size <= 0 {
		return fmt.Errorf("%w: got %.4f", ErrInvalidOrderSize, o.Size)
	}
	if !isFinite(o.Urgency) || o.Urgency < 0 || o.Urgency > 1 {
		return fmt.Errorf("%w: got %.4f", ErrInvalidUrgency, o.Urgency)
	}
	return nil
}

// MarketConditions is an immutable snapshot of the market for one operation
type MarketConditions struct {
	Volatility    float64   `json:"volatility"`
	AverageVolume float64   `json:"average_volume"`
	Momentum      float64   `json:"momentum"`
	Spread        float64   `json:"spread"`
	Timestamp     time.Time `json:"timestamp"`
}

// Validate checks the snapshot can be used for pricing
func (m MarketConditions) Validate() error {
	if !isFinite(m.AverageVolume) || m.AverageVolume <= 0 {
		return fmt.Errorf("%w: got %.4f", ErrInvalidVolume, m.AverageVolume)
	}
	if !isFinite(m.Volatility) || m.Volatility < 0 {
		return fmt.Errorf("%w: volatility %.6f", ErrInvalidConditions, m.Volatility)
	}
	if !isFinite(m.Spread) || m.Spread < 0 {
		return fmt.Errorf("%w: spread %.6f", ErrInvalidConditions, m.Spread)
	}
	if !isFinite(m.Momentum) {
		return fmt.Errorf("%w: momentum %.6f", ErrInvalidConditions, m.Momentum)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Schedule is the ordered per-slice share quantities of an execution
type Schedule []float64

// Sum returns the total shares in the schedule
func (s Schedule) Sum() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Sum(s)
}

// IsValid reports whether every slice is non-negative and finite
func (s Schedule) IsValid() bool {
	for _, v := range s {
		if v < 0 || !isFinite(v) {
			return false
		}
	}
	return true
}

// ImpactCost is the cost breakdown of a schedule
type ImpactCost struct {
	PermanentCost float64 `json:"permanent_cost"`
	TemporaryCost float64 `json:"temporary_cost"`
	TotalCost     float64 `json:"total_cost"`
}

// StressScenario is a named set of multipliers applied to base conditions.
// A zero multiplier is unset and read as 1.0.
type StressScenario struct {
	Name                 string  `json:"name"`
	VolatilityMultiplier float64 `json:"volatility_multiplier,omitempty"`
	VolumeMultiplier     float64 `json:"volume_multiplier,omitempty"`
}

// Multipliers returns the effective volatility and volume multipliers
func (s StressScenario) Multipliers() (vol, volume float64) {
	vol, volume = s.VolatilityMultiplier, s.VolumeMultiplier
	if vol == 0 {
		vol = 1.0
	}
	if volume == 0 {
		volume = 1.0
	}
	return vol, volume
}

// StressResult is the outcome of one stress scenario
type StressResult struct {
	MarketImpactCost   float64 `json:"market_impact_cost"`
	TimingRisk         float64 `json:"timing_risk"`
	TotalCost          float64 `json:"total_cost"`
	StressedVolatility float64 `json:"stressed_volatility"`
	StressedVolume     float64 `json:"stressed_volume"`
}

// StressTestResult maps scenario names to their outcomes
type StressTestResult map[string]StressResult

// RiskMetrics summarizes position risk for a whole order
type RiskMetrics struct {
	ValueAtRisk          float64 `json:"value_at_risk"`
	LiquidityAdjustedVaR float64 `json:"liquidity_adjusted_var"`
	ExecutionRisk        float64 `json:"execution_risk"`
	Confidence           float64 `json:"confidence"`
}

// ExecutionResult is the consolidated output of ExecuteOrder
type ExecutionResult struct {
	Strategy         Strategy         `json:"strategy"`
	Branch           Branch           `json:"branch,omitempty"`
	Schedule         Schedule         `json:"schedule"`
	Impact           ImpactCost       `json:"impact"`
	TotalCost        float64          `json:"total_cost"`
	CostPerShare     float64          `json:"cost_per_share"`
	CompletionTime   int              `json:"completion_time"`
	RiskAnalysis     StressTestResult `json:"risk_analysis"`
	RiskMetrics      RiskMetrics      `json:"risk_metrics"`
	MarketConditions MarketConditions `json:"market_conditions"`
	FallbackUsed     bool             `json:"fallback_used"`
	FallbackReason   string           `json:"fallback_reason,omitempty"`
}

// StrategyOutcome is one row of a strategy comparison
type StrategyOutcome struct {
	Strategy       Strategy `json:"strategy"`
	TotalCost      float64  `json:"total_cost"`
	CostPerShare   float64  `json:"cost_per_share"`
	CompletionTime int      `json:"completion_time"`
	FallbackUsed   bool     `json:"fallback_used,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Failed reports whether the strategy could not be evaluated
func (o StrategyOutcome) Failed() bool {
	return o.Error != ""
}

// Comparison collects per-strategy outcomes in ComparisonOrder
type Comparison struct {
	OrderSize float64           `json:"order_size"`
	Urgency   float64           `json:"urgency"`
	Outcomes  []StrategyOutcome `json:"outcomes"`
}

// Best returns the successful outcome with the lowest total cost
func (c Comparison) Best() (StrategyOutcome, bool) {
	var best StrategyOutcome
	found := false
	for _, o := range c.Outcomes {
		if o.Failed() {
			continue
		}
		if !found || o.TotalCost < best.TotalCost {
			best = o
			found = true
		}
	}
	return best, found
}

// Outcome returns the row for a strategy
func (c Comparison) Outcome(s Strategy) (StrategyOutcome, bool) {
	for _, o := range c.Outcomes {
		if o.Strategy == s {
			return o, true
		}
	}
	return StrategyOutcome{}, false
}
