package report

// Business summary constants
const (
	// NaiveImpactRate is the rule-of-thumb cost of trading without a schedule
	NaiveImpactRate = 0.02
	// TradingDaysPerYear annualizes daily savings
	TradingDaysPerYear = 250
)

// BusinessSummary compares the primary execution with a naive estimate
type BusinessSummary struct {
	PrimaryCost       float64 `json:"primary_cost"`
	NaiveEstimate     float64 `json:"naive_estimate"`
	Savings           float64 `json:"savings"`
	SavingsRatio      float64 `json:"savings_ratio"`
	AnnualizedSavings float64 `json:"annualized_savings"`
	PortfolioCost     float64 `json:"portfolio_cost"`
	BestStrategy      string  `json:"best_strategy,omitempty"`
	BestStrategyCost  float64 `json:"best_strategy_cost"`
}

// Summarize derives the business summary. The naive estimate is 2% of the
// primary order size; savings are annualized over 250 trading days.
func Summarize(r *Report) BusinessSummary {
	var s BusinessSummary

	if r.Primary != nil {
		s.PrimaryCost = r.Primary.TotalCost
	}
	s.NaiveEstimate = r.Request.OrderSize * NaiveImpactRate
	s.Savings = s.NaiveEstimate - s.PrimaryCost
	if s.NaiveEstimate > 0 {
		s.SavingsRatio = s.Savings / s.NaiveEstimate
	}
	s.AnnualizedSavings = s.Savings * TradingDaysPerYear

	s.PortfolioCost = r.Portfolio.TotalCost

	if best, ok := r.Comparison.Best(); ok {
		s.BestStrategy = string(best.Strategy)
		s.BestStrategyCost = best.TotalCost
	}

	return s
}
