package execution

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/optimize"
)

const (
	// defaultCorrelation is the off-diagonal correlation assumed when none is supplied
	defaultCorrelation = 0.3

	// seedDivisor converts order size into the optimizer's starting execution time
	seedDivisor = 10_000.0

	// proportional allocation heuristics
	proportionalTimeDivisor = 1_000.0
	proportionalMinMinutes  = 60.0
	proportionalCostRate    = 0.001
)

// AllocationMethod selects how a portfolio is allocated
type AllocationMethod string

const (
	MethodProportional AllocationMethod = "proportional"
	MethodOptimizer    AllocationMethod = "optimizer"
)

// ParseAllocationMethod converts a method name, defaulting to proportional when empty
func ParseAllocationMethod(name string) (AllocationMethod, error) {
	switch AllocationMethod(name) {
	case "", MethodProportional:
		return MethodProportional, nil
	case MethodOptimizer:
		return MethodOptimizer, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownAllocationMethod, name)
}

// PortfolioOrder is one leg of a multi-asset execution
type PortfolioOrder struct {
	Symbol string  `json:"symbol"`
	Size   float64 `json:"size"`
	Risk   float64 `json:"risk"`
}

// SymbolAllocation is the allocation for one symbol
type SymbolAllocation struct {
	Symbol           string  `json:"symbol"`
	Allocation       float64 `json:"allocation"`
	ExecutionTime    float64 `json:"execution_time"`
	EstimatedCost    float64 `json:"estimated_cost"`
	RiskContribution float64 `json:"risk_contribution"`
}

// PortfolioResult is the outcome of a portfolio allocation
type PortfolioResult struct {
	Method      AllocationMethod   `json:"method"`
	Allocations []SymbolAllocation `json:"allocations"`
	Objective   float64            `json:"objective"`
	TotalCost   float64            `json:"total_cost"`
	Success     bool               `json:"success"`
	Status      string             `json:"status"`
	Iterations  int                `json:"iterations"`
}

// Err returns ErrOptimizationFailure when the allocation did not converge
func (r PortfolioResult) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("%w: status %s after %d iterations", ErrOptimizationFailure, r.Status, r.Iterations)
}

// Allocation returns the entry for a symbol
func (r PortfolioResult) Allocation(symbol string) (SymbolAllocation, bool) {
	for _, a := range r.Allocations {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return SymbolAllocation{}, false
}

// CorrelationMatrix is a symmetric N×N matrix with unit diagonal
type CorrelationMatrix [][]float64

// DefaultCorrelation returns an n×n matrix with 1.0 on the diagonal and 0.3 elsewhere
func DefaultCorrelation(n int) CorrelationMatrix {
	m := make(CorrelationMatrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i == j {
				m[i][j] = 1.0
			} else {
				m[i][j] = defaultCorrelation
			}
		}
	}
	return m
}

// Validate checks shape, symmetry, unit diagonal and the [-1,1] range
func (m CorrelationMatrix) Validate(n int) error {
	const tol = 1e-9
	if len(m) != n {
		return fmt.Errorf("%w: %d rows for %d orders", ErrInvalidCorrelation, len(m), n)
	}
	for i := range m {
		if len(m[i]) != n {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidCorrelation, i, len(m[i]), n)
		}
		if math.Abs(m[i][i]-1) > tol {
			return fmt.Errorf("%w: diagonal entry %d is %.4f", ErrInvalidCorrelation, i, m[i][i])
		}
		for j := range m[i] {
			v := m[i][j]
			if math.IsNaN(v) || v < -1-tol || v > 1+tol {
				return fmt.Errorf("%w: entry (%d,%d) = %.4f out of range", ErrInvalidCorrelation, i, j, v)
			}
			if math.Abs(v-m[j][i]) > tol {
				return fmt.Errorf("%w: not symmetric at (%d,%d)", ErrInvalidCorrelation, i, j)
			}
		}
	}
	return nil
}

// Allocator distributes execution time across correlated orders
type Allocator struct {
	maxIterations int
	logger        *slog.Logger
}

// NewAllocator creates a portfolio allocator
func NewAllocator(cfg Config, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		maxIterations: cfg.OptimizerMaxIterations,
		logger:        logger,
	}
}

func validateOrders(orders []PortfolioOrder) (float64, error) {
	if len(orders) == 0 {
		return 0, ErrNoOrders
	}
	total := 0.0
	seen := make(map[string]struct{}, len(orders))
	for i, o := range orders {
		if o.Symbol == "" {
			return 0, fmt.Errorf("%w: order %d has no symbol", ErrInvalidPortfolioOrder, i)
		}
		if _, dup := seen[o.Symbol]; dup {
			return 0, fmt.Errorf("%w: duplicate symbol %s", ErrInvalidPortfolioOrder, o.Symbol)
		}
		seen[o.Symbol] = struct{}{}
		if !isFinite(o.Size) || o.Size <= 0 {
			return 0, fmt.Errorf("%s: %w: got %.4f", o.Symbol, ErrInvalidOrderSize, o.Size)
		}
		if !isFinite(o.Risk) || o.Risk < 0 {
			return 0, fmt.Errorf("%w: %s has negative risk coefficient %.4f", ErrInvalidPortfolioOrder, o.Symbol, o.Risk)
		}
		total += o.Size
	}
	return total, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// projectBox clamps every coordinate into the execution time bounds
func projectBox(dst, x []float64) {
	for i, v := range x {
		dst[i] = clamp(v, MinExecutionMinutes, MaxExecutionMinutes)
	}
}

// riskContributions returns each order's row of Σ_j risk_i·risk_j·corr_ij·min(t_i,t_j)
func riskContributions(orders []PortfolioOrder, corr CorrelationMatrix, times []float64) []float64 {
	out := make([]float64, len(orders))
	for i := range orders {
		for j := range orders {
			out[i] += orders[i].Risk * orders[j].Risk * corr[i][j] * math.Min(times[i], times[j])
		}
	}
	return out
}

func portfolioObjective(orders []PortfolioOrder, corr CorrelationMatrix, times []float64) float64 {
	total := 0.0
	for _, c := range riskContributions(orders, corr, times) {
		total += c
	}
	return total
}

// converged maps optimizer termination onto success
func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.FunctionThreshold, optimize.FunctionConvergence,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

// Optimize minimizes Σ_i Σ_j risk_i·risk_j·corr_ij·min(t_i,t_j) with every t_i in
// [1,390] minutes, starting from clamp(size_i/10000, 1, 390).
//
// The min term makes the objective non-smooth, so a derivative-free Nelder-Mead search
// is used and every candidate is projected into the bounds. The search is capped by
// the configured iteration count. Non-convergence is not an error: the last feasible
// point comes back with Success=false (see PortfolioResult.Err). A nil corr uses
// DefaultCorrelation.
func (a *Allocator) Optimize(orders []PortfolioOrder, corr CorrelationMatrix) (PortfolioResult, error) {
	total, err := validateOrders(orders)
	if err != nil {
		return PortfolioResult{}, fmt.Errorf("optimize portfolio: %w", err)
	}
	if corr == nil {
		corr = DefaultCorrelation(len(orders))
	}
	if err := corr.Validate(len(orders)); err != nil {
		return PortfolioResult{}, fmt.Errorf("optimize portfolio: %w", err)
	}

	seed := make([]float64, len(orders))
	for i, o := range orders {
		seed[i] = clamp(o.Size/seedDivisor, MinExecutionMinutes, MaxExecutionMinutes)
	}

	result := PortfolioResult{Method: MethodOptimizer}
	times := seed

	if len(orders) == 1 {
		// A single asset has no cross term to trade off against
		result.Success = true
		result.Status = optimize.Success.String()
	} else {
		buf := make([]float64, len(orders))
		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				projectBox(buf, x)
				return portfolioObjective(orders, corr, buf)
			},
		}
		settings := &optimize.Settings{
			MajorIterations: a.maxIterations,
			FuncEvaluations: a.maxIterations * (len(orders) + 1) * 4,
		}

		res, err := optimize.Minimize(problem, seed, settings, &optimize.NelderMead{})
		if res == nil {
			a.logger.Warn("portfolio optimizer returned no result, keeping seed", "error", err)
			result.Status = optimize.Failure.String()
		} else {
			times = make([]float64, len(orders))
			projectBox(times, res.X)
			result.Status = res.Status.String()
			result.Iterations = res.MajorIterations
			result.Success = err == nil && converged(res.Status)
			if !result.Success {
				a.logger.Warn("portfolio optimizer did not converge",
					"status", result.Status,
					"iterations", result.Iterations,
					"error", err)
			}
		}
	}

	contributions := riskContributions(orders, corr, times)
	result.Allocations = make([]SymbolAllocation, len(orders))
	for i, o := range orders {
		result.Allocations[i] = SymbolAllocation{
			Symbol:           o.Symbol,
			Allocation:       o.Size / total,
			ExecutionTime:    times[i],
			EstimatedCost:    o.Size * proportionalCostRate * o.Risk,
			RiskContribution: contributions[i],
		}
		result.Objective += contributions[i]
		result.TotalCost += result.Allocations[i].EstimatedCost
	}

	return result, nil
}

// Proportional allocates in closed form:
//
//	allocation     = size / Σ size
//	execution_time = clamp(size/1000, 60, 390)
//	estimated_cost = size * 0.001 * risk
//
// Risk contributions use the default correlation.
func (a *Allocator) Proportional(orders []PortfolioOrder) (PortfolioResult, error) {
	total, err := validateOrders(orders)
	if err != nil {
		return PortfolioResult{}, fmt.Errorf("proportional allocation: %w", err)
	}

	times := make([]float64, len(orders))
	for i, o := range orders {
		times[i] = clamp(o.Size/proportionalTimeDivisor, proportionalMinMinutes, MaxExecutionMinutes)
	}
	contributions := riskContributions(orders, DefaultCorrelation(len(orders)), times)

	result := PortfolioResult{
		Method:      MethodProportional,
		Allocations: make([]SymbolAllocation, len(orders)),
		Success:     true,
		Status:      "closed form",
	}
	for i, o := range orders {
		result.Allocations[i] = SymbolAllocation{
			Symbol:           o.Symbol,
			Allocation:       o.Size / total,
			ExecutionTime:    times[i],
			EstimatedCost:    o.Size * proportionalCostRate * o.Risk,
			RiskContribution: contributions[i],
		}
		result.Objective += contributions[i]
		result.TotalCost += result.Allocations[i].EstimatedCost
	}
	return result, nil
}
