package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Orchestrator composes schedule generation, pricing and risk testing
type Orchestrator struct {
	cfg       Config
	provider  MarketDataProvider
	impact    *ImpactModel
	generator *Generator
	risk      *RiskModel
	allocator *Allocator
	scenarios []StressScenario
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator backed by a market data provider
func NewOrchestrator(cfg Config, provider MarketDataProvider, logger *slog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, errors.New("market data provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		cfg:       cfg,
		provider:  provider,
		impact:    NewImpactModel(cfg),
		generator: NewGenerator(cfg),
		risk:      NewRiskModel(cfg),
		allocator: NewAllocator(cfg, logger),
		scenarios: DefaultScenarios(),
		logger:    logger,
	}, nil
}

// Config returns the engine configuration
func (o *Orchestrator) Config() Config { return o.cfg }

// ImpactModel returns the impact model used for pricing
func (o *Orchestrator) ImpactModel() *ImpactModel { return o.impact }

// RiskModel returns the risk model used for stress testing
func (o *Orchestrator) RiskModel() *RiskModel { return o.risk }

// ExecuteOrder schedules, prices and stress tests an order of orderSize shares.
//
// Steps:
//  1. validate the order
//  2. take a market snapshot from the provider
//  3. generate a plan for the strategy
//  4. fall back to TWAP over the full horizon if the plan is not usable
//  5. price the schedule
//  6. stress test it under the normal, high_vol and low_liquidity scenarios
func (o *Orchestrator) ExecuteOrder(ctx context.Context, orderSize, urgency float64, strategy Strategy) (*ExecutionResult, error) {
	order := Order{Size: orderSize, Urgency: urgency}
	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("execute order: %w", err)
	}
	if !strategy.IsValid() {
		return nil, fmt.Errorf("execute order: %w: %q", ErrUnknownStrategy, strategy)
	}

	conditions, err := o.provider.MarketConditions(ctx)
	if err != nil {
		return nil, fmt.Errorf("execute order: %w: %w", ErrMarketData, err)
	}
	if err := conditions.Validate(); err != nil {
		return nil, fmt.Errorf("execute order: %w", err)
	}

	o.logger.DebugContext(ctx, "executing order",
		"order_size", orderSize,
		"urgency", urgency,
		"strategy", strategy,
		"volatility", conditions.Volatility,
		"average_volume", conditions.AverageVolume,
		"momentum", conditions.Momentum)

	plan := o.plan(ctx, strategy, order, conditions)

	result := &ExecutionResult{
		Strategy:         strategy,
		Branch:           plan.Branch,
		MarketConditions: conditions,
	}

	if !plan.OK() {
		reason := plan.Reason()
		o.logger.WarnContext(ctx, "schedule generation failed, falling back to twap",
			"strategy", strategy,
			"reason", reason)

		schedule, err := o.generator.TWAP(orderSize, o.cfg.Slices(o.cfg.TimeHorizon))
		if err != nil {
			return nil, fmt.Errorf("execute order: twap fallback: %w", err)
		}
		plan = Plan{Strategy: StrategyTWAP, Horizon: o.cfg.TimeHorizon, Schedule: schedule}
		result.FallbackUsed = true
		result.FallbackReason = reason
	}
	result.Schedule = plan.Schedule
	result.CompletionTime = len(plan.Schedule) * o.cfg.MinTimeSlice

	cost, err := o.impact.TotalImpactCost(plan.Schedule, conditions.AverageVolume, conditions.Volatility)
	if err != nil {
		return nil, fmt.Errorf("execute order: %w", err)
	}
	result.Impact = cost
	result.TotalCost = cost.TotalCost
	result.CostPerShare = cost.TotalCost / orderSize

	result.RiskAnalysis, err = o.risk.StressTest(plan.Schedule, conditions, o.scenarios)
	if err != nil {
		return nil, fmt.Errorf("execute order: %w", err)
	}
	result.RiskMetrics, err = o.risk.Metrics(orderSize, conditions)
	if err != nil {
		return nil, fmt.Errorf("execute order: %w", err)
	}

	o.logger.InfoContext(ctx, "order executed",
		"strategy", strategy,
		"branch", plan.Branch,
		"slices", len(plan.Schedule),
		"total_cost", result.TotalCost,
		"cost_per_share", result.CostPerShare,
		"fallback", result.FallbackUsed)

	return result, nil
}

// plan dispatches to the generator for a strategy. Failures are carried in the Plan.
func (o *Orchestrator) plan(ctx context.Context, strategy Strategy, order Order, conditions MarketConditions) Plan {
	p := Plan{Strategy: strategy, Horizon: o.cfg.TimeHorizon}

	switch strategy {
	case StrategyVWAP:
		buckets := o.cfg.Slices(o.cfg.TimeHorizon)
		profile, err := o.volumeProfile(ctx)
		if err != nil {
			p.Err = err
			return p
		}
		p.Schedule, p.Err = o.generator.VWAP(order.Size, buckets, profile)

	case StrategyTWAP:
		p.Schedule, p.Err = o.generator.TWAP(order.Size, o.cfg.Slices(o.cfg.TimeHorizon))

	case StrategyImplementationShortfall:
		p.Schedule, p.Err = o.generator.ImplementationShortfall(order.Size, o.cfg.TimeHorizon,
			conditions.Volatility, conditions.AverageVolume, order.Urgency)

	case StrategyAdaptive:
		p = o.generator.Adaptive(order.Size, conditions, order.Urgency)
	}

	return p
}

// profileDays is how much history the VWAP profile is built from
const profileDays = 1

// volumeProfile aggregates the most recent day of per-minute volume into slices
func (o *Orchestrator) volumeProfile(ctx context.Context) ([]float64, error) {
	history, err := o.provider.HistoricalVolume(ctx, profileDays)
	if err != nil {
		return nil, fmt.Errorf("%w: historical volume: %w", ErrMarketData, err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("historical volume: %w: no history returned", ErrInvalidVolume)
	}
	return AggregateVolume(history[0], o.cfg.MinTimeSlice)
}

// CompareStrategies runs ExecuteOrder once per strategy in ComparisonOrder. A failing
// strategy records its error and does not stop the others.
func (o *Orchestrator) CompareStrategies(ctx context.Context, orderSize, urgency float64) Comparison {
	cmp := Comparison{
		OrderSize: orderSize,
		Urgency:   urgency,
		Outcomes:  make([]StrategyOutcome, 0, len(ComparisonOrder)),
	}

	for _, strategy := range ComparisonOrder {
		outcome := StrategyOutcome{Strategy: strategy}

		result, err := o.ExecuteOrder(ctx, orderSize, urgency, strategy)
		if err != nil {
			o.logger.WarnContext(ctx, "strategy failed during comparison",
				"strategy", strategy,
				"error", err)
			outcome.Error = err.Error()
		} else {
			outcome.TotalCost = result.TotalCost
			outcome.CostPerShare = result.CostPerShare
			outcome.CompletionTime = result.CompletionTime
			outcome.FallbackUsed = result.FallbackUsed
		}
		cmp.Outcomes = append(cmp.Outcomes, outcome)
	}

	return cmp
}

// OptimizePortfolio allocates a multi-asset order. MethodProportional ignores corr.
func (o *Orchestrator) OptimizePortfolio(ctx context.Context, orders []PortfolioOrder, corr CorrelationMatrix, method AllocationMethod) (PortfolioResult, error) {
	var (
		result PortfolioResult
		err    error
	)
	switch method {
	case MethodOptimizer:
		result, err = o.allocator.Optimize(orders, corr)
	case MethodProportional, "":
		result, err = o.allocator.Proportional(orders)
	default:
		return PortfolioResult{}, fmt.Errorf("optimize portfolio: %w %q", ErrUnknownAllocationMethod, method)
	}
	if err != nil {
		return PortfolioResult{}, err
	}

	o.logger.InfoContext(ctx, "portfolio allocated",
		"method", result.Method,
		"orders", len(orders),
		"objective", result.Objective,
		"total_cost", result.TotalCost,
		"success", result.Success)

	return result, nil
}
