// Package execution implements the optimal execution cost engine.
//
// The engine estimates and minimizes the cost of working a large equity order by
// splitting it into a schedule of per-slice share quantities, trading market impact
// against timing risk.
//
// # Core Components
//
//  1. ImpactModel: permanent (linear) and temporary (square-root) impact, total cost of a
//     schedule, and an exponential-decay Almgren-Chriss schedule
//  2. Generator: VWAP, TWAP, implementation shortfall and the adaptive meta-policy
//  3. RiskModel: value at risk, execution (timing) risk, liquidity-adjusted VaR and
//     named stress scenarios
//  4. Allocator: correlation-aware portfolio time allocation with a bounded optimizer,
//     plus a closed-form proportional allocation
//  5. Orchestrator: selects a policy, prices it, stress tests it and returns one result
//
// # Architecture
//
//   - types.go: orders, market conditions, schedules and result records
//   - config.go: engine tunables and their defaults
//   - errors.go: sentinel errors matched with errors.Is
//   - provider.go: market data collaborator interface
//   - impact.go: market impact model
//   - schedule.go: schedule generation policies and the Plan result
//   - risk.go: risk model and stress testing
//   - portfolio.go: portfolio allocation
//   - orchestrator.go: order execution and strategy comparison
//
// # Schedules
//
// Every policy produces a Schedule whose entries are non-negative and sum to the order
// size within 1e-6. Policies that decay (implementation shortfall, Almgren-Chriss) give
// the final slice whatever inventory is left, so the sum holds structurally.
//
// # Usage Example
//
//	cfg := execution.DefaultConfig()
//	orch, err := execution.NewOrchestrator(cfg, feed, logger)
//	if err != nil {
//	    return err
//	}
//
//	result, err := orch.ExecuteOrder(ctx, 1_000_000, 0.7, execution.StrategyAdaptive)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("cost %.2f (%.4f/share)\n", result.TotalCost, result.CostPerShare)
//
// # Determinism
//
// Market conditions and historical volumes come from a MarketDataProvider. The engine
// itself never samples random data, so every computation is reproducible given the
// provider's snapshot.
package execution
