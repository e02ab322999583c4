package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"optexec/internal/execution"
	"optexec/internal/infrastructure"
	"optexec/internal/marketdata"
)

// BenchmarkName labels the Almgren-Chriss row next to the compared strategies
const BenchmarkName = "almgren_chriss"

// Request describes what goes into a report
type Request struct {
	OrderSize      float64                     `json:"order_size"`
	Urgency        float64                     `json:"urgency"`
	Strategy       execution.Strategy          `json:"strategy"`
	CompareSize    float64                     `json:"compare_size"`
	CompareUrgency float64                     `json:"compare_urgency"`
	Portfolio      []execution.PortfolioOrder  `json:"portfolio"`
	Correlation    execution.CorrelationMatrix `json:"correlation,omitempty"`
	Method         execution.AllocationMethod  `json:"method"`
}

// DefaultRequest is the standard daily analysis: a 1M share adaptive order, a
// 500k share comparison and a three-name portfolio
func DefaultRequest() Request {
	return Request{
		OrderSize:      1_000_000,
		Urgency:        0.7,
		Strategy:       execution.StrategyAdaptive,
		CompareSize:    500_000,
		CompareUrgency: 0.6,
		Portfolio: []execution.PortfolioOrder{
			{Symbol: "AAPL", Size: 500_000, Risk: 0.02},
			{Symbol: "GOOGL", Size: 300_000, Risk: 0.025},
			{Symbol: "MSFT", Size: 200_000, Risk: 0.018},
		},
		Method: execution.MethodOptimizer,
	}
}

// Benchmark is the Almgren-Chriss schedule priced under the report's market snapshot
type Benchmark struct {
	Schedule       execution.Schedule   `json:"schedule,omitempty"`
	Impact         execution.ImpactCost `json:"impact"`
	TotalCost      float64              `json:"total_cost"`
	CostPerShare   float64              `json:"cost_per_share"`
	CompletionTime int                  `json:"completion_time"`
	Error          string               `json:"error,omitempty"`
}

// Report is the outcome of one Generate call
type Report struct {
	ID          string                     `json:"id"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Request     Request                    `json:"request"`
	Primary     *execution.ExecutionResult `json:"primary"`
	Comparison  execution.Comparison       `json:"comparison"`
	Benchmark   Benchmark                  `json:"benchmark"`
	Portfolio   execution.PortfolioResult  `json:"portfolio"`
	Liquidity   marketdata.HiddenLiquidity `json:"liquidity"`
	Summary     BusinessSummary            `json:"summary"`
}

// Generator assembles reports from the engine and the market data feed
type Generator struct {
	orch      *execution.Orchestrator
	provider  execution.MarketDataProvider
	estimator *marketdata.LiquidityEstimator
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// NewGenerator creates a report generator. logger may be nil.
func NewGenerator(orch *execution.Orchestrator, provider execution.MarketDataProvider, estimator *marketdata.LiquidityEstimator, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		orch:      orch,
		provider:  provider,
		estimator: estimator,
		tracer:    otel.Tracer(infrastructure.InstrumentationName),
		logger:    logger.With(slog.String("component", "report")),
		now:       time.Now,
	}
}

// Generate runs every section of the report against a single market snapshot,
// so a seeded feed always produces the same report. The primary execution and
// the portfolio allocation must succeed; comparison rows and the benchmark
// record their own failures.
func (g *Generator) Generate(ctx context.Context, req Request) (*Report, error) {
	ctx, span := g.tracer.Start(ctx, "report.generate", trace.WithAttributes(
		attribute.Float64("report.order_size", req.OrderSize),
		attribute.String("report.strategy", string(req.Strategy)),
		attribute.Int("report.portfolio_orders", len(req.Portfolio)),
	))
	defer span.End()

	rep := &Report{
		ID:          uuid.New().String(),
		GeneratedAt: g.now().UTC(),
		Request:     req,
	}

	// Random draws happen here, in a fixed order, before the fan-out
	snap := takeSnapshot(ctx, g.provider)
	if g.estimator != nil {
		rep.Liquidity = g.estimator.Estimate(nil, nil)
	}
	orch, err := execution.NewOrchestrator(g.orch.Config(), snap, g.logger)
	if err != nil {
		return nil, fmt.Errorf("report orchestrator: %w", err)
	}

	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		primary, err := orch.ExecuteOrder(gctx, req.OrderSize, req.Urgency, req.Strategy)
		if err != nil {
			return fmt.Errorf("primary execution: %w", err)
		}
		rep.Primary = primary
		return nil
	})

	grp.Go(func() error {
		rep.Comparison = orch.CompareStrategies(gctx, req.CompareSize, req.CompareUrgency)
		return nil
	})

	grp.Go(func() error {
		rep.Benchmark = g.benchmark(gctx, snap, req.CompareSize)
		return nil
	})

	grp.Go(func() error {
		portfolio, err := orch.OptimizePortfolio(gctx, req.Portfolio, req.Correlation, req.Method)
		if err != nil {
			return fmt.Errorf("portfolio: %w", err)
		}
		rep.Portfolio = portfolio
		return nil
	})

	if err := grp.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.ErrorContext(ctx, "report generation failed", "error", err)
		return nil, err
	}

	rep.Summary = Summarize(rep)

	span.SetAttributes(
		attribute.String("report.id", rep.ID),
		attribute.Float64("report.savings", rep.Summary.Savings),
	)
	g.logger.InfoContext(ctx, "report generated",
		"report_id", rep.ID,
		"primary_cost", rep.Summary.PrimaryCost,
		"best_strategy", rep.Summary.BestStrategy,
		"portfolio_cost", rep.Summary.PortfolioCost,
		"savings", rep.Summary.Savings)

	return rep, nil
}

// benchmark prices an Almgren-Chriss schedule over the full horizon using the
// configured risk aversion
func (g *Generator) benchmark(ctx context.Context, provider execution.MarketDataProvider, size float64) Benchmark {
	var b Benchmark

	conditions, err := provider.MarketConditions(ctx)
	if err == nil {
		err = conditions.Validate()
	}
	if err != nil {
		b.Error = fmt.Sprintf("%v: %v", execution.ErrMarketData, err)
		return b
	}

	cfg := g.orch.Config()
	impact := g.orch.ImpactModel()

	schedule, err := impact.AlmgrenChriss(size, cfg.TimeHorizon, conditions.Volatility, conditions.AverageVolume, cfg.RiskAversion)
	if err != nil {
		b.Error = err.Error()
		return b
	}
	cost, err := impact.TotalImpactCost(schedule, conditions.AverageVolume, conditions.Volatility)
	if err != nil {
		b.Error = err.Error()
		return b
	}

	b.Schedule = schedule
	b.Impact = cost
	b.TotalCost = cost.TotalCost
	b.CostPerShare = cost.TotalCost / size
	b.CompletionTime = len(schedule) * cfg.MinTimeSlice
	return b
}
