package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "optexec/internal/errors"
	"optexec/internal/execution"
	"optexec/internal/infrastructure"
	ws "optexec/internal/websocket"
)

// ExecutionService runs engine operations with tracing, metrics and websocket
// notifications around them
type ExecutionService struct {
	orchestrator *execution.Orchestrator
	provider     execution.MarketDataProvider
	source       string
	publisher    ws.Publisher
	metrics      *infrastructure.ExecutionMetrics
	tracer       trace.Tracer
	logger       *slog.Logger
	now          func() time.Time
}

// ExecutionServiceOptions holds the optional collaborators of ExecutionService
type ExecutionServiceOptions struct {
	// Source names the market data provider in error responses
	Source    string
	Publisher ws.Publisher
	Metrics   *infrastructure.ExecutionMetrics
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

// NewExecutionService creates an execution service. provider must be the one the
// orchestrator was built with.
func NewExecutionService(orchestrator *execution.Orchestrator, provider execution.MarketDataProvider, opts ExecutionServiceOptions) *ExecutionService {
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Source == "" {
		opts.Source = "simulated"
	}
	return &ExecutionService{
		orchestrator: orchestrator,
		provider:     provider,
		source:       opts.Source,
		publisher:    opts.Publisher,
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
		logger:       opts.Logger.With(slog.String("service", "execution")),
		now:          time.Now,
	}
}

// ExecutionRecord is an ExecutionResult with the request that produced it
type ExecutionRecord struct {
	ID        string    `json:"id"`
	OrderSize float64   `json:"order_size"`
	Urgency   float64   `json:"urgency"`
	CreatedAt time.Time `json:"created_at"`
	*execution.ExecutionResult
}

// ExecutionEvent is the websocket payload for a completed execution
type ExecutionEvent struct {
	ID             string             `json:"id"`
	Strategy       execution.Strategy `json:"strategy"`
	Branch         execution.Branch   `json:"branch,omitempty"`
	OrderSize      float64            `json:"order_size"`
	TotalCost      float64            `json:"total_cost"`
	CostPerShare   float64            `json:"cost_per_share"`
	CompletionTime int                `json:"completion_time"`
	FallbackUsed   bool               `json:"fallback_used"`
}

// ComparisonReport is a strategy comparison with its winner. Best is nil when
// every strategy failed.
type ComparisonReport struct {
	execution.Comparison
	Best *execution.StrategyOutcome `json:"best,omitempty"`
}

// Execute schedules and prices one order
func (s *ExecutionService) Execute(ctx context.Context, orderSize, urgency float64, strategyName string) (*ExecutionRecord, error) {
	strategy, err := execution.ParseStrategy(strategyName)
	if err != nil {
		return nil, apierrors.NewStrategyError(strategyName, err)
	}

	ctx, span := s.tracer.Start(ctx, "execution.execute", trace.WithAttributes(
		attribute.String("execution.strategy", string(strategy)),
		attribute.Float64("execution.order_size", orderSize),
		attribute.Float64("execution.urgency", urgency),
	))
	defer span.End()

	start := s.now()
	result, err := s.orchestrator.ExecuteOrder(ctx, orderSize, urgency, strategy)
	if err != nil {
		s.metrics.RecordExecution(ctx, string(strategy), "", 0, false, time.Since(start), err)
		infrastructure.RecordError(ctx, err)
		if errors.Is(err, execution.ErrMarketData) {
			return nil, apierrors.NewMarketDataError(s.source, err)
		}
		return nil, err
	}
	s.metrics.RecordExecution(ctx, string(strategy), string(result.Branch), result.CostPerShare,
		result.FallbackUsed, time.Since(start), nil)

	record := &ExecutionRecord{
		ID:              uuid.New().String(),
		OrderSize:       orderSize,
		Urgency:         urgency,
		CreatedAt:       s.now().UTC(),
		ExecutionResult: result,
	}

	span.SetAttributes(
		attribute.String("execution.id", record.ID),
		attribute.String("execution.branch", string(result.Branch)),
		attribute.Float64("execution.total_cost", result.TotalCost),
		attribute.Bool("execution.fallback", result.FallbackUsed),
	)

	if result.FallbackUsed {
		infrastructure.AddSpanEvent(ctx, "execution.fallback",
			attribute.String("reason", result.FallbackReason))
		s.publisher.Publish(ctx, ws.TypeFallback, map[string]interface{}{
			"id":       record.ID,
			"strategy": strategy,
			"reason":   result.FallbackReason,
		})
	}
	s.publisher.Publish(ctx, ws.TypeExecution, ExecutionEvent{
		ID:             record.ID,
		Strategy:       result.Strategy,
		Branch:         result.Branch,
		OrderSize:      orderSize,
		TotalCost:      result.TotalCost,
		CostPerShare:   result.CostPerShare,
		CompletionTime: result.CompletionTime,
		FallbackUsed:   result.FallbackUsed,
	})

	return record, nil
}

// Compare evaluates every strategy for the same order. Invalid orders are
// rejected up front rather than failing each strategy.
func (s *ExecutionService) Compare(ctx context.Context, orderSize, urgency float64) (ComparisonReport, error) {
	order := execution.Order{Size: orderSize, Urgency: urgency}
	if err := order.Validate(); err != nil {
		return ComparisonReport{}, fmt.Errorf("compare strategies: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "execution.compare", trace.WithAttributes(
		attribute.Float64("execution.order_size", orderSize),
		attribute.Float64("execution.urgency", urgency),
	))
	defer span.End()

	report := ComparisonReport{Comparison: s.orchestrator.CompareStrategies(ctx, orderSize, urgency)}
	if err := ctx.Err(); err != nil {
		infrastructure.RecordError(ctx, err)
		return ComparisonReport{}, fmt.Errorf("compare strategies: %w", err)
	}

	bestName := "none"
	if best, ok := report.Comparison.Best(); ok {
		report.Best = &best
		bestName = string(best.Strategy)
		span.SetAttributes(
			attribute.String("execution.best", bestName),
			attribute.Float64("execution.best_cost", best.TotalCost),
		)
	} else {
		s.logger.WarnContext(ctx, "no strategy could be evaluated",
			"order_size", orderSize,
			"urgency", urgency)
	}
	s.metrics.RecordComparison(ctx, bestName)

	s.publisher.Publish(ctx, ws.TypeComparison, map[string]interface{}{
		"order_size": orderSize,
		"urgency":    urgency,
		"best":       bestName,
		"outcomes":   report.Outcomes,
	})

	return report, nil
}

// OptimizePortfolio allocates a multi-asset order. A nil correlation matrix
// uses the default off-diagonal correlation. Non-convergence is reported
// through PortfolioResult.Success, not as an error.
func (s *ExecutionService) OptimizePortfolio(ctx context.Context, orders []execution.PortfolioOrder, corr execution.CorrelationMatrix, methodName string) (execution.PortfolioResult, error) {
	method, err := execution.ParseAllocationMethod(methodName)
	if err != nil {
		return execution.PortfolioResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "portfolio.optimize", trace.WithAttributes(
		attribute.String("portfolio.method", string(method)),
		attribute.Int("portfolio.orders", len(orders)),
	))
	defer span.End()

	result, err := s.orchestrator.OptimizePortfolio(ctx, orders, corr, method)
	if err != nil {
		s.metrics.RecordPortfolio(ctx, string(method), false, 0)
		infrastructure.RecordError(ctx, err)
		return execution.PortfolioResult{}, err
	}
	s.metrics.RecordPortfolio(ctx, string(result.Method), result.Success, result.Iterations)

	span.SetAttributes(
		attribute.Bool("portfolio.success", result.Success),
		attribute.Int("portfolio.iterations", result.Iterations),
		attribute.Float64("portfolio.total_cost", result.TotalCost),
	)
	if !result.Success {
		s.logger.WarnContext(ctx, "portfolio optimizer did not converge",
			"status", result.Status,
			"iterations", result.Iterations)
	}

	s.publisher.Publish(ctx, ws.TypePortfolio, map[string]interface{}{
		"method":      result.Method,
		"orders":      len(orders),
		"total_cost":  result.TotalCost,
		"success":     result.Success,
		"allocations": result.Allocations,
	})

	return result, nil
}

// MarketConditions returns the provider's current snapshot
func (s *ExecutionService) MarketConditions(ctx context.Context) (execution.MarketConditions, error) {
	ctx, span := s.tracer.Start(ctx, "market.conditions")
	defer span.End()

	conditions, err := s.provider.MarketConditions(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return execution.MarketConditions{}, apierrors.NewMarketDataError(s.source,
			fmt.Errorf("market conditions: %w: %w", execution.ErrMarketData, err))
	}
	return conditions, nil
}
