package http

import (
	"context"
	"net/http"

	"optexec/internal/execution"
	"optexec/internal/marketdata"
	"optexec/internal/services"
)

// ExecutionService is the engine surface the handlers need
type ExecutionService interface {
	Execute(ctx context.Context, orderSize, urgency float64, strategy string) (*services.ExecutionRecord, error)
	Compare(ctx context.Context, orderSize, urgency float64) (services.ComparisonReport, error)
	OptimizePortfolio(ctx context.Context, orders []execution.PortfolioOrder, corr execution.CorrelationMatrix, method string) (execution.PortfolioResult, error)
	MarketConditions(ctx context.Context) (execution.MarketConditions, error)
}

// HealthService reports liveness, readiness and build information
type HealthService interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

// LiquidityService estimates hidden liquidity
type LiquidityService interface {
	Estimate(ctx context.Context, trades []float64, book *marketdata.OrderBook) (marketdata.HiddenLiquidity, error)
}

// ErrorResponder renders an error as a problem document
type ErrorResponder interface {
	HandleError(w http.ResponseWriter, r *http.Request, err error)
}

var (
	_ ExecutionService = (*services.ExecutionService)(nil)
	_ HealthService    = (*services.HealthService)(nil)
	_ LiquidityService = (*services.LiquidityService)(nil)
)
