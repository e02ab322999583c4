package infrastructure

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ExecutionMetrics holds the application metrics
type ExecutionMetrics struct {
	// HTTP
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Engine
	ExecutionsTotal        metric.Int64Counter
	ExecutionErrors        metric.Int64Counter
	ExecutionDuration      metric.Float64Histogram
	ExecutionCostPerShare  metric.Float64Histogram
	ExecutionFallbacks     metric.Int64Counter
	ComparisonsTotal       metric.Int64Counter
	PortfolioOptimizations metric.Int64Counter
	OptimizerIterations    metric.Int64Histogram

	// WebSocket
	WebSocketClients metric.Int64UpDownCounter
}

// NewExecutionMetrics registers the application instruments on meter
func NewExecutionMetrics(meter metric.Meter) (*ExecutionMetrics, error) {
	var (
		m    ExecutionMetrics
		errs []error
	)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	seconds := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		errs = append(errs, err)
		return h
	}
	upDown := func(name, desc string) metric.Int64UpDownCounter {
		u, err := meter.Int64UpDownCounter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return u
	}

	m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests")
	m.HTTPRequestDuration = seconds("http_request_duration_seconds", "HTTP request duration in seconds")
	m.HTTPActiveRequests = upDown("http_active_requests", "Number of in-flight HTTP requests")

	m.ExecutionsTotal = counter("executions_total", "Orders scheduled and priced")
	m.ExecutionErrors = counter("execution_errors_total", "Orders rejected or failed")
	m.ExecutionDuration = seconds("execution_duration_seconds", "Time to schedule, price and stress test an order")
	m.ExecutionFallbacks = counter("execution_fallbacks_total", "Orders that fell back to TWAP")
	m.ComparisonsTotal = counter("strategy_comparisons_total", "Strategy comparisons run")
	m.PortfolioOptimizations = counter("portfolio_optimizations_total", "Portfolio allocations run")
	m.WebSocketClients = upDown("websocket_clients", "Connected WebSocket clients")

	var err error
	m.ExecutionCostPerShare, err = meter.Float64Histogram("execution_cost_per_share",
		metric.WithDescription("Estimated impact cost per share"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1))
	errs = append(errs, err)
	m.OptimizerIterations, err = meter.Int64Histogram("optimizer_iterations",
		metric.WithDescription("Nelder-Mead iterations per portfolio optimization"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 250, 500, 1000))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordExecution records one ExecuteOrder call
func (m *ExecutionMetrics) RecordExecution(ctx context.Context, strategy, branch string, costPerShare float64, fallback bool, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("strategy", strategy))

	m.ExecutionDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.ExecutionErrors.Add(ctx, 1, attrs)
		return
	}

	m.ExecutionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("branch", branch),
		attribute.Bool("fallback", fallback)))
	m.ExecutionCostPerShare.Record(ctx, costPerShare, attrs)
	if fallback {
		m.ExecutionFallbacks.Add(ctx, 1, attrs)
	}
}

// RecordComparison records one CompareStrategies call and the strategy that won
func (m *ExecutionMetrics) RecordComparison(ctx context.Context, best string) {
	if m == nil {
		return
	}
	m.ComparisonsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("best", best)))
}

// RecordPortfolio records one portfolio allocation
func (m *ExecutionMetrics) RecordPortfolio(ctx context.Context, method string, success bool, iterations int) {
	if m == nil {
		return
	}
	m.PortfolioOptimizations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("success", success)))
	if iterations > 0 {
		m.OptimizerIterations.Record(ctx, int64(iterations), metric.WithAttributes(attribute.String("method", method)))
	}
}

// RecordHTTPRequest records a finished HTTP request
func (m *ExecutionMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status))
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// TrackActiveRequest adjusts the in-flight request gauge by delta
func (m *ExecutionMetrics) TrackActiveRequest(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.HTTPActiveRequests.Add(ctx, delta)
}

// TrackWebSocketClient adjusts the connected client gauge by delta
func (m *ExecutionMetrics) TrackWebSocketClient(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}
