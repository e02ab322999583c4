package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "optexec/internal/errors"
	"optexec/internal/infrastructure"
	"optexec/internal/marketdata"
)

// LiquidityService infers hidden liquidity from trades and the order book
type LiquidityService struct {
	estimator *marketdata.LiquidityEstimator
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewLiquidityService creates a liquidity service. tracer and logger may be nil.
func NewLiquidityService(estimator *marketdata.LiquidityEstimator, tracer trace.Tracer, logger *slog.Logger) *LiquidityService {
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LiquidityService{
		estimator: estimator,
		tracer:    tracer,
		logger:    logger.With(slog.String("service", "liquidity")),
	}
}

// Estimate validates the inputs and runs the estimator. Missing trades or a
// missing book are sampled from the market data feed.
func (s *LiquidityService) Estimate(ctx context.Context, trades []float64, book *marketdata.OrderBook) (marketdata.HiddenLiquidity, error) {
	for i, v := range trades {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return marketdata.HiddenLiquidity{}, apierrors.NewAppValidationError(
				fmt.Sprintf("trade %d has invalid size %v", i, v)).WithContext("index", i)
		}
	}
	if book != nil && (book.BidVolume < 0 || book.AskVolume < 0) {
		return marketdata.HiddenLiquidity{}, apierrors.NewAppValidationError("order book volumes must be non-negative")
	}

	_, span := s.tracer.Start(ctx, "liquidity.estimate", trace.WithAttributes(
		attribute.Int("liquidity.trades", len(trades)),
		attribute.Bool("liquidity.book_supplied", book != nil),
	))
	defer span.End()

	out := s.estimator.Estimate(trades, book)

	span.SetAttributes(attribute.Float64("liquidity.iceberg_indication", out.IcebergIndication))
	s.logger.DebugContext(ctx, "hidden liquidity estimated",
		"trades", out.TradeCount,
		"iceberg_indication", out.IcebergIndication,
		"buy_pressure", out.HiddenBuyPressure != nil,
		"sell_pressure", out.HiddenSellPressure != nil)

	return out, nil
}
