package execution

import "errors"

// Domain errors returned by the engine. Callers match them with errors.Is; the engine
// wraps them with context using fmt.Errorf("...: %w").
var (
	// ErrInvalidOrderSize is returned when an order or schedule total is not positive
	ErrInvalidOrderSize = errors.New("order size must be positive")

	// ErrInvalidVolume is returned when an average or historical volume cannot be used as a divisor
	ErrInvalidVolume = errors.New("average volume must be positive")

	// ErrInvalidConfidence is returned when a VaR confidence level is outside (0,1)
	ErrInvalidConfidence = errors.New("confidence must be strictly between 0 and 1")

	// ErrUnknownStrategy is returned for an unrecognized scheduling policy name
	ErrUnknownStrategy = errors.New("unknown execution strategy")

	// ErrOptimizationFailure marks a portfolio optimization that did not converge.
	// It is never returned by Allocator.Optimize directly; see PortfolioResult.Err.
	ErrOptimizationFailure = errors.New("portfolio optimization did not converge")

	// ErrMarketData wraps failures of the MarketDataProvider
	ErrMarketData = errors.New("market data unavailable")

	// ErrInvalidConditions is returned for a snapshot with negative or non-finite fields
	ErrInvalidConditions = errors.New("invalid market conditions")

	ErrUnknownAllocationMethod = errors.New("unknown allocation method")
	ErrInvalidSlices           = errors.New("number of time slices must be positive")
	ErrInvalidUrgency          = errors.New("urgency must be within [0,1]")
	ErrInvalidCorrelation      = errors.New("invalid correlation matrix")
	ErrInvalidScenario         = errors.New("invalid stress scenario")
	ErrInvalidConfig           = errors.New("invalid execution config")
	ErrNoOrders                = errors.New("portfolio has no orders")
	ErrInvalidPortfolioOrder   = errors.New("invalid portfolio order")
)
