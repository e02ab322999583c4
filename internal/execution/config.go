package execution

import "fmt"

// Portfolio execution time bounds in minutes (one regular trading session)
const (
	MinExecutionMinutes = 1.0
	MaxExecutionMinutes = 390.0
)

// Config holds the engine tunables. A Config is built once and passed by value into
// every component; components never modify it.
type Config struct {
	// RiskAversion is the default decay coefficient for Almgren-Chriss schedules
	RiskAversion float64 `json:"risk_aversion"`

	// PermanentImpactFactor scales volume fraction times volatility
	PermanentImpactFactor float64 `json:"permanent_impact_factor"`

	// TemporaryImpactFactor scales the square-root participation term
	TemporaryImpactFactor float64 `json:"temporary_impact_factor"`

	// TimeHorizon is the execution horizon in minutes
	TimeHorizon int `json:"time_horizon"`

	// MinTimeSlice is the width of one schedule slice in minutes
	MinTimeSlice int `json:"min_time_slice"`

	// MaxParticipation caps a single slice as a fraction of average volume
	MaxParticipation float64 `json:"max_participation"`

	// VaRConfidence is the confidence used for liquidity-adjusted VaR
	VaRConfidence float64 `json:"var_confidence"`

	// OptimizerMaxIterations bounds the portfolio optimizer
	OptimizerMaxIterations int `json:"optimizer_max_iterations"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		RiskAversion:           0.5,
		PermanentImpactFactor:  0.1,
		TemporaryImpactFactor:  0.01,
		TimeHorizon:            390,
		MinTimeSlice:           5,
		MaxParticipation:       0.1,
		VaRConfidence:          0.95,
		OptimizerMaxIterations: 500,
	}
}

// Slices returns the number of schedule slices for a horizon, never less than one
func (c Config) Slices(horizon int) int {
	n := horizon / c.MinTimeSlice
	if n < 1 {
		return 1
	}
	return n
}

// Validate checks that the configuration can drive the engine without producing
// NaN or infinite values
func (c Config) Validate() error {
	switch {
	case c.RiskAversion < 0:
		return fmt.Errorf("%w: risk aversion %.4f is negative", ErrInvalidConfig, c.RiskAversion)
	case c.PermanentImpactFactor < 0 || c.TemporaryImpactFactor < 0:
		return fmt.Errorf("%w: impact factors must be non-negative", ErrInvalidConfig)
	case c.MinTimeSlice <= 0:
		return fmt.Errorf("%w: min time slice %d must be positive", ErrInvalidConfig, c.MinTimeSlice)
	case c.TimeHorizon < c.MinTimeSlice:
		return fmt.Errorf("%w: time horizon %d shorter than min time slice %d",
			ErrInvalidConfig, c.TimeHorizon, c.MinTimeSlice)
	case c.MaxParticipation <= 0 || c.MaxParticipation > 1:
		return fmt.Errorf("%w: max participation %.4f must be in (0,1]", ErrInvalidConfig, c.MaxParticipation)
	case c.VaRConfidence <= 0 || c.VaRConfidence >= 1:
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidConfidence)
	case c.OptimizerMaxIterations <= 0:
		return fmt.Errorf("%w: optimizer iterations must be positive", ErrInvalidConfig)
	}
	return nil
}
