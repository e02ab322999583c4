package app

import (
	"fmt"
	"log/slog"

	"optexec/internal/config"
	"optexec/internal/execution"
	"optexec/internal/marketdata"
)

// Engine is the execution engine together with the market data it runs on.
// Both the server and the report command are built on it.
type Engine struct {
	Source       *marketdata.Source
	Orchestrator *execution.Orchestrator
	Estimator    *marketdata.LiquidityEstimator
}

// BuildEngine creates the configured market data source and an orchestrator over it
func BuildEngine(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	source, err := marketdata.NewSource(cfg.MarketData, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize market data: %w", err)
	}

	orch, err := execution.NewOrchestrator(cfg.Execution.EngineConfig(), source.Provider,
		logger.With(slog.String("component", "orchestrator")))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize execution engine: %w", err)
	}

	return &Engine{
		Source:       source,
		Orchestrator: orch,
		Estimator:    marketdata.NewLiquidityEstimator(source.Sampler),
	}, nil
}
