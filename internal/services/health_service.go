package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"optexec/internal/execution"
)

// readinessTimeout bounds the market data check in ReadinessCheck
const readinessTimeout = 2 * time.Second

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	provider  execution.MarketDataProvider
	hub       HubMonitor
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// Ready reports whether the readiness check passed
func (s HealthStatus) Ready() bool {
	return s.Status == "ready"
}

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string
	BuildTime string
	BuildID   string
}

// NewHealthService creates a health service. hub may be nil when websockets are
// not served.
func NewHealthService(build BuildInfo, provider execution.MarketDataProvider, hub HubMonitor, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("health service initialized",
		slog.String("version", build.Version),
		slog.String("build_time", build.BuildTime),
		slog.String("build_id", build.BuildID))

	return &HealthService{
		version:   build.Version,
		buildTime: build.BuildTime,
		buildID:   build.BuildID,
		provider:  provider,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"goroutines":     runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck queries the market data provider and the websocket hub
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"market_data": hs.checkMarketData(ctx),
			"websocket":   hs.checkWebSocket(),
		},
	}

	for name, service := range status.Services {
		if service.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("dependency", name),
				slog.String("message", service.Message))
		}
	}

	return status
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.UTC().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

func (hs *HealthService) checkMarketData(ctx context.Context) ServiceHealth {
	if hs.provider == nil {
		return ServiceHealth{Status: "not_ready", Message: "market data provider not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	conditions, err := hs.provider.MarketConditions(ctx)
	if err == nil {
		err = conditions.Validate()
	}
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("market data unavailable: %v", err),
		}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "ready", Message: "websocket disabled"}
	}

	select {
	case <-hs.hub.Done():
		return ServiceHealth{Status: "not_ready", Message: "websocket hub stopped"}
	default:
	}

	stats := hs.hub.Stats()
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", stats.ActiveClients),
		Uptime:  time.Since(hs.startTime).Truncate(time.Second).String(),
	}
}
