package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitializeOTel(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *OTelConfig
		wantTracing bool
		wantMetrics bool
		wantErr     bool
	}{
		{
			name:        "metrics without tracing",
			cfg:         &OTelConfig{ServiceName: "optexec", TraceExporter: "none", EnableMetrics: true, SampleRatio: 1},
			wantMetrics: true,
		},
		{
			name:        "stdout tracing",
			cfg:         &OTelConfig{ServiceName: "optexec", TraceExporter: "stdout", SampleRatio: 0.5},
			wantTracing: true,
		},
		{
			name:    "unsupported exporter",
			cfg:     &OTelConfig{ServiceName: "optexec", TraceExporter: "jaeger"},
			wantErr: true,
		},
		{
			name:        "defaults",
			cfg:         nil,
			wantMetrics: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				assert.NoError(t, providers.Shutdown(ctx))
			})

			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.Equal(t, tt.wantTracing, providers.TracerProvider != nil)
			assert.Equal(t, tt.wantMetrics, providers.PrometheusHTTP != nil)
		})
	}
}

func TestExecutionMetricsExported(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{ServiceName: "optexec", TraceExporter: "none", EnableMetrics: true}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	m, err := NewExecutionMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordExecution(ctx, "vwap", "", 0.002, false, 3*time.Millisecond, nil)
	m.RecordExecution(ctx, "vwap", "", 0.003, true, time.Millisecond, nil)
	m.RecordExecution(ctx, "twap", "", 0, false, time.Millisecond, errors.New("bad order"))
	m.RecordComparison(ctx, "adaptive")
	m.RecordPortfolio(ctx, "optimizer", true, 120)
	m.RecordHTTPRequest(ctx, http.MethodPost, "/api/executions", http.StatusOK, 5*time.Millisecond)
	m.TrackWebSocketClient(ctx, 1)

	w := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()

	for _, name := range []string{
		"executions_total",
		"execution_errors_total",
		"execution_fallbacks_total",
		"execution_cost_per_share",
		"strategy_comparisons_total",
		"portfolio_optimizations_total",
		"optimizer_iterations",
		"http_requests_total",
		"websocket_clients",
		"go_goroutines",
	} {
		assert.Contains(t, body, name)
	}
	assert.Contains(t, body, `strategy="vwap"`)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *ExecutionMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordExecution(ctx, "vwap", "", 0, false, 0, nil)
		m.RecordComparison(ctx, "twap")
		m.RecordPortfolio(ctx, "proportional", true, 0)
		m.RecordHTTPRequest(ctx, http.MethodGet, "/", 200, 0)
		m.TrackActiveRequest(ctx, 1)
		m.TrackWebSocketClient(ctx, -1)
	})
}

func TestSpanHelpers(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{ServiceName: "optexec", TraceExporter: "stdout", SampleRatio: 1}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "execute_order")
	defer span.End()

	assert.True(t, span.IsRecording())
	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
	assert.NotPanics(t, func() {
		AddSpanEvent(ctx, "fallback", attribute.String("reason", "no history"))
		RecordError(ctx, errors.New("boom"))
		RecordError(ctx, nil)
	})
}
