package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	apierrors "optexec/internal/errors"
	"optexec/internal/execution"
	"optexec/internal/marketdata"
	"optexec/internal/middleware"
	"optexec/internal/services"
	"optexec/internal/shared/testutil"
)

type apiFixture struct {
	router   chi.Router
	provider *testutil.StubProvider
}

// newAPI mounts the handlers over real services backed by a stub provider
func newAPI(t *testing.T) *apiFixture {
	t.Helper()

	provider := testutil.NewStubProvider(testutil.NeutralConditions())
	orch, err := execution.NewOrchestrator(execution.DefaultConfig(), provider, nil)
	require.NoError(t, err)

	logger, _ := testutil.NewTestLogger(t)
	execSvc := services.NewExecutionService(orch, provider, services.ExecutionServiceOptions{Logger: logger})
	feed := marketdata.NewSimulatedFeed(marketdata.DefaultSimulatedConfig(), logger)
	liqSvc := services.NewLiquidityService(marketdata.NewLiquidityEstimator(feed), nil, logger)
	healthSvc := services.NewHealthService(services.BuildInfo{Version: "test"}, provider, nil, logger)

	return &apiFixture{
		router:   mountAPI(execSvc, liqSvc, healthSvc, apierrors.NewErrorHandler(logger, false)),
		provider: provider,
	}
}

func mountAPI(execSvc ExecutionService, liqSvc LiquidityService, healthSvc HealthService, responder ErrorResponder) chi.Router {
	v := middleware.NewValidator()
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		if healthSvc != nil {
			health := NewHealthHandler(healthSvc, responder, nil)
			r.Get("/health", health.HealthCheck)
			r.Get("/health/ready", health.ReadinessCheck)
			r.Get("/version", health.Version)
		}
		r.Mount("/market", NewMarketHandler(execSvc, liqSvc, v, responder, nil).Routes())
		r.Mount("/executions", NewExecutionHandler(execSvc, v, responder, nil).Routes())
		r.Mount("/portfolio", NewPortfolioHandler(execSvc, v, responder, nil).Routes())
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	if buf.Len() > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthEndpoints(t *testing.T) {
	api := newAPI(t)

	rec := do(t, api.router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON(t, rec)["status"])

	rec = do(t, api.router, http.MethodGet, "/api/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeJSON(t, rec)["status"])

	rec = do(t, api.router, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", decodeJSON(t, rec)["version"])

	api.provider.ConditionsErr = errors.New("feed down")
	rec = do(t, api.router, http.MethodGet, "/api/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	problem := decodeJSON(t, rec)
	assert.Equal(t, apierrors.TypeServiceDown, problem["type"])
	assert.Equal(t, "SERVICE_UNAVAILABLE", problem["error_code"])
	details, ok := problem["details"].(map[string]interface{})
	require.True(t, ok, rec.Body.String())
	assert.Equal(t, "not_ready", details["status"])
}

func TestExecuteEndpoint(t *testing.T) {
	api := newAPI(t)

	tests := []struct {
		name         string
		body         interface{}
		wantStatus   int
		wantStrategy string
		wantType     string
	}{
		{
			name:         "twap",
			body:         ExecutionRequest{OrderSize: 10_000, Urgency: 0.5, Strategy: "twap"},
			wantStatus:   http.StatusCreated,
			wantStrategy: "twap",
		},
		{
			name:         "strategy defaults to adaptive",
			body:         ExecutionRequest{OrderSize: 10_000, Urgency: 0.5},
			wantStatus:   http.StatusCreated,
			wantStrategy: "adaptive",
		},
		{
			name:       "unknown strategy",
			body:       ExecutionRequest{OrderSize: 10_000, Urgency: 0.5, Strategy: "moonshot"},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "negative size",
			body:       map[string]interface{}{"order_size": -5, "urgency": 0.5},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "urgency above one",
			body:       ExecutionRequest{OrderSize: 10_000, Urgency: 1.5},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "malformed json",
			body:       `{"order_size": `,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, api.router, http.MethodPost, "/api/executions", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			body := decodeJSON(t, rec)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
				assert.Equal(t, "/api/executions", body["instance"])
				return
			}

			assert.Equal(t, tt.wantStrategy, body["strategy"])
			assert.NotEmpty(t, body["id"])
			schedule, ok := body["schedule"].([]interface{})
			require.True(t, ok)
			var total float64
			for _, v := range schedule {
				total += v.(float64)
			}
			assert.InDelta(t, 10_000, total, 1e-6)
		})
	}
}

func TestExecuteValidationDetails(t *testing.T) {
	api := newAPI(t)

	rec := do(t, api.router, http.MethodPost, "/api/executions", map[string]interface{}{"urgency": 2})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeJSON(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	details := body["details"].(map[string]interface{})
	fields := details["errors"].([]interface{})
	require.Len(t, fields, 2)
	assert.Equal(t, "order_size", fields[0].(map[string]interface{})["field"])
	assert.Equal(t, "urgency", fields[1].(map[string]interface{})["field"])
}

func TestEngineErrorsMapToProblems(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{name: "market data", err: fmt.Errorf("load: %w", execution.ErrMarketData), wantStatus: http.StatusServiceUnavailable, wantType: apierrors.TypeMarketData},
		{name: "deadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantType: apierrors.TypeTimeout},
		{name: "invalid volume", err: execution.ErrInvalidVolume, wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantType: apierrors.TypeInternal},
		{
			name:       "market data with source",
			err:        apierrors.NewMarketDataError("fixed", fmt.Errorf("load: %w", execution.ErrMarketData)),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   apierrors.TypeMarketData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockExecutionService)
			svc.On("Execute", 1000.0, 0.5, "vwap").Return(nil, tt.err)
			router := mountAPI(svc, nil, nil, apierrors.NewErrorHandler(nil, false))

			rec := do(t, router, http.MethodPost, "/api/executions", ExecutionRequest{OrderSize: 1000, Urgency: 0.5, Strategy: "vwap"})
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, decodeJSON(t, rec)["type"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestCompareEndpoint(t *testing.T) {
	api := newAPI(t)

	rec := do(t, api.router, http.MethodPost, "/api/executions/compare", CompareRequest{OrderSize: 50_000, Urgency: 0.3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeJSON(t, rec)
	outcomes := body["outcomes"].([]interface{})
	require.Len(t, outcomes, len(execution.ComparisonOrder))
	for i, o := range outcomes {
		assert.Equal(t, string(execution.ComparisonOrder[i]), o.(map[string]interface{})["strategy"])
	}
	require.Contains(t, body, "best")

	rec = do(t, api.router, http.MethodPost, "/api/executions/compare", CompareRequest{Urgency: 0.3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolioEndpoint(t *testing.T) {
	api := newAPI(t)
	orders := []PortfolioOrderRequest{
		{Symbol: "AAPL", Size: 100_000, Risk: 0.02},
		{Symbol: "MSFT", Size: 50_000, Risk: 0.015},
		{Symbol: "GOOGL", Size: 75_000, Risk: 0.025},
	}

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantType   string
		wantMethod string
	}{
		{
			name:       "proportional by default",
			body:       PortfolioRequest{Orders: orders},
			wantStatus: http.StatusOK,
			wantMethod: "proportional",
		},
		{
			name:       "optimizer with correlation",
			body:       PortfolioRequest{Orders: orders, Method: "optimizer", Correlation: [][]float64{{1, 0.2, 0.1}, {0.2, 1, 0.3}, {0.1, 0.3, 1}}},
			wantStatus: http.StatusOK,
			wantMethod: "optimizer",
		},
		{
			name:       "empty portfolio",
			body:       PortfolioRequest{},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "lowercase symbol",
			body:       PortfolioRequest{Orders: []PortfolioOrderRequest{{Symbol: "aapl", Size: 1, Risk: 0.1}}},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "unknown method",
			body:       PortfolioRequest{Orders: orders, Method: "magic"},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "correlation of wrong size",
			body:       PortfolioRequest{Orders: orders, Method: "optimizer", Correlation: [][]float64{{1, 0}, {0, 1}}},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeInvalidPortfolio,
		},
		{
			name:       "duplicate symbol",
			body:       PortfolioRequest{Orders: []PortfolioOrderRequest{{Symbol: "X", Size: 1, Risk: 0.1}, {Symbol: "X", Size: 2, Risk: 0.1}}},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeInvalidPortfolio,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, api.router, http.MethodPost, "/api/portfolio/optimize", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			body := decodeJSON(t, rec)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
				return
			}
			assert.Equal(t, tt.wantMethod, body["method"])
			assert.Len(t, body["allocations"], len(orders))
			assert.Contains(t, body, "success")
		})
	}
}

func TestPortfolioPassesRequestThrough(t *testing.T) {
	svc := new(MockExecutionService)
	want := []execution.PortfolioOrder{{Symbol: "BRK.B", Size: 10, Risk: 0.1}}
	svc.On("OptimizePortfolio", want, execution.CorrelationMatrix(nil), "").
		Return(execution.PortfolioResult{Method: execution.MethodProportional, Success: true}, nil)
	router := mountAPI(svc, nil, nil, apierrors.NewErrorHandler(nil, false))

	rec := do(t, router, http.MethodPost, "/api/portfolio/optimize", PortfolioRequest{
		Orders: []PortfolioOrderRequest{{Symbol: "BRK.B", Size: 10, Risk: 0.1}},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestMarketEndpoints(t *testing.T) {
	api := newAPI(t)

	rec := do(t, api.router, http.MethodGet, "/api/market/conditions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testutil.NeutralConditions().AverageVolume, decodeJSON(t, rec)["average_volume"])

	api.provider.ConditionsErr = errors.New("feed down")
	rec = do(t, api.router, http.MethodGet, "/api/market/conditions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	problem := decodeJSON(t, rec)
	assert.Equal(t, apierrors.TypeMarketData, problem["type"])
	assert.Equal(t, "simulated", problem["source"])
}

func TestLiquidityEndpoint(t *testing.T) {
	api := newAPI(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:       "explicit inputs",
			body:       LiquidityRequest{Trades: []float64{100, 200, 300, 5000}, OrderBook: &OrderBookRequest{BidVolume: 300_000, AskVolume: 100_000}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.InDelta(t, 0.75, body["hidden_buy_pressure"], 1e-12)
				assert.NotContains(t, body, "hidden_sell_pressure")
				assert.InDelta(t, 0.25, body["iceberg_indication"], 1e-12)
			},
		},
		{
			name:       "empty body samples inputs",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(marketdata.DefaultTradeCount), body["trade_count"])
			},
		},
		{
			name:       "negative trade",
			body:       LiquidityRequest{Trades: []float64{10, -1}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative book",
			body:       LiquidityRequest{OrderBook: &OrderBookRequest{BidVolume: -1}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, api.router, http.MethodPost, "/api/market/liquidity", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decodeJSON(t, rec))
			}
		})
	}
}

func TestConcurrentExecutions(t *testing.T) {
	api := newAPI(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		strategy := execution.ComparisonOrder[i%len(execution.ComparisonOrder)]
		g.Go(func() error {
			body, err := json.Marshal(ExecutionRequest{OrderSize: 25_000, Urgency: 0.4, Strategy: string(strategy)})
			if err != nil {
				return err
			}
			resp, err := http.Post(srv.URL+"/api/executions", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				return fmt.Errorf("%s: status %d", strategy, resp.StatusCode)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
