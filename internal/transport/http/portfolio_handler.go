package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"optexec/internal/execution"
	"optexec/internal/middleware"
)

// PortfolioOrderRequest is one leg of a portfolio request
type PortfolioOrderRequest struct {
	Symbol string  `json:"symbol" validate:"required,symbol"`
	Size   float64 `json:"size" validate:"gt=0"`
	Risk   float64 `json:"risk" validate:"gte=0"`
}

// PortfolioRequest is the body of POST /api/portfolio/optimize. A missing
// correlation matrix uses the default correlation; a missing method is
// proportional.
type PortfolioRequest struct {
	Orders      []PortfolioOrderRequest `json:"orders" validate:"required,min=1,dive"`
	Correlation [][]float64             `json:"correlation,omitempty"`
	Method      string                  `json:"method,omitempty" validate:"omitempty,allocation"`
}

func (req PortfolioRequest) orders() []execution.PortfolioOrder {
	out := make([]execution.PortfolioOrder, len(req.Orders))
	for i, o := range req.Orders {
		out[i] = execution.PortfolioOrder{Symbol: o.Symbol, Size: o.Size, Risk: o.Risk}
	}
	return out
}

// PortfolioHandler serves portfolio allocation
type PortfolioHandler struct {
	service   ExecutionService
	validator *middleware.Validator
	errors    ErrorResponder
	logger    *slog.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(service ExecutionService, validator *middleware.Validator, errors ErrorResponder, logger *slog.Logger) *PortfolioHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PortfolioHandler{
		service:   service,
		validator: validator,
		errors:    errors,
		logger:    logger.With(slog.String("handler", "portfolio")),
	}
}

// Routes returns the portfolio routes, mounted under /api/portfolio
func (h *PortfolioHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/optimize", h.Optimize)
	return r
}

// Optimize handles POST /api/portfolio/optimize. An optimizer that fails to
// converge still returns 200 with success=false.
func (h *PortfolioHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	var corr execution.CorrelationMatrix
	if req.Correlation != nil {
		corr = execution.CorrelationMatrix(req.Correlation)
	}

	result, err := h.service.OptimizePortfolio(r.Context(), req.orders(), corr, req.Method)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "portfolio allocated",
		slog.String("method", string(result.Method)),
		slog.Int("orders", len(req.Orders)),
		slog.Bool("success", result.Success))

	render.JSON(w, r, result)
}
