package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"optexec/internal/execution"
	"optexec/internal/middleware"
)

// ExecutionRequest is the body of POST /api/executions. Strategy defaults to
// adaptive.
type ExecutionRequest struct {
	OrderSize float64 `json:"order_size" validate:"required,gt=0"`
	Urgency   float64 `json:"urgency" validate:"gte=0,lte=1"`
	Strategy  string  `json:"strategy,omitempty" validate:"omitempty,strategy"`
}

// CompareRequest is the body of POST /api/executions/compare
type CompareRequest struct {
	OrderSize float64 `json:"order_size" validate:"required,gt=0"`
	Urgency   float64 `json:"urgency" validate:"gte=0,lte=1"`
}

// ExecutionHandler serves single-order executions and strategy comparisons
type ExecutionHandler struct {
	service   ExecutionService
	validator *middleware.Validator
	errors    ErrorResponder
	logger    *slog.Logger
}

// NewExecutionHandler creates a new execution handler
func NewExecutionHandler(service ExecutionService, validator *middleware.Validator, errors ErrorResponder, logger *slog.Logger) *ExecutionHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecutionHandler{
		service:   service,
		validator: validator,
		errors:    errors,
		logger:    logger.With(slog.String("handler", "execution")),
	}
}

// Routes returns the execution routes, mounted under /api/executions
func (h *ExecutionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Execute)
	r.Post("/compare", h.Compare)
	return r
}

// Execute handles POST /api/executions
func (h *ExecutionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecutionRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	if req.Strategy == "" {
		req.Strategy = string(execution.StrategyAdaptive)
	}

	h.logger.DebugContext(r.Context(), "execution requested",
		slog.Float64("order_size", req.OrderSize),
		slog.Float64("urgency", req.Urgency),
		slog.String("strategy", req.Strategy))

	record, err := h.service.Execute(r.Context(), req.OrderSize, req.Urgency, req.Strategy)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, record)
}

// Compare handles POST /api/executions/compare
func (h *ExecutionHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	report, err := h.service.Compare(r.Context(), req.OrderSize, req.Urgency)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, report)
}
