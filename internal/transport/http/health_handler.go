package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "optexec/internal/errors"
)

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	service HealthService
	errors  ErrorResponder
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service HealthService, errors ErrorResponder, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		service: service,
		errors:  errors,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.HealthCheck(r.Context()))
}

// ReadinessCheck handles GET /api/health/ready. A failed check is a 503
// problem carrying the status under details.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.ReadinessCheck(r.Context())
	if !status.Ready() {
		h.logger.WarnContext(r.Context(), "not ready", slog.String("status", status.Status))
		h.errors.HandleError(w, r, apierrors.ServiceUnavailable(status))
		return
	}
	render.JSON(w, r, status)
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}
