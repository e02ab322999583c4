package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is an HTTP-level failure raised outside the engine: malformed
// bodies, rate limiting, readiness and websocket upgrades. ErrorHandler turns
// it into a problem response.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// withDetails copies e with details attached, leaving the shared value untouched
func (e *APIError) withDetails(status int, details interface{}) *APIError {
	out := *e
	if status != 0 {
		out.StatusCode = status
	}
	out.Details = details
	return &out
}

// ValidationError is a single failed field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the details payload for a request with failed fields
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return New(statusCode, errorCode, message).withDetails(0, details)
}

// Errors raised by middleware and handlers
var (
	ErrPayloadTooLarge    = New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
	ErrRateLimitExceeded  = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
	ErrWebSocketUpgrade   = New(http.StatusBadRequest, "WEBSOCKET_UPGRADE_FAILED", "WebSocket upgrade failed")
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
)

// InvalidRequestWithError reports a body that could not be decoded
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// NewValidationError creates a validation error with no field details
func NewValidationError(message string) *APIError {
	return New(http.StatusBadRequest, "VALIDATION_FAILED", message)
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}

// WebSocketUpgradeFailed reports a rejected handshake. status is the one the
// upgrader chose, usually 400 or 403.
func WebSocketUpgradeFailed(status int, reason error) *APIError {
	var detail string
	if reason != nil {
		detail = reason.Error()
	}
	return ErrWebSocketUpgrade.withDetails(status, detail)
}

// ServiceUnavailable reports a failed readiness check with its status attached
func ServiceUnavailable(status interface{}) *APIError {
	return ErrServiceUnavailable.withDetails(0, status)
}
