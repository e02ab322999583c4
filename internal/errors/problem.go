package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"optexec/internal/execution"
)

// StatusClientClosedRequest is the non-standard status used when the client went away
const StatusClientClosedRequest = 499

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions into the top-level object
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, 5+len(pd.Extensions))

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// Classification is how an engine error is reported over HTTP
type Classification struct {
	Status int
	Type   string
	Title  string
	Code   string
}

// Classify maps execution engine and context errors to an HTTP classification.
// ok is false for errors the engine does not own.
func Classify(err error) (c Classification, ok bool) {
	switch {
	case err == nil:
		return Classification{}, false

	case errors.Is(err, context.DeadlineExceeded):
		return Classification{http.StatusGatewayTimeout, TypeTimeout, "Request Timeout", "TIMEOUT"}, true
	case errors.Is(err, context.Canceled):
		return Classification{StatusClientClosedRequest, TypeTimeout, "Request Cancelled", "CANCELLED"}, true

	// Provider failures are checked before the validation sentinels they may also wrap
	case errors.Is(err, execution.ErrMarketData):
		return Classification{http.StatusServiceUnavailable, TypeMarketData, "Market Data Unavailable", "MARKET_DATA_UNAVAILABLE"}, true

	case errors.Is(err, execution.ErrInvalidOrderSize),
		errors.Is(err, execution.ErrInvalidUrgency),
		errors.Is(err, execution.ErrInvalidSlices):
		return Classification{http.StatusBadRequest, TypeInvalidOrder, "Invalid Order", "INVALID_ORDER"}, true

	case errors.Is(err, execution.ErrUnknownStrategy),
		errors.Is(err, execution.ErrUnknownAllocationMethod):
		return Classification{http.StatusBadRequest, TypeUnknownStrategy, "Unknown Strategy", "UNKNOWN_STRATEGY"}, true

	case errors.Is(err, execution.ErrNoOrders),
		errors.Is(err, execution.ErrInvalidPortfolioOrder),
		errors.Is(err, execution.ErrInvalidCorrelation):
		return Classification{http.StatusBadRequest, TypeInvalidPortfolio, "Invalid Portfolio", "INVALID_PORTFOLIO"}, true

	case errors.Is(err, execution.ErrInvalidScenario),
		errors.Is(err, execution.ErrInvalidConfidence):
		return Classification{http.StatusBadRequest, TypeValidation, "Validation Failed", "VALIDATION_FAILED"}, true

	case errors.Is(err, execution.ErrOptimizationFailure):
		return Classification{http.StatusUnprocessableEntity, TypeOptimization, "Optimization Failed", "OPTIMIZATION_FAILED"}, true

	case errors.Is(err, execution.ErrInvalidVolume),
		errors.Is(err, execution.ErrInvalidConditions):
		return Classification{http.StatusUnprocessableEntity, TypeMarketData, "Unusable Market Data", "INVALID_MARKET_DATA"}, true

	case errors.Is(err, execution.ErrInvalidConfig):
		return Classification{http.StatusInternalServerError, TypeInternal, "Engine Misconfigured", "INVALID_CONFIG"}, true
	}

	return Classification{}, false
}

// MapExecutionError builds the problem response for an engine error, falling back
// to a generic internal error for anything Classify does not recognize.
func MapExecutionError(err error, instance, traceID string) *ProblemDetails {
	c, ok := Classify(err)
	if !ok {
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}

	detail := err.Error()
	switch {
	case c.Type == TypeTimeout:
		detail = "The request took too long to process and was cancelled"
	case c.Status >= http.StatusInternalServerError && c.Status != http.StatusServiceUnavailable:
		detail = "An unexpected error occurred while processing your request"
	}

	return NewProblemDetails(c.Status, c.Type, c.Title, detail, instance).
		WithExtension("trace_id", traceID).
		WithExtension("error_code", c.Code)
}
