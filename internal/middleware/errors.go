package middleware

import (
	"net/http"

	"github.com/go-chi/render"

	apierrors "optexec/internal/errors"
	"optexec/internal/infrastructure"
)

// ProblemFromStatus creates a problem from an HTTP status code
func ProblemFromStatus(status int, detail, instance, traceID string) *apierrors.ProblemDetails {
	var problemType string

	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		problemType = apierrors.TypeValidation
	case http.StatusNotFound:
		problemType = apierrors.TypeNotFound
	case http.StatusMethodNotAllowed:
		problemType = apierrors.TypeMethodNotAllowed
	case http.StatusRequestEntityTooLarge:
		problemType = apierrors.TypePayloadTooLarge
	case http.StatusTooManyRequests:
		problemType = apierrors.TypeRateLimit
	case http.StatusServiceUnavailable:
		problemType = apierrors.TypeServiceDown
	case http.StatusGatewayTimeout:
		problemType = apierrors.TypeTimeout
	default:
		problemType = apierrors.TypeInternal
	}

	problem := apierrors.NewProblemDetails(status, problemType, http.StatusText(status), detail, instance)
	if traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}
	return problem
}

// respond writes err through responder, or as a bare problem when there is none
func respond(w http.ResponseWriter, r *http.Request, responder ErrorResponder, err *apierrors.APIError) {
	if responder != nil {
		responder.HandleError(w, r, err)
		return
	}
	problem := ProblemFromStatus(err.StatusCode, err.Message, r.URL.Path, infrastructure.GetTraceID(r.Context()))
	problem.WithExtension("error_code", err.ErrorCode)
	render.Render(w, r, problem)
}
