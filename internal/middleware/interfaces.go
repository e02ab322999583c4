package middleware

import (
	"context"
	"net/http"
	"time"
)

// HTTPMetrics records per-request telemetry. *infrastructure.ExecutionMetrics
// implements it.
type HTTPMetrics interface {
	RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration)
	TrackActiveRequest(ctx context.Context, delta int64)
}

// ErrorResponder writes an error as a problem response. *errors.ErrorHandler
// implements it.
type ErrorResponder interface {
	HandleError(w http.ResponseWriter, r *http.Request, err error)
}
