// Package http implements the HTTP handlers of the execution server. Handlers
// are thin: they decode and validate the request body, call a service, and
// render the result as JSON. They hold no domain logic.
//
// # Routes
//
//	GET  /api/health               liveness
//	GET  /api/health/ready         readiness (503 when a dependency is down)
//	GET  /api/version              build information
//	GET  /api/market/conditions    current market snapshot
//	POST /api/market/liquidity     hidden liquidity estimate
//	POST /api/executions           schedule and price one order
//	POST /api/executions/compare   price every strategy for one order
//	POST /api/portfolio/optimize   allocate a multi-asset order
//
// The websocket endpoint and the Prometheus endpoint are mounted by the app
// package next to these routes.
//
// # Error Handling
//
// Every failure is passed to an ErrorResponder, which renders an RFC 7807
// problem document:
//
//	{
//	    "type": "/errors/execution/invalid-order",
//	    "title": "Invalid Order",
//	    "status": 400,
//	    "detail": "invalid order size: got -5.0000",
//	    "instance": "/api/executions",
//	    "trace_id": "..."
//	}
//
// Request validation errors carry an error_code and the list of failing fields.
//
// # Testing
//
// Handlers depend on the small service interfaces in interfaces.go, so tests
// drive them with httptest and either the real services over a fixed market
// feed or testify mocks.
package http
