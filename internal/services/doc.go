// Package services is the layer between the HTTP handlers and the execution
// engine. Services parse names into engine types, wrap engine calls in spans and
// metrics, and publish the outcome of every operation to websocket clients.
//
// Handlers stay thin: they decode and validate a request, call one service
// method and render the result. Engine errors are returned unchanged so that
// the error handler can classify them.
package services
